// Package analytics computes descriptive statistics and renders the fixed
// chart set over the stored crop table.
package analytics

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// defaultCropSynonyms groups the crop-name variants seen across uploads
// under one canonical key. Config can override or extend these groups.
var defaultCropSynonyms = map[string][]string{
	"soja":    {"soy", "soya", "soybean", "soyabean"},
	"milho":   {"corn", "maize"},
	"trigo":   {"wheat"},
	"arroz":   {"rice", "paddy"},
	"algodao": {"cotton"},
	"cana":    {"sugarcane", "sugar cane"},
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeCropName casefolds, strips diacritics, and collapses whitespace
// so "Algodão ", "algodao" and "ALGODAO" compare equal.
func normalizeCropName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// CropMatcher resolves free-form crop names against the values stored in the
// table, tolerating spelling variants and synonyms.
type CropMatcher struct {
	// canonical maps every normalized variant to its canonical group key.
	canonical map[string]string
}

// NewCropMatcher builds a matcher from the default synonym groups merged
// with any config-supplied overrides (override groups win per key).
func NewCropMatcher(overrides map[string][]string) *CropMatcher {
	m := &CropMatcher{canonical: make(map[string]string)}
	for key, variants := range defaultCropSynonyms {
		m.addGroup(key, variants)
	}
	for key, variants := range overrides {
		m.addGroup(key, variants)
	}
	return m
}

func (m *CropMatcher) addGroup(key string, variants []string) {
	canon := normalizeCropName(key)
	m.canonical[canon] = canon
	for _, v := range variants {
		m.canonical[normalizeCropName(v)] = canon
	}
}

// resolve maps a name to its canonical group key, or to its own normalized
// form when it belongs to no group.
func (m *CropMatcher) resolve(name string) string {
	n := normalizeCropName(name)
	if canon, ok := m.canonical[n]; ok {
		return canon
	}
	return n
}

// Match returns the stored crop value best matching the query: first an
// exact canonical match, then a substring match in either direction. The
// returned value is the stored spelling, suitable for SQL filters.
func (m *CropMatcher) Match(query string, crops []string) (string, bool) {
	q := m.resolve(query)
	if q == "" {
		return "", false
	}
	for _, c := range crops {
		if m.resolve(c) == q {
			return c, true
		}
	}
	for _, c := range crops {
		rc := m.resolve(c)
		if strings.Contains(rc, q) || strings.Contains(q, rc) {
			return c, true
		}
	}
	return "", false
}
