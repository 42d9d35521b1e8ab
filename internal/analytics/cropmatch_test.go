package analytics

import "testing"

func TestCropMatcherSynonyms(t *testing.T) {
	m := NewCropMatcher(nil)
	stored := []string{"Arroz", "Milho", "Soja", "Trigo"}

	cases := []struct {
		query string
		want  string
	}{
		{"soyabean", "Soja"},
		{"soy", "Soja"},
		{"corn", "Milho"},
		{"maize", "Milho"},
		{"wheat", "Trigo"},
		{"paddy", "Arroz"},
		{"SOJA", "Soja"},
		{"  milho  ", "Milho"},
	}
	for _, c := range cases {
		got, ok := m.Match(c.query, stored)
		if !ok || got != c.want {
			t.Errorf("Match(%q) = %q/%v, want %q", c.query, got, ok, c.want)
		}
	}

	if _, ok := m.Match("banana", stored); ok {
		t.Error("Match(banana) should not match")
	}
}

func TestCropMatcherDiacritics(t *testing.T) {
	m := NewCropMatcher(nil)
	if got, ok := m.Match("algodão", []string{"Algodao Herbaceo"}); !ok || got != "Algodao Herbaceo" {
		t.Errorf("diacritic substring match = %q/%v", got, ok)
	}
}

func TestCropMatcherOverrides(t *testing.T) {
	m := NewCropMatcher(map[string][]string{"cafe": {"coffee"}})
	if got, ok := m.Match("coffee", []string{"Cafe", "Soja"}); !ok || got != "Cafe" {
		t.Errorf("override match = %q/%v, want Cafe", got, ok)
	}
	// Defaults survive the merge.
	if got, ok := m.Match("soybean", []string{"Cafe", "Soja"}); !ok || got != "Soja" {
		t.Errorf("default match after override = %q/%v, want Soja", got, ok)
	}
}
