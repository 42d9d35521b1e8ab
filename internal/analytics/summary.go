package analytics

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/agrodata/plantio/internal/dataset"
)

// Summary is the descriptive-statistics block returned alongside charts.
// Keys follow the service's response contract; optional fields are omitted
// when the table lacks their source column.
type Summary struct {
	Registros    int      `json:"registros"`
	Culturas     *int     `json:"culturas,omitempty"`
	Estados      *int     `json:"estados,omitempty"`
	AnoMin       *int64   `json:"ano_min,omitempty"`
	AnoMax       *int64   `json:"ano_max,omitempty"`
	YieldMedia   *float64 `json:"yield_media,omitempty"`
	YieldMediana *float64 `json:"yield_mediana,omitempty"`
}

// BuildSummary computes the summary over a normalized table.
func BuildSummary(t *dataset.Table) *Summary {
	s := &Summary{Registros: len(t.Rows)}

	if t.HasColumn("crop") {
		n := distinctCount(t, "crop")
		s.Culturas = &n
	}
	if t.HasColumn("state") {
		n := distinctCount(t, "state")
		s.Estados = &n
	}
	if t.HasColumn("year") {
		if lo, hi, ok := yearRange(t); ok {
			s.AnoMin, s.AnoMax = &lo, &hi
		}
	}
	if t.HasColumn("yield_kg_ha") {
		vals := t.FloatColumn("yield_kg_ha")
		if len(vals) > 0 {
			mean := stat.Mean(vals, nil)
			sort.Float64s(vals)
			median := stat.Quantile(0.5, stat.LinInterp, vals, nil)
			s.YieldMedia, s.YieldMediana = &mean, &median
		}
	}
	return s
}

func distinctCount(t *dataset.Table, col string) int {
	seen := make(map[string]bool)
	for _, r := range t.Rows {
		if v, ok := dataset.AsString(r[col]); ok && v != "" {
			seen[v] = true
		}
	}
	return len(seen)
}

func yearRange(t *dataset.Table) (lo, hi int64, ok bool) {
	for _, r := range t.Rows {
		y, yok := dataset.AsInt(r["year"])
		if !yok {
			continue
		}
		if !ok || y < lo {
			lo = y
		}
		if !ok || y > hi {
			hi = y
		}
		ok = true
	}
	return lo, hi, ok
}
