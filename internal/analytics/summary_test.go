package analytics

import (
	"testing"

	"github.com/agrodata/plantio/internal/dataset"
)

func sampleTable(n int) *dataset.Table {
	t := dataset.NewTable([]string{
		"id", "crop", "year", "state", "season_macro",
		"area", "production", "yield_kg_ha",
	})
	crops := []string{"soja", "milho"}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, dataset.Row{
			"id":           int64(i + 1),
			"crop":         crops[i%2],
			"year":         int64(2015 + i%6),
			"state":        "MT",
			"season_macro": "Chuvosa",
			"area":         float64(100 + i),
			"production":   float64(500 + 20*i),
			"yield_kg_ha":  float64(30 + i),
		})
	}
	return t
}

func TestBuildSummary(t *testing.T) {
	s := BuildSummary(sampleTable(25))

	if s.Registros != 25 {
		t.Errorf("registros = %d, want 25", s.Registros)
	}
	if s.Culturas == nil || *s.Culturas != 2 {
		t.Errorf("culturas = %v, want 2", s.Culturas)
	}
	if s.Estados == nil || *s.Estados != 1 {
		t.Errorf("estados = %v, want 1", s.Estados)
	}
	if s.AnoMin == nil || *s.AnoMin != 2015 {
		t.Errorf("ano_min = %v, want 2015", s.AnoMin)
	}
	if s.AnoMax == nil || *s.AnoMax != 2020 {
		t.Errorf("ano_max = %v, want 2020", s.AnoMax)
	}
	if s.YieldMedia == nil || s.YieldMediana == nil {
		t.Fatal("yield stats missing")
	}
	if *s.YieldMedia != 42 {
		t.Errorf("yield_media = %v, want 42", *s.YieldMedia)
	}
	if *s.YieldMediana != 42 {
		t.Errorf("yield_mediana = %v, want 42", *s.YieldMediana)
	}
}

func TestBuildSummaryOmitsMissingColumns(t *testing.T) {
	tbl := dataset.NewTable([]string{"id", "area"})
	tbl.Rows = append(tbl.Rows, dataset.Row{"id": int64(1), "area": 10.0})

	s := BuildSummary(tbl)
	if s.Registros != 1 {
		t.Errorf("registros = %d, want 1", s.Registros)
	}
	if s.Culturas != nil || s.Estados != nil || s.AnoMin != nil ||
		s.AnoMax != nil || s.YieldMedia != nil || s.YieldMediana != nil {
		t.Errorf("optional fields should be nil for a bare table: %+v", s)
	}
}
