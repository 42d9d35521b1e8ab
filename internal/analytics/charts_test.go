package analytics

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/agrodata/plantio/internal/dataset"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func assertPNG(t *testing.T, name string, b []byte) {
	t.Helper()
	if len(b) == 0 {
		t.Fatalf("%s: empty artifact", name)
	}
	if !bytes.HasPrefix(b, pngMagic) {
		t.Fatalf("%s: not a PNG artifact", name)
	}
}

func TestRenderAllFullTable(t *testing.T) {
	b := NewChartBuilder(nil, "soja")
	charts := b.RenderAll(sampleTable(25))

	want := []string{
		ChartTopCrops, ChartYieldByState, ChartHistNumeric,
		ChartCorrMatrix, ChartBoxSeasonMacro, ChartProductionYear,
	}
	if len(charts) != len(want) {
		t.Fatalf("chart count = %d, want %d", len(charts), len(want))
	}
	for _, name := range want {
		assertPNG(t, name, charts[name])
	}
}

func TestRenderAllPlaceholdersForBareTable(t *testing.T) {
	// A table with none of the canonical columns exercises the placeholder
	// path of every renderer.
	tbl := dataset.NewTable([]string{"foo"})
	tbl.Rows = append(tbl.Rows, dataset.Row{"foo": "bar"})

	b := NewChartBuilder(nil, "soja")
	for name, img := range b.RenderAll(tbl) {
		assertPNG(t, name, img)
	}
}

func TestTopCropCountsLimit(t *testing.T) {
	tbl := dataset.NewTable([]string{"crop"})
	for i := 0; i < 12; i++ {
		// crop_00 appears 13 times, crop_01 12 times, and so on.
		for j := 0; j <= 12-i; j++ {
			tbl.Rows = append(tbl.Rows, dataset.Row{"crop": fmt.Sprintf("crop_%02d", i)})
		}
	}

	names, vals := topCropCounts(tbl, maxCropBars)
	if len(names) != 10 || len(vals) != 10 {
		t.Fatalf("kept %d crops, want 10", len(names))
	}
	if names[0] != "crop_00" || vals[0] != 13 {
		t.Errorf("top crop = %s/%v, want crop_00/13", names[0], vals[0])
	}
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[i-1] {
			t.Errorf("counts not descending: %v", vals)
		}
	}
}

func TestTopStateMeansKeepsFifteen(t *testing.T) {
	tbl := dataset.NewTable([]string{"state", "yield_kg_ha"})
	for i := 0; i < 20; i++ {
		tbl.Rows = append(tbl.Rows, dataset.Row{
			"state":       fmt.Sprintf("state_%02d", i),
			"yield_kg_ha": float64(100 - i),
		})
	}

	states, vals := topStateMeans(tbl, maxStateBars)
	if len(states) != 15 {
		t.Fatalf("kept %d states, want 15", len(states))
	}
	if states[0] != "state_00" || vals[0] != 100 {
		t.Errorf("top state = %s/%v, want state_00/100", states[0], vals[0])
	}
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[i-1] {
			t.Errorf("means not descending: %v", vals)
		}
	}
}

func TestHistColumnsFixedList(t *testing.T) {
	tbl := dataset.NewTable([]string{"id", "yield_kg_ha", "area", "sensor_reading", "crop"})
	tbl.Rows = append(tbl.Rows, dataset.Row{
		"id": int64(1), "yield_kg_ha": 30.0, "area": 100.0,
		"sensor_reading": 7.5, "crop": "soja",
	})

	got := histColumns(tbl)
	want := []string{"area", "yield_kg_ha"}
	if len(got) != len(want) {
		t.Fatalf("hist columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hist columns = %v, want %v", got, want)
		}
	}
}

func TestAggregateProductionFiltersByCrop(t *testing.T) {
	b := NewChartBuilder(nil, "")
	tbl := sampleTable(12)

	// "soy" should fuzzy-match the stored "soja" rows (even indexes).
	years, totals, matched := b.AggregateProduction(tbl, "soy")
	if matched != "soja" {
		t.Fatalf("matched = %q, want soja", matched)
	}
	if len(years) == 0 {
		t.Fatal("no aggregated years")
	}
	for i := 1; i < len(years); i++ {
		if years[i] <= years[i-1] {
			t.Errorf("years not ascending: %v", years)
		}
	}

	var want float64
	for i := 0; i < 12; i += 2 {
		want += float64(500 + 20*i)
	}
	var got float64
	for _, v := range totals {
		got += v
	}
	if got != want {
		t.Errorf("total production = %v, want %v", got, want)
	}
}

func TestAggregateProductionUnmatchedCropKeepsAllRows(t *testing.T) {
	b := NewChartBuilder(nil, "")
	years, _, matched := b.AggregateProduction(sampleTable(12), "banana")
	if matched != "" {
		t.Errorf("matched = %q, want no match", matched)
	}
	if len(years) != 6 {
		t.Errorf("years = %v, want all 6 distinct years", years)
	}
}

func TestForecastChart(t *testing.T) {
	assertPNG(t, "forecast", ForecastChart(
		[]int64{2024, 2025, 2026},
		[]float64{10, 11, 12},
	))
	assertPNG(t, "forecast-empty", ForecastChart(nil, nil))
}
