package analytics

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/agrodata/plantio/internal/dataset"
	"github.com/agrodata/plantio/internal/monitoring"
)

// Chart names, used as response keys by the API layer.
const (
	ChartTopCrops       = "bar_top_crops"
	ChartYieldByState   = "yield_by_state"
	ChartHistNumeric    = "hist_numeric"
	ChartCorrMatrix     = "corr_matrix"
	ChartBoxSeasonMacro = "box_by_season_macro"
	ChartProductionYear = "production_by_year"
)

const (
	maxCropBars  = 10
	maxStateBars = 15
)

// ChartBuilder renders the fixed chart set as PNG bytes. Every renderer
// degrades to a labeled placeholder when its source columns are missing, so
// callers always get an artifact per chart name.
type ChartBuilder struct {
	Matcher   *CropMatcher
	ChartCrop string
}

// NewChartBuilder wires a builder with the given synonym overrides and the
// crop highlighted in the production chart.
func NewChartBuilder(synonyms map[string][]string, chartCrop string) *ChartBuilder {
	return &ChartBuilder{Matcher: NewCropMatcher(synonyms), ChartCrop: chartCrop}
}

// RenderAll produces the full chart set for a table.
func (b *ChartBuilder) RenderAll(t *dataset.Table) map[string][]byte {
	return map[string][]byte{
		ChartTopCrops:       b.TopCrops(t),
		ChartYieldByState:   b.YieldByState(t),
		ChartHistNumeric:    b.HistNumeric(t),
		ChartCorrMatrix:     b.CorrMatrix(t),
		ChartBoxSeasonMacro: b.BoxBySeasonMacro(t),
		ChartProductionYear: b.ProductionByYear(t),
	}
}

// topCropCounts returns up to limit crop names by descending row count, ties
// broken alphabetically, alongside their counts.
func topCropCounts(t *dataset.Table, limit int) ([]string, plotter.Values) {
	counts := make(map[string]int)
	for _, r := range t.Rows {
		if v, ok := dataset.AsString(r["crop"]); ok && v != "" {
			counts[v]++
		}
	}

	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}

	vals := make(plotter.Values, len(names))
	for i, n := range names {
		vals[i] = float64(counts[n])
	}
	return names, vals
}

// TopCrops renders a bar chart of row counts for the most frequent crops.
func (b *ChartBuilder) TopCrops(t *dataset.Table) []byte {
	if !t.HasColumn("crop") {
		return placeholder("Culturas mais frequentes", "coluna ausente: crop")
	}

	names, vals := topCropCounts(t, maxCropBars)
	if len(names) == 0 {
		return placeholder("Culturas mais frequentes", "sem valores de crop")
	}

	p := plot.New()
	p.Title.Text = "Culturas mais frequentes"
	p.Y.Label.Text = "Registros"
	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return placeholder("Culturas mais frequentes", err.Error())
	}
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return render(p)
}

// topStateMeans returns up to limit states by descending mean yield,
// alongside the means themselves.
func topStateMeans(t *dataset.Table, limit int) ([]string, plotter.Values) {
	sums := make(map[string]float64)
	ns := make(map[string]int)
	for _, r := range t.Rows {
		s, sok := dataset.AsString(r["state"])
		y, yok := dataset.AsFloat(r["yield_kg_ha"])
		if !sok || s == "" || !yok {
			continue
		}
		sums[s] += y
		ns[s]++
	}

	states := make([]string, 0, len(sums))
	for s := range sums {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool {
		return sums[states[i]]/float64(ns[states[i]]) > sums[states[j]]/float64(ns[states[j]])
	})
	if len(states) > limit {
		states = states[:limit]
	}

	vals := make(plotter.Values, len(states))
	for i, s := range states {
		vals[i] = sums[s] / float64(ns[s])
	}
	return states, vals
}

// YieldByState renders the mean yield for the highest-yielding states.
func (b *ChartBuilder) YieldByState(t *dataset.Table) []byte {
	if !t.HasColumn("state") || !t.HasColumn("yield_kg_ha") {
		return placeholder("Yield médio por estado", "colunas ausentes: state, yield_kg_ha")
	}

	states, vals := topStateMeans(t, maxStateBars)
	if len(states) == 0 {
		return placeholder("Yield médio por estado", "sem pares state/yield completos")
	}

	p := plot.New()
	p.Title.Text = "Yield médio por estado"
	p.Y.Label.Text = "yield_kg_ha"
	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return placeholder("Yield médio por estado", err.Error())
	}
	p.Add(bars)
	p.NominalX(states...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return render(p)
}

// histColumns returns the members of the canonical numeric field list that
// are present and numeric in the table, in list order. Stray numeric columns
// from an upload do not change the histogram artifact.
func histColumns(t *dataset.Table) []string {
	var cols []string
	for _, c := range dataset.NumericFields {
		if t.HasColumn(c) && t.IsNumericColumn(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// HistNumeric tiles one histogram per canonical numeric field.
func (b *ChartBuilder) HistNumeric(t *dataset.Table) []byte {
	cols := histColumns(t)
	if len(cols) == 0 {
		return placeholder("Distribuição dos campos numéricos", "sem colunas numéricas")
	}

	const tileCols = 3
	tileRows := (len(cols) + tileCols - 1) / tileCols

	plots := make([][]*plot.Plot, tileRows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, tileCols)
	}
	for i, col := range cols {
		p := plot.New()
		p.Title.Text = col
		vals := t.FloatColumn(col)
		h, err := plotter.NewHist(plotter.Values(vals), 16)
		if err == nil {
			p.Add(h)
		}
		plots[i/tileCols][i%tileCols] = p
	}

	img := vgimg.New(12*vg.Inch, vg.Length(tileRows)*3.5*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: tileRows, Cols: tileCols,
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}

	var buf bytes.Buffer
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(&buf); err != nil {
		return placeholder("Distribuição dos campos numéricos", err.Error())
	}
	return buf.Bytes()
}

// corrGrid adapts a correlation matrix to the heat map's grid interface.
type corrGrid struct {
	names []string
	vals  [][]float64
}

func (g corrGrid) Dims() (c, r int)   { return len(g.names), len(g.names) }
func (g corrGrid) Z(c, r int) float64 { return g.vals[r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// CorrMatrix renders pairwise Pearson correlations between numeric columns
// as a heat map. Each pair is computed over its complete cases.
func (b *ChartBuilder) CorrMatrix(t *dataset.Table) []byte {
	var cols []string
	for _, c := range t.NumericColumns() {
		if c == "id" {
			continue
		}
		cols = append(cols, c)
	}
	if len(cols) < 2 {
		return placeholder("Matriz de correlação", "menos de duas colunas numéricas")
	}

	n := len(cols)
	vals := make([][]float64, n)
	for i := range vals {
		vals[i] = make([]float64, n)
		vals[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := pairwiseCorrelation(t, cols[i], cols[j])
			vals[i][j], vals[j][i] = r, r
		}
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid{names: cols, vals: vals}, cm.Palette(255))
	hm.Min, hm.Max = -1, 1

	p := plot.New()
	p.Title.Text = "Matriz de correlação"
	p.Add(hm)
	p.NominalX(cols...)
	p.NominalY(cols...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return render(p)
}

func pairwiseCorrelation(t *dataset.Table, a, b string) float64 {
	var xs, ys []float64
	for _, r := range t.Rows {
		x, xok := dataset.AsFloat(r[a])
		y, yok := dataset.AsFloat(r[b])
		if xok && yok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// BoxBySeasonMacro renders a box plot of yield per macro season.
func (b *ChartBuilder) BoxBySeasonMacro(t *dataset.Table) []byte {
	if !t.HasColumn("season_macro") || !t.HasColumn("yield_kg_ha") {
		return placeholder("Yield por macro-estação", "colunas ausentes: season_macro, yield_kg_ha")
	}

	groups := make(map[string]plotter.Values)
	for _, r := range t.Rows {
		s, sok := dataset.AsString(r["season_macro"])
		y, yok := dataset.AsFloat(r["yield_kg_ha"])
		if !sok || s == "" || !yok {
			continue
		}
		groups[s] = append(groups[s], y)
	}
	if len(groups) == 0 {
		return placeholder("Yield por macro-estação", "sem pares season_macro/yield completos")
	}

	seasons := make([]string, 0, len(groups))
	for s := range groups {
		seasons = append(seasons, s)
	}
	sort.Strings(seasons)

	p := plot.New()
	p.Title.Text = "Yield por macro-estação"
	p.Y.Label.Text = "yield_kg_ha"
	for i, s := range seasons {
		box, err := plotter.NewBoxPlot(vg.Points(40), float64(i), groups[s])
		if err != nil {
			return placeholder("Yield por macro-estação", err.Error())
		}
		p.Add(box)
	}
	p.NominalX(seasons...)
	return render(p)
}

// ProductionByYear renders total production over time for the configured
// crop, or for all rows when no stored crop matches it.
func (b *ChartBuilder) ProductionByYear(t *dataset.Table) []byte {
	years, totals, matched := b.AggregateProduction(t, b.ChartCrop)
	if len(years) == 0 {
		return placeholder("Produção por ano", "colunas ausentes ou vazias: year, production")
	}

	title := "Produção por ano"
	if matched != "" {
		title = fmt.Sprintf("Produção por ano (%s)", matched)
	}

	pts := make(plotter.XYs, len(years))
	for i := range years {
		pts[i] = plotter.XY{X: float64(years[i]), Y: totals[i]}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Ano"
	p.Y.Label.Text = "Produção total"
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return placeholder(title, err.Error())
	}
	line.Width = vg.Points(1)
	p.Add(line, points)
	return render(p)
}

// AggregateProduction sums production per year, filtered to the fuzzy-matched
// crop when one matches the stored values. Returns ascending years, their
// totals, and the matched stored crop name ("" when unfiltered).
func (b *ChartBuilder) AggregateProduction(t *dataset.Table, crop string) (years []int64, totals []float64, matched string) {
	if !t.HasColumn("year") || !t.HasColumn("production") {
		return nil, nil, ""
	}

	if crop != "" && t.HasColumn("crop") {
		seen := make(map[string]bool)
		var stored []string
		for _, r := range t.Rows {
			if v, ok := dataset.AsString(r["crop"]); ok && v != "" && !seen[v] {
				seen[v] = true
				stored = append(stored, v)
			}
		}
		sort.Strings(stored)
		if m, ok := b.Matcher.Match(crop, stored); ok {
			matched = m
		}
	}

	sums := make(map[int64]float64)
	for _, r := range t.Rows {
		if matched != "" {
			if v, _ := dataset.AsString(r["crop"]); v != matched {
				continue
			}
		}
		y, yok := dataset.AsInt(r["year"])
		prod, pok := dataset.AsFloat(r["production"])
		if !yok || !pok {
			continue
		}
		sums[y] += prod
	}
	if len(sums) == 0 {
		return nil, nil, matched
	}

	for y := range sums {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
	totals = make([]float64, len(years))
	for i, y := range years {
		totals[i] = sums[y]
	}
	return years, totals, matched
}

// ForecastChart renders the prediction sequence as a line chart.
func ForecastChart(years []int64, values []float64) []byte {
	if len(years) == 0 || len(years) != len(values) {
		return placeholder("Previsão de yield", "sem pontos de previsão")
	}
	pts := make(plotter.XYs, len(years))
	for i := range years {
		pts[i] = plotter.XY{X: float64(years[i]), Y: values[i]}
	}

	p := plot.New()
	p.Title.Text = "Previsão de yield"
	p.X.Label.Text = "Ano"
	p.Y.Label.Text = "yield_kg_ha previsto"
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return placeholder("Previsão de yield", err.Error())
	}
	line.Width = vg.Points(1)
	p.Add(line, points)
	return render(p)
}

// placeholder produces a minimal chart naming what was missing, so every
// chart key always carries a non-empty artifact.
func placeholder(title, reason string) []byte {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = reason
	return render(p)
}

func render(p *plot.Plot) []byte {
	var buf bytes.Buffer
	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		monitoring.Logf("chart render setup failed: %v", err)
		return nil
	}
	if _, err := wt.WriteTo(&buf); err != nil {
		monitoring.Logf("chart render failed: %v", err)
		return nil
	}
	return buf.Bytes()
}
