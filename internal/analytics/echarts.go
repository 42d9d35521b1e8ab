package analytics

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderProductionHTML writes an interactive line chart of yearly production
// totals. This backs the debug chart endpoint; the PNG chart set remains the
// API contract.
func RenderProductionHTML(w io.Writer, crop string, years []int64, totals []float64) error {
	subtitle := "todas as culturas"
	if crop != "" {
		subtitle = "cultura: " + crop
	}

	xAxis := make([]string, len(years))
	data := make([]opts.LineData, len(totals))
	for i := range years {
		xAxis[i] = fmt.Sprintf("%d", years[i])
		data[i] = opts.LineData{Value: totals[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Produção por ano", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Produção por ano", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Ano"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Produção total"}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("produção", data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return line.Render(w)
}
