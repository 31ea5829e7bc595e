package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/complexity"
)

const (
	chartWidth  = "100%"
	chartHeight = "420px"
	maxPlotBars = 40
)

// WritePlot renders the batch as a standalone HTML page with the rank
// distribution, the per-unit maximum complexity and per-unit source lines.
func WritePlot(w io.Writer, batch *BatchReport) error {
	page := components.NewPage()
	page.PageTitle = "gitradar: " + batch.Repo

	page.AddCharts(
		rankChart(batch.Summary),
		unitChart(batch, "Maximum complexity per unit", "Max CC", func(r *MetricReport) (int, bool) {
			if r.Complexity == nil {
				return 0, false
			}

			return r.Complexity.Max, true
		}),
		unitChart(batch, "Source lines per unit", "Source lines", func(r *MetricReport) (int, bool) {
			if r.Size == nil {
				return 0, false
			}

			return r.Size.Source, true
		}),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: title,
		Width:     chartWidth,
		Height:    chartHeight,
	})
}

func rankChart(s Summary) *charts.Bar {
	ranks := complexity.Ranks()
	labels := make([]string, 0, len(ranks))
	values := make([]opts.BarData, 0, len(ranks))

	for _, r := range ranks {
		labels = append(labels, string(r))
		values = append(values, opts.BarData{Value: s.RankDistribution[r]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("Rank distribution"),
		charts.WithTitleOpts(opts.Title{Title: "Complexity rank distribution", Subtitle: "functions and methods per rank"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	bar.SetXAxis(labels).AddSeries("Functions", values)

	return bar
}

func unitChart(batch *BatchReport, title, series string, value func(*MetricReport) (int, bool)) *charts.Bar {
	var (
		labels []string
		values []opts.BarData
	)

	for _, r := range batch.Units {
		if len(labels) == maxPlotBars {
			break
		}

		v, ok := value(r)
		if !ok {
			continue
		}

		labels = append(labels, r.UnitID)
		values = append(values, opts.BarData{Value: v})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 30}}),
	)
	bar.SetXAxis(labels).AddSeries(series, values)

	return bar
}
