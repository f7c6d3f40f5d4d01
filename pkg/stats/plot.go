package stats

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const fullZoomPct = 100

// GenerateWeeklyPlot writes an interactive HTML chart of weekly activity:
// commit volume as bars with unique author and credited contributor counts
// overlaid as lines.
func GenerateWeeklyPlot(weekly []WeeklyStats, writer io.Writer) error {
	chart := GenerateWeeklyChart(weekly)

	return renderChart(chart, writer)
}

// GenerateRollingPlot writes an interactive HTML chart of rolling-window
// contributor counts over time.
func GenerateRollingPlot(rolling []RollingStats, writer io.Writer) error {
	chart := GenerateRollingChart(rolling)

	return renderChart(chart, writer)
}

func renderChart(chart components.Charter, writer io.Writer) error {
	if r, ok := chart.(interface{ Render(io.Writer) error }); ok {
		err := r.Render(writer)
		if err != nil {
			return fmt.Errorf("render chart: %w", err)
		}

		return nil
	}

	return errors.New("chart does not support Render") //nolint:err113 // dynamic error
}

// GenerateWeeklyChart creates the weekly activity chart object.
func GenerateWeeklyChart(weekly []WeeklyStats) components.Charter {
	xLabels := make([]string, len(weekly))
	commitData := make([]opts.BarData, len(weekly))
	authorData := make([]opts.LineData, len(weekly))
	creditedData := make([]opts.LineData, len(weekly))

	for i, w := range weekly {
		xLabels[i] = w.WeekStart.Format(time.DateOnly)
		commitData[i] = opts.BarData{Value: w.TotalCommits}
		authorData[i] = opts.LineData{Value: w.UniqueAuthors()}
		creditedData[i] = opts.LineData{Value: w.UniqueCredited()}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Weekly Repository Activity",
			Subtitle: "Commits per ISO week with contributor counts",
			Left:     "2%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "5px",
			Left: "40%",
		}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Week"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Commits"}),
	)
	bar.SetXAxis(xLabels)
	bar.AddSeries("Commits", commitData)

	line := charts.NewLine()
	line.SetXAxis(xLabels)
	line.AddSeries("Unique authors", authorData)
	line.AddSeries("Credited contributors", creditedData)

	bar.Overlap(line)

	return bar
}

// GenerateRollingChart creates the rolling-window contributor chart object.
func GenerateRollingChart(rolling []RollingStats) components.Charter {
	xLabels := make([]string, len(rolling))
	authorData := make([]opts.LineData, len(rolling))
	creditedData := make([]opts.LineData, len(rolling))
	commitData := make([]opts.LineData, len(rolling))

	for i, r := range rolling {
		xLabels[i] = r.WindowStart.Format(time.DateOnly)
		authorData[i] = opts.LineData{Value: r.UniqueAuthors}
		creditedData[i] = opts.LineData{Value: r.UniqueCredited}
		commitData[i] = opts.LineData{Value: r.TotalCommits}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Rolling Contributor Activity",
			Subtitle: "Deduplicated counts per trailing window",
			Left:     "2%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "5px",
			Left: "40%",
		}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Window start"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
	)
	line.SetXAxis(xLabels)
	line.AddSeries("Unique authors", authorData)
	line.AddSeries("Credited contributors", creditedData)
	line.AddSeries("Commits", commitData)

	return line
}
