package output

import (
	"fmt"
	"io"
	"os"

	"github.com/contribtools/ghreport/internal/report"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const chartTopN = 20

func writeChartFile(path string, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeChart(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeChart(out io.Writer, rep *report.Report) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("Contributions: %s", rep.Repository.Name),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    rep.Repository.Name,
			Subtitle: fmt.Sprintf("Top contributors by commit count, generated %s", rep.Summary.GeneratedAt),
		}),
	)

	xAxis := make([]string, 0, chartTopN)
	series := make([]opts.BarData, 0, chartTopN)
	for i, record := range rep.Contributors {
		if i >= chartTopN {
			break
		}
		xAxis = append(xAxis, record.Username)
		series = append(series, opts.BarData{Value: record.Contributions})
	}

	bar.SetXAxis(xAxis).AddSeries("contributions", series)
	return bar.Render(out)
}
