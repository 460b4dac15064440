// Package report renders HTML views of triage analysis results using
// go-echarts. These are debugging/reporting surfaces for a browser, not
// part of the JSON API.
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/parts.report/internal/triage"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// histogramBins is the number of log-spaced volume buckets.
const histogramBins = 24

// RenderHistogram writes an HTML bar chart of the scene volume
// distribution. The subtitle carries the resolved cutoff and the largest
// natural gap so the chart is readable on its own.
func RenderHistogram(w io.Writer, stats *triage.DistributionStats, threshold *triage.ThresholdResult) error {
	if stats == nil || stats.ValidObjects == 0 {
		return fmt.Errorf("no valid volumes to chart")
	}

	labels, counts := binVolumes(stats)

	subtitle := fmt.Sprintf("%d objects, median %s, mean %s",
		stats.ValidObjects, triage.FormatVolume(stats.Median), triage.FormatVolume(stats.Mean))
	if len(stats.Gaps) > 0 {
		g := stats.Gaps[0]
		subtitle += fmt.Sprintf(" | largest gap %.1fx at %s", g.Ratio, triage.FormatVolume(g.Threshold))
	}
	if threshold != nil && threshold.HasCutoff {
		subtitle += fmt.Sprintf(" | cutoff %s (%s)", triage.FormatVolume(threshold.Cutoff), threshold.Method)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Scene Volume Distribution",
			Width:      "1200px",
			Height:     "600px",
			AssetsHost: echartsAssetsPrefix,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Scene Volume Distribution", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "volume bucket", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "objects"}),
	)
	bar.SetXAxis(labels).
		AddSeries("objects", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)
	return page.Render(w)
}

// binVolumes buckets the sorted volumes into log-spaced bins. Volumes are
// validated strictly positive, so the log transform is always defined.
func binVolumes(stats *triage.DistributionStats) ([]string, []opts.BarData) {
	records := stats.Records()

	logMin := math.Log10(stats.Min)
	logMax := math.Log10(stats.Max)
	span := logMax - logMin
	if span == 0 {
		// All volumes equal: one bucket holds everything.
		return []string{triage.FormatVolume(stats.Min)},
			[]opts.BarData{{Value: len(records)}}
	}

	counts := make([]int, histogramBins)
	for _, rec := range records {
		idx := int((math.Log10(rec.Volume) - logMin) / span * float64(histogramBins))
		if idx >= histogramBins {
			idx = histogramBins - 1
		}
		counts[idx]++
	}

	labels := make([]string, histogramBins)
	data := make([]opts.BarData, histogramBins)
	for i := 0; i < histogramBins; i++ {
		lo := math.Pow(10, logMin+span*float64(i)/histogramBins)
		labels[i] = triage.FormatVolume(lo)
		data[i] = opts.BarData{Value: counts[i]}
	}
	return labels, data
}
