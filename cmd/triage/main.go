// Command triage analyzes a Wavefront OBJ scene and prints which objects
// fall below the resolved volume or occlusion cutoff. It is the offline
// counterpart to the HTTP service: same engine, text output.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/banshee-data/parts.report/internal/config"
	"github.com/banshee-data/parts.report/internal/db"
	"github.com/banshee-data/parts.report/internal/triage"
	"github.com/banshee-data/parts.report/internal/triage/report"
)

var (
	scenePath   = flag.String("scene", "", "Path to the Wavefront OBJ scene (required)")
	mode        = flag.String("mode", "volume", "Analysis mode: volume, occlusion, or combine")
	method      = flag.String("method", "percentile", "Threshold method: reference, percent_largest, percent_average, absolute, percentile, occlusion")
	reference   = flag.String("reference", "", "Reference object ID for the reference method")
	percentage  = flag.Float64("percent", 10, "Percentage for percent_largest / percent_average / reference")
	percentile  = flag.Float64("percentile", 80, "Percentile for the percentile method")
	absolute    = flag.Float64("absolute", 0, "Absolute volume cutoff in cubic meters")
	sensitivity = flag.Float64("sensitivity", 0, "Occlusion sensitivity override (0 = tuning default)")
	samples     = flag.Int("samples", 0, "Occlusion fine sample count override (0 = tuning default)")
	tuningPath  = flag.String("tuning", "", "Path to a tuning config JSON")
	dbPath      = flag.String("db", "", "Run database path; empty skips persistence")
	reportPath  = flag.String("report", "", "Write an HTML volume histogram to this path")
	statsOnly   = flag.Bool("stats", false, "Print distribution statistics and suggestions, then exit")
	asJSON      = flag.Bool("json", false, "Emit the full result as JSON instead of text")
)

func main() {
	flag.Parse()

	if *scenePath == "" {
		log.Fatal("A scene file is required (-scene path/to/scene.obj)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scene, err := triage.LoadOBJScene(*scenePath)
	if err != nil {
		log.Fatalf("failed to load scene: %v", err)
	}

	tuning := config.EmptyTuning()
	if *tuningPath != "" {
		tuning, err = config.LoadTuning(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	req := buildRequest(tuning)
	engine := triage.NewEngine(scene, tuning.GetWorkers())

	if *statsOnly {
		stats, err := engine.AnalyzeScene(ctx)
		if err != nil {
			log.Fatalf("analysis failed: %v", err)
		}
		printStats(os.Stdout, stats)
		writeReport(stats, nil)
		return
	}

	var store *db.DB
	if *dbPath != "" {
		store, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open run database: %v", err)
		}
		defer store.Close()
	}
	var handle *triage.RunManager
	if store != nil {
		handle = triage.NewRunManager(store.DB, engine)
	} else {
		handle = triage.NewRunManager(nil, engine)
	}

	runID, res, err := handle.Execute(ctx, req)
	if err != nil {
		log.Fatalf("triage failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("failed to encode result: %v", err)
		}
	} else {
		printResult(os.Stdout, runID, res, store != nil)
	}
	writeReport(res.Stats, res.Threshold)
}

// buildRequest merges tuning defaults with the command line flags.
func buildRequest(tuning *config.Tuning) triage.TriageRequest {
	req := triage.RequestFromTuning(tuning)
	req.Mode = triage.TriageMode(*mode)
	req.Threshold = triage.ThresholdSpec{
		Method:         triage.ThresholdMethod(*method),
		ReferenceID:    *reference,
		Percentage:     *percentage,
		AbsoluteVolume: *absolute,
		Percentile:     *percentile,
	}
	if *sensitivity > 0 {
		req.Threshold.Sensitivity = *sensitivity
		req.Occlusion.Sensitivity = *sensitivity
	}
	if *samples > 0 {
		req.Threshold.SampleCount = *samples
		req.Occlusion.FineSamples = *samples
	}
	return req
}

func printStats(w io.Writer, stats *triage.DistributionStats) {
	fmt.Fprintf(w, "Objects: %d valid, %d skipped\n", stats.ValidObjects, stats.InvalidObjects)
	fmt.Fprintf(w, "Volume range: %s .. %s\n", triage.FormatVolume(stats.Min), triage.FormatVolume(stats.Max))
	fmt.Fprintf(w, "Mean %s, median %s, stddev %s\n",
		triage.FormatVolume(stats.Mean), triage.FormatVolume(stats.Median), triage.FormatVolume(stats.StdDev))
	ps := make([]int, 0, len(stats.Percentiles))
	for p := range stats.Percentiles {
		ps = append(ps, p)
	}
	sort.Ints(ps)
	for _, p := range ps {
		fmt.Fprintf(w, "  p%-3d %s\n", p, triage.FormatVolume(stats.Percentiles[p]))
	}
	if len(stats.Gaps) > 0 {
		fmt.Fprintln(w, "Natural gaps:")
		for _, g := range stats.Gaps {
			fmt.Fprintf(w, "  %.1fx between %s and %s (threshold %s)\n",
				g.Ratio, triage.FormatVolume(g.Lower), triage.FormatVolume(g.Upper), triage.FormatVolume(g.Threshold))
		}
	}
	if len(stats.Suggestions) > 0 {
		fmt.Fprintln(w, "Suggested cutoffs:")
		for _, s := range stats.Suggestions {
			impact := stats.ImpactForCutoff(s.Cutoff)
			fmt.Fprintf(w, "  %-16s %s  (%d objects, %.1f%%): %s\n",
				s.Label, triage.FormatVolume(s.Cutoff), impact.AffectedCount, impact.PercentOfScene, s.Reason)
		}
	}
	for _, skipped := range stats.InvalidReasons {
		fmt.Fprintf(w, "skipped %s: %s\n", skipped.ObjectID, skipped.Reason)
	}
}

func printResult(w io.Writer, runID string, res *triage.TriageResult, persisted bool) {
	if persisted {
		fmt.Fprintf(w, "Run %s\n", runID)
	}
	if res.Threshold != nil && res.Threshold.HasCutoff {
		fmt.Fprintf(w, "Cutoff: %s (%s)\n", triage.FormatVolume(res.Threshold.Cutoff), res.Threshold.Method)
	}
	fmt.Fprintf(w, "Collect %d / keep %d of %d valid objects (%d skipped, %.0fms)\n",
		res.Summary.CollectCount, res.Summary.KeepCount,
		res.Summary.ObjectsValid, res.Summary.ObjectsSkipped,
		float64(res.Summary.Elapsed.Milliseconds()))
	if res.Summary.CoarseRays+res.Summary.FineRays > 0 {
		fmt.Fprintf(w, "Rays: %d coarse, %d fine, %d early exits\n",
			res.Summary.CoarseRays, res.Summary.FineRays, res.Summary.EarlyExits)
	}
	for _, o := range res.Partition.Collect {
		fmt.Fprintf(w, "  collect %s\n", o)
	}
	for _, skipped := range res.Partition.Skipped {
		fmt.Fprintf(w, "  skipped %s: %s\n", skipped.ObjectID, skipped.Reason)
	}
}

func writeReport(stats *triage.DistributionStats, threshold *triage.ThresholdResult) {
	if *reportPath == "" {
		return
	}
	f, err := os.Create(*reportPath)
	if err != nil {
		log.Fatalf("failed to create report file: %v", err)
	}
	defer f.Close()
	if err := report.RenderHistogram(f, stats, threshold); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	log.Printf("wrote %s", *reportPath)
}
