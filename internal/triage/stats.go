package triage

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultGapRatio is the multiplicative jump between adjacent sorted
	// volumes treated as a natural size-class boundary.
	DefaultGapRatio = 3.0

	// maxReportedGaps caps how many natural gaps a snapshot reports,
	// largest ratio first.
	maxReportedGaps = 5
)

// displayPercentiles is the canonical set precomputed for reporting and
// suggestion generation. Arbitrary percentiles remain available through
// Percentile.
var displayPercentiles = []int{10, 20, 25, 50, 75, 80, 90}

// Gap is a natural break in the sorted volume sequence: an adjacent pair
// whose ratio meets the gap threshold. Threshold is the geometric mean of
// the pair, the suggested cutoff sitting inside the break.
type Gap struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Ratio     float64 `json:"ratio"`
	Threshold float64 `json:"threshold"`
}

// Suggestion is one ranked threshold recommendation.
type Suggestion struct {
	Label  string          `json:"label"`
	Method ThresholdMethod `json:"method"`
	Value  float64         `json:"value"`
	Cutoff float64         `json:"cutoff"`
	Reason string          `json:"reason"`
}

// DistributionStats is an immutable snapshot of the scene volume
// distribution. All fields are pure functions of the input record set; a
// fresh snapshot replaces the old one after every analysis pass.
type DistributionStats struct {
	TotalObjects   int           `json:"total_objects"`
	ValidObjects   int           `json:"valid_objects"`
	InvalidObjects int           `json:"invalid_objects"`
	InvalidReasons []ObjectError `json:"invalid_reasons,omitempty"`

	Min    float64 `json:"min_volume"`
	Max    float64 `json:"max_volume"`
	Mean   float64 `json:"mean_volume"`
	Median float64 `json:"median_volume"`
	StdDev float64 `json:"std_dev"`

	Percentiles map[int]float64 `json:"percentiles"`
	Gaps        []Gap           `json:"natural_gaps,omitempty"`
	Suggestions []Suggestion    `json:"suggestions,omitempty"`

	sorted []VolumeRecord // valid records, ascending volume
}

// NewDistributionStats aggregates the current volume records into a
// snapshot. Invalid records are excluded from every statistic but counted
// and reported. gapRatio <= 1 falls back to DefaultGapRatio.
func NewDistributionStats(records []VolumeRecord, gapRatio float64) *DistributionStats {
	if gapRatio <= 1 {
		gapRatio = DefaultGapRatio
	}

	s := &DistributionStats{
		TotalObjects: len(records),
		Percentiles:  make(map[int]float64, len(displayPercentiles)),
	}

	for _, rec := range records {
		if !rec.Valid {
			s.InvalidObjects++
			s.InvalidReasons = append(s.InvalidReasons, ObjectError{
				ObjectID: rec.Object.ID,
				Reason:   rec.Reason,
			})
			continue
		}
		s.sorted = append(s.sorted, rec)
	}
	s.ValidObjects = len(s.sorted)
	if s.ValidObjects == 0 {
		return s
	}

	sort.Slice(s.sorted, func(i, j int) bool {
		if s.sorted[i].Volume != s.sorted[j].Volume {
			return s.sorted[i].Volume < s.sorted[j].Volume
		}
		// Stable order for equal volumes keeps snapshots reproducible.
		return s.sorted[i].Object.ID < s.sorted[j].Object.ID
	})

	vols := make([]float64, len(s.sorted))
	for i, rec := range s.sorted {
		vols[i] = rec.Volume
	}

	s.Min = vols[0]
	s.Max = vols[len(vols)-1]
	s.Mean = stat.Mean(vols, nil)
	s.StdDev = stat.PopStdDev(vols, nil)
	s.Median = s.Percentile(50)

	for _, p := range displayPercentiles {
		s.Percentiles[p] = s.Percentile(float64(p))
	}

	s.Gaps = detectGaps(vols, gapRatio)
	s.Suggestions = buildSuggestions(s)
	return s
}

// Percentile returns the p-th percentile of the valid volumes using
// linear interpolation between order statistics: index = p/100 * (n-1),
// value blended between the two bracketing sorted entries. p outside
// [0,100] is clamped; an empty snapshot returns 0.
func (s *DistributionStats) Percentile(p float64) float64 {
	n := len(s.sorted)
	if n == 0 {
		return 0
	}
	p = math.Min(100, math.Max(0, p))

	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi > n-1 {
		hi = n - 1
	}
	frac := idx - float64(lo)
	return s.sorted[lo].Volume + frac*(s.sorted[hi].Volume-s.sorted[lo].Volume)
}

// CountAtOrBelow returns how many valid objects have volume <= cutoff.
func (s *DistributionStats) CountAtOrBelow(cutoff float64) int {
	return sort.Search(len(s.sorted), func(i int) bool {
		return s.sorted[i].Volume > cutoff
	})
}

// Records returns the valid records in ascending volume order. The slice
// is shared; callers must not mutate it.
func (s *DistributionStats) Records() []VolumeRecord { return s.sorted }

// detectGaps scans the sorted sequence once for adjacent pairs whose
// ratio meets minRatio. Zero lower volumes cannot occur: records are
// validated strictly positive before they reach the snapshot.
func detectGaps(sorted []float64, minRatio float64) []Gap {
	var gaps []Gap
	for i := 0; i+1 < len(sorted); i++ {
		lo, hi := sorted[i], sorted[i+1]
		ratio := hi / lo
		if ratio >= minRatio {
			gaps = append(gaps, Gap{
				Lower:     lo,
				Upper:     hi,
				Ratio:     ratio,
				Threshold: math.Sqrt(lo * hi),
			})
		}
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Ratio != gaps[j].Ratio {
			return gaps[i].Ratio > gaps[j].Ratio
		}
		return gaps[i].Lower < gaps[j].Lower
	})
	if len(gaps) > maxReportedGaps {
		gaps = gaps[:maxReportedGaps]
	}
	return gaps
}

// buildSuggestions ranks threshold recommendations: the largest natural
// gap when one exists, then the 20th/80th percentile boundaries, then the
// percentage-of-largest fallback.
func buildSuggestions(s *DistributionStats) []Suggestion {
	var out []Suggestion

	if len(s.Gaps) > 0 {
		g := s.Gaps[0]
		out = append(out, Suggestion{
			Label:  "natural_gap",
			Method: MethodAbsolute,
			Value:  g.Ratio,
			Cutoff: g.Threshold,
			Reason: "largest size jump in the distribution - likely breakpoint between part classes",
		})
	}

	out = append(out,
		Suggestion{
			Label:  "cad_cleanup",
			Method: MethodPercentile,
			Value:  80,
			Cutoff: s.Percentiles[80],
			Reason: "collect smallest 80% - typical for CAD imports with many tiny hardware parts",
		},
		Suggestion{
			Label:  "conservative",
			Method: MethodPercentile,
			Value:  20,
			Cutoff: s.Percentiles[20],
			Reason: "collect smallest 20% - conservative starting point for unknown data",
		},
		Suggestion{
			Label:  "relative_small",
			Method: MethodPercentLargest,
			Value:  5,
			Cutoff: s.Max * 0.05,
			Reason: "5% of the largest object - removes relatively tiny parts at any scale",
		},
	)
	return out
}

// Impact previews the effect of a cutoff without mutating anything.
type Impact struct {
	AffectedCount   int      `json:"affected_count"`
	AffectedIDs     []string `json:"affected_ids,omitempty"`
	TotalPolygons   int      `json:"total_polygons"`
	PercentOfScene  float64  `json:"percentage_of_scene"`
	MinVolume       float64  `json:"min_volume"`
	MaxVolume       float64  `json:"max_volume"`
}

// ImpactForCutoff reports which valid objects fall strictly below cutoff
// and what removing them would free, polygon-wise.
func (s *DistributionStats) ImpactForCutoff(cutoff float64) Impact {
	var im Impact
	for _, rec := range s.sorted {
		if rec.Volume >= cutoff {
			break
		}
		if im.AffectedCount == 0 {
			im.MinVolume = rec.Volume
		}
		im.MaxVolume = rec.Volume
		im.AffectedCount++
		im.AffectedIDs = append(im.AffectedIDs, rec.Object.ID)
		im.TotalPolygons += rec.Object.PolyCount()
	}
	if s.TotalObjects > 0 {
		im.PercentOfScene = float64(im.AffectedCount) / float64(s.TotalObjects) * 100
	}
	return im
}
