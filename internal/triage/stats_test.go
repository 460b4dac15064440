package triage

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// recordsWithVolumes builds valid records carrying the given volumes,
// backed by unit cubes so polygon counts are well defined.
func recordsWithVolumes(t *testing.T, volumes ...float64) []VolumeRecord {
	t.Helper()
	records := make([]VolumeRecord, len(volumes))
	for i, v := range volumes {
		id := string(rune('a' + i))
		records[i] = VolumeRecord{
			Object: cubeObject(id, r3.Vec{}, 1),
			Volume: v,
			Valid:  true,
		}
	}
	return records
}

// tenObjectStats is the canonical fixture: nine small parts and one big
// one, with a clean 11x jump between them.
func tenObjectStats(t *testing.T) *DistributionStats {
	t.Helper()
	return NewDistributionStats(recordsWithVolumes(t, 1, 2, 3, 4, 5, 6, 7, 8, 9, 100), 0)
}

func TestDistributionStatsBasics(t *testing.T) {
	s := tenObjectStats(t)

	if s.TotalObjects != 10 || s.ValidObjects != 10 || s.InvalidObjects != 0 {
		t.Fatalf("counts = %d/%d/%d", s.TotalObjects, s.ValidObjects, s.InvalidObjects)
	}
	if s.Min != 1 || s.Max != 100 {
		t.Errorf("range = [%v,%v]", s.Min, s.Max)
	}
	if math.Abs(s.Mean-14.5) > 1e-9 {
		t.Errorf("Mean = %v, want 14.5", s.Mean)
	}
	if math.Abs(s.Median-5.5) > 1e-9 {
		t.Errorf("Median = %v, want 5.5", s.Median)
	}
}

func TestPercentileLinearInterpolation(t *testing.T) {
	s := tenObjectStats(t)

	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 5.5},
		{80, 8.2},   // index 7.2 between 8 and 9
		{90, 18.1},  // index 8.1 between 9 and 100
		{100, 100},
		{-5, 1},    // clamped
		{120, 100}, // clamped
	}
	for _, c := range cases {
		if got := s.Percentile(c.p); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, want %v", c.p, got, c.want)
		}
	}

	empty := NewDistributionStats(nil, 0)
	if got := empty.Percentile(50); got != 0 {
		t.Errorf("empty Percentile = %v", got)
	}
}

func TestPercentileMonotonic(t *testing.T) {
	s := tenObjectStats(t)
	prev := s.Percentile(0)
	for p := 1.0; p <= 100; p++ {
		cur := s.Percentile(p)
		if cur < prev {
			t.Fatalf("Percentile(%v) = %v < Percentile(%v) = %v", p, cur, p-1, prev)
		}
		prev = cur
	}
}

func TestCountAtOrBelow(t *testing.T) {
	s := tenObjectStats(t)
	cases := []struct {
		cutoff float64
		want   int
	}{
		{0.5, 0},
		{1, 1},
		{9, 9},
		{50, 9},
		{100, 10},
	}
	for _, c := range cases {
		if got := s.CountAtOrBelow(c.cutoff); got != c.want {
			t.Errorf("CountAtOrBelow(%v) = %d, want %d", c.cutoff, got, c.want)
		}
	}
}

func TestDetectGaps(t *testing.T) {
	s := tenObjectStats(t)

	if len(s.Gaps) != 1 {
		t.Fatalf("got %d gaps, want 1: %+v", len(s.Gaps), s.Gaps)
	}
	g := s.Gaps[0]
	if g.Lower != 9 || g.Upper != 100 {
		t.Errorf("gap between %v and %v, want 9 and 100", g.Lower, g.Upper)
	}
	if math.Abs(g.Ratio-100.0/9.0) > 1e-9 {
		t.Errorf("gap ratio = %v", g.Ratio)
	}
	if math.Abs(g.Threshold-30) > 1e-9 {
		t.Errorf("gap threshold = %v, want 30 (geometric mean)", g.Threshold)
	}

	// A gentle distribution has no gaps at the default ratio.
	smooth := NewDistributionStats(recordsWithVolumes(t, 1, 2, 4, 8), 0)
	if len(smooth.Gaps) != 0 {
		t.Errorf("smooth distribution reported gaps: %+v", smooth.Gaps)
	}
	// But a lower ratio finds them.
	loose := NewDistributionStats(recordsWithVolumes(t, 1, 2, 4, 8), 2)
	if len(loose.Gaps) != 3 {
		t.Errorf("got %d gaps at ratio 2, want 3", len(loose.Gaps))
	}
}

func TestSuggestions(t *testing.T) {
	s := tenObjectStats(t)

	if len(s.Suggestions) < 4 {
		t.Fatalf("got %d suggestions", len(s.Suggestions))
	}
	if s.Suggestions[0].Label != "natural_gap" {
		t.Errorf("first suggestion = %q, want natural_gap", s.Suggestions[0].Label)
	}
	if math.Abs(s.Suggestions[0].Cutoff-30) > 1e-9 {
		t.Errorf("natural_gap cutoff = %v, want 30", s.Suggestions[0].Cutoff)
	}

	// cad_cleanup collects the smallest 80%: 8 of the 10 objects.
	for _, sug := range s.Suggestions {
		if sug.Label == "cad_cleanup" {
			im := s.ImpactForCutoff(sug.Cutoff)
			if im.AffectedCount != 8 {
				t.Errorf("cad_cleanup affects %d objects, want 8", im.AffectedCount)
			}
		}
	}
}

func TestImpactForCutoff(t *testing.T) {
	s := tenObjectStats(t)

	im := s.ImpactForCutoff(5)
	if im.AffectedCount != 4 {
		t.Fatalf("AffectedCount = %d, want 4 (strictly below)", im.AffectedCount)
	}
	if im.MinVolume != 1 || im.MaxVolume != 4 {
		t.Errorf("affected range = [%v,%v]", im.MinVolume, im.MaxVolume)
	}
	if math.Abs(im.PercentOfScene-40) > 1e-9 {
		t.Errorf("PercentOfScene = %v, want 40", im.PercentOfScene)
	}
	if im.TotalPolygons != 4*12 {
		t.Errorf("TotalPolygons = %d, want 48", im.TotalPolygons)
	}

	if got := s.ImpactForCutoff(0.5).AffectedCount; got != 0 {
		t.Errorf("cutoff below min affects %d objects", got)
	}
}

func TestInvalidRecordsExcluded(t *testing.T) {
	records := recordsWithVolumes(t, 1, 2, 3)
	records = append(records, VolumeRecord{
		Object: planarObject("flat"),
		Reason: "zero volume (possibly 2D/planar geometry)",
	})
	s := NewDistributionStats(records, 0)

	if s.TotalObjects != 4 || s.ValidObjects != 3 || s.InvalidObjects != 1 {
		t.Fatalf("counts = %d/%d/%d", s.TotalObjects, s.ValidObjects, s.InvalidObjects)
	}
	if len(s.InvalidReasons) != 1 || s.InvalidReasons[0].ObjectID != "flat" {
		t.Errorf("InvalidReasons = %+v", s.InvalidReasons)
	}
	if s.Max != 3 {
		t.Errorf("invalid record leaked into statistics: Max = %v", s.Max)
	}
}
