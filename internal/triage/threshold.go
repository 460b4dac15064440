package triage

import "fmt"

// ThresholdMethod names one of the user-facing sizing methods. Every
// method except MethodOcclusion normalizes to an absolute volume cutoff;
// MethodOcclusion partitions objects by visibility instead.
type ThresholdMethod string

const (
	MethodReference      ThresholdMethod = "reference"
	MethodPercentLargest ThresholdMethod = "percent_largest"
	MethodPercentAverage ThresholdMethod = "percent_average"
	MethodAbsolute       ThresholdMethod = "absolute"
	MethodPercentile     ThresholdMethod = "percentile"
	MethodOcclusion      ThresholdMethod = "occlusion"
)

// Supported sampling bounds for the occlusion method.
const (
	MinSampleCount = 4
	MaxSampleCount = 10000
)

// ThresholdSpec is the caller-provided sizing request. Only the fields
// relevant to Method are consulted; everything is validated before any
// computation starts.
type ThresholdSpec struct {
	Method ThresholdMethod `json:"method"`

	ReferenceID    string  `json:"reference_id,omitempty"`
	Percentage     float64 `json:"percentage,omitempty"`
	AbsoluteVolume float64 `json:"absolute_volume,omitempty"`
	Percentile     float64 `json:"percentile,omitempty"`

	// Occlusion method parameters. Zero values take the defaults from
	// DefaultOcclusionParams.
	Sensitivity float64 `json:"sensitivity,omitempty"`
	SampleCount int     `json:"sample_count,omitempty"`
}

// Validate checks every parameter against its declared domain. It returns
// a *ValidationError for out-of-domain values and a *ConfigurationError
// for unsupported sampling settings.
func (spec ThresholdSpec) Validate() error {
	switch spec.Method {
	case MethodReference:
		if spec.ReferenceID == "" {
			return &ValidationError{Param: "reference_id", Reason: "a reference object must be named"}
		}
	case MethodPercentLargest, MethodPercentAverage:
		if spec.Percentage < 0 || spec.Percentage > 100 {
			return &ValidationError{Param: "percentage", Reason: fmt.Sprintf("%v is outside [0,100]", spec.Percentage)}
		}
	case MethodAbsolute:
		if spec.AbsoluteVolume <= 0 {
			return &ValidationError{Param: "absolute_volume", Reason: fmt.Sprintf("%v must be > 0", spec.AbsoluteVolume)}
		}
	case MethodPercentile:
		if spec.Percentile < 0 || spec.Percentile > 100 {
			return &ValidationError{Param: "percentile", Reason: fmt.Sprintf("%v is outside [0,100]", spec.Percentile)}
		}
	case MethodOcclusion:
		if spec.Sensitivity != 0 && (spec.Sensitivity <= 0 || spec.Sensitivity > 1) {
			return &ConfigurationError{Param: "sensitivity", Reason: fmt.Sprintf("%v is outside (0,1]", spec.Sensitivity)}
		}
		if spec.SampleCount != 0 && (spec.SampleCount < MinSampleCount || spec.SampleCount > MaxSampleCount) {
			return &ConfigurationError{
				Param:  "sample_count",
				Reason: fmt.Sprintf("%d is outside [%d,%d]", spec.SampleCount, MinSampleCount, MaxSampleCount),
			}
		}
	default:
		return &ValidationError{Param: "method", Reason: fmt.Sprintf("unknown threshold method %q", spec.Method)}
	}
	return nil
}

// ThresholdResult is the normalized outcome of resolving a spec. Cutoff
// is meaningful only when HasCutoff is true; the occlusion method carries
// no volume cutoff and is answered by the occlusion classifier instead.
type ThresholdResult struct {
	Method           ThresholdMethod `json:"method"`
	Cutoff           float64         `json:"cutoff,omitempty"`
	HasCutoff        bool            `json:"has_cutoff"`
	Description      string          `json:"description"`
	ObjectsAtOrBelow int             `json:"objects_at_or_below,omitempty"`
}

// ResolveThreshold converts a spec into an absolute volume cutoff against
// the given distribution snapshot. The snapshot must contain at least one
// valid object.
func ResolveThreshold(spec ThresholdSpec, stats *DistributionStats) (*ThresholdResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if stats == nil || stats.ValidObjects == 0 {
		return nil, &ValidationError{Param: "scene", Reason: "no objects with a valid volume"}
	}

	res := &ThresholdResult{Method: spec.Method, HasCutoff: true}

	switch spec.Method {
	case MethodReference:
		rec, ok := findRecord(stats.Records(), spec.ReferenceID)
		if !ok {
			return nil, &ValidationError{
				Param:  "reference_id",
				Reason: fmt.Sprintf("object %q has no valid volume in this scene", spec.ReferenceID),
			}
		}
		res.Cutoff = rec.Volume
		res.Description = fmt.Sprintf("volume of reference object %q", spec.ReferenceID)

	case MethodPercentLargest:
		res.Cutoff = spec.Percentage / 100 * stats.Max
		res.Description = fmt.Sprintf("%.4g%% of largest volume %.6g", spec.Percentage, stats.Max)

	case MethodPercentAverage:
		res.Cutoff = spec.Percentage / 100 * stats.Mean
		res.Description = fmt.Sprintf("%.4g%% of mean volume %.6g", spec.Percentage, stats.Mean)

	case MethodAbsolute:
		res.Cutoff = spec.AbsoluteVolume
		res.Description = "absolute volume cutoff"

	case MethodPercentile:
		res.Cutoff = stats.Percentile(spec.Percentile)
		res.ObjectsAtOrBelow = stats.CountAtOrBelow(res.Cutoff)
		res.Description = fmt.Sprintf("%.4g-th percentile (%d objects at or below)", spec.Percentile, res.ObjectsAtOrBelow)

	case MethodOcclusion:
		res.HasCutoff = false
		res.Description = "occlusion-based partition (no volume cutoff)"
	}

	return res, nil
}

// CollectByVolume returns every valid object whose volume is strictly
// below cutoff, in ascending volume order. excludeID removes the
// reference object itself from consideration; pass "" to exclude nothing.
func CollectByVolume(stats *DistributionStats, cutoff float64, excludeID string) []*SceneObject {
	var out []*SceneObject
	for _, rec := range stats.Records() {
		if rec.Volume >= cutoff {
			break
		}
		if excludeID != "" && rec.Object.ID == excludeID {
			continue
		}
		out = append(out, rec.Object)
	}
	return out
}

func findRecord(records []VolumeRecord, id string) (VolumeRecord, bool) {
	for _, rec := range records {
		if rec.Object.ID == id {
			return rec, true
		}
	}
	return VolumeRecord{}, false
}
