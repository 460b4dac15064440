package triage

import (
	"context"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// OcclusionClass is the classification state of one object. The staged
// pipeline moves every object from Unclassified to a terminal class.
type OcclusionClass int

const (
	ClassUnclassified OcclusionClass = iota
	ClassBBoxClear
	ClassBBoxCandidate
	ClassCoarseVisible
	ClassCoarseOccluded
	ClassCoarseUncertain
	ClassFineVisible
	ClassFineOccluded
)

var occlusionClassNames = map[OcclusionClass]string{
	ClassUnclassified:    "unclassified",
	ClassBBoxClear:       "bbox_clear",
	ClassBBoxCandidate:   "bbox_candidate",
	ClassCoarseVisible:   "coarse_visible",
	ClassCoarseOccluded:  "coarse_occluded",
	ClassCoarseUncertain: "coarse_uncertain",
	ClassFineVisible:     "fine_visible",
	ClassFineOccluded:    "fine_occluded",
}

func (c OcclusionClass) String() string {
	if s, ok := occlusionClassNames[c]; ok {
		return s
	}
	return "unknown"
}

// Occluded reports whether the class is a terminal occluded state.
func (c OcclusionClass) Occluded() bool {
	return c == ClassCoarseOccluded || c == ClassFineOccluded
}

// Stage thresholds and refinement constants.
const (
	// CoarseOccludedAbove finalizes an object as occluded after the
	// coarse pass when the user sensitivity does not exceed it.
	CoarseOccludedAbove = 0.9

	// CoarseVisibleBelow finalizes an object as visible after the
	// coarse pass.
	CoarseVisibleBelow = 0.3

	// multiPointDiagonalFraction switches an object to multi-point
	// refinement when its bounding diagonal exceeds this fraction of
	// the scene bounding radius.
	multiPointDiagonalFraction = 0.5

	// refinementInset pulls refinement target points slightly inside
	// the bounding box so they never sit exactly on the surface.
	refinementInset = 0.99
)

// OcclusionParams are the sampling settings for a classification run.
// Zero values take defaults.
type OcclusionParams struct {
	Sensitivity     float64 `json:"sensitivity"`       // fine-stage occluded threshold, (0,1]
	CoarseSamples   int     `json:"coarse_samples"`    // stage 2 viewpoint count
	FineSamples     int     `json:"fine_samples"`      // stage 3 viewpoint count
	VisibleHitLimit int     `json:"visible_hit_limit"` // early-exit visible ray count
	Workers         int     `json:"workers,omitempty"` // 0 = NumCPU
}

// DefaultOcclusionParams returns the stock sampling budget.
func DefaultOcclusionParams() OcclusionParams {
	return OcclusionParams{
		Sensitivity:     0.95,
		CoarseSamples:   20,
		FineSamples:     200,
		VisibleHitLimit: 5,
	}
}

func (p OcclusionParams) withDefaults() OcclusionParams {
	def := DefaultOcclusionParams()
	if p.Sensitivity == 0 {
		p.Sensitivity = def.Sensitivity
	}
	if p.CoarseSamples == 0 {
		p.CoarseSamples = def.CoarseSamples
	}
	if p.FineSamples == 0 {
		p.FineSamples = def.FineSamples
	}
	if p.VisibleHitLimit == 0 {
		p.VisibleHitLimit = def.VisibleHitLimit
	}
	if p.Workers <= 0 {
		p.Workers = runtime.NumCPU()
	}
	return p
}

// OcclusionResult is the terminal classification of one object.
type OcclusionResult struct {
	Object     *SceneObject   `json:"-"`
	ObjectID   string         `json:"object_id"`
	Fraction   float64        `json:"occlusion_fraction"`
	Class      OcclusionClass `json:"-"`
	ClassName  string         `json:"classification"`
	RaysCoarse int            `json:"rays_coarse"`
	RaysFine   int            `json:"rays_fine"`
	EarlyExit  bool           `json:"early_exit"`
}

// RaysTested returns the total rays cast for this object.
func (r OcclusionResult) RaysTested() int { return r.RaysCoarse + r.RaysFine }

// OcclusionClassifier determines, by simulated visibility sampling from a
// deterministic external viewpoint field, whether each candidate object
// is ever observable from outside the assembly.
//
// Candidates are the valid-volume objects; occluders are the full scene,
// since geometry without a valid volume (an open shell, say) still blocks
// rays.
type OcclusionClassifier struct {
	universe  []*SceneObject // candidates, classification order
	occluders []*SceneObject
	params    OcclusionParams

	center r3.Vec
	radius float64
	coarse []r3.Vec
	fine   []r3.Vec
}

// NewOcclusionClassifier freezes the viewpoint field for a scene and
// candidate universe. The same (scene, params) always yields the same
// field, so repeated runs are classification-identical.
func NewOcclusionClassifier(scene *Scene, universe []*SceneObject, params OcclusionParams) *OcclusionClassifier {
	params = params.withDefaults()
	c := &OcclusionClassifier{
		universe:  universe,
		occluders: scene.Objects,
		params:    params,
	}
	c.center, c.radius = ComputeBounds(scene.Objects)
	c.coarse = GenerateViewpoints(c.center, c.radius, params.CoarseSamples)
	c.fine = GenerateViewpoints(c.center, c.radius, params.FineSamples)
	return c
}

// ClassifyAll runs the three-stage pipeline over the candidate universe.
// Stage 1 containment is evaluated once up front; candidate objects then
// fan out over a worker pool. Cancellation is checked at every per-object
// task boundary and discards all partial results.
func (c *OcclusionClassifier) ClassifyAll(ctx context.Context) ([]OcclusionResult, error) {
	results := make([]OcclusionResult, len(c.universe))
	candidates := c.containmentCandidates()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < c.params.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue // drain remaining jobs without work
				}
				results[idx] = c.classify(c.universe[idx])
			}
		}()
	}

dispatch:
	for i, obj := range c.universe {
		if !candidates[i] {
			// Not fully contained by any other bounding box: the
			// object has an unobstructed line to the outside and
			// never enters ray sampling.
			results[i] = OcclusionResult{
				Object:    obj,
				ObjectID:  obj.ID,
				Class:     ClassBBoxClear,
				ClassName: ClassBBoxClear.String(),
			}
			continue
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// containmentCandidates marks each candidate whose bounding box is fully
// contained within some other scene object's bounding box. The relation
// is a derived, disposable view of the current boxes, recomputed per run.
func (c *OcclusionClassifier) containmentCandidates() []bool {
	out := make([]bool, len(c.universe))
	for i, obj := range c.universe {
		for _, other := range c.occluders {
			if other == obj {
				continue
			}
			if other.Bounds().ContainsBox(obj.Bounds()) {
				out[i] = true
				break
			}
		}
	}
	return out
}

// classify runs the coarse and, when uncertain, fine sampling stages for
// one bbox-candidate object.
func (c *OcclusionClassifier) classify(obj *SceneObject) OcclusionResult {
	res := OcclusionResult{Object: obj, ObjectID: obj.ID, Class: ClassBBoxCandidate}
	targets := c.targetPoints(obj)

	coarse := c.sampleStage(obj, targets, c.coarse, CoarseOccludedAbove)
	res.Fraction = coarse.fraction
	res.RaysCoarse = coarse.rays
	res.EarlyExit = coarse.earlyExit

	switch {
	case coarse.earlyExit, coarse.fraction < CoarseVisibleBelow:
		res.Class = ClassCoarseVisible
	case coarse.fraction > CoarseOccludedAbove && c.params.Sensitivity <= CoarseOccludedAbove:
		// The coarse verdict is only terminal when it is at least as
		// strict as what the user asked for; a sensitivity above 0.9
		// must be confirmed by the fine pass.
		res.Class = ClassCoarseOccluded
	default:
		fine := c.sampleStage(obj, targets, c.fine, c.params.Sensitivity)
		res.Fraction = fine.fraction
		res.RaysFine = fine.rays
		res.EarlyExit = fine.earlyExit
		if !fine.earlyExit && fine.fraction >= c.params.Sensitivity {
			res.Class = ClassFineOccluded
		} else {
			res.Class = ClassFineVisible
		}
	}

	res.ClassName = res.Class.String()
	return res
}

// targetPoints picks the representative points rays aim at. Small objects
// use the bounding-box center; objects large relative to the scene are
// refined with the center, the two extreme corners, and the midpoints of
// the box edges meeting each extreme corner, pulled slightly inward.
func (c *OcclusionClassifier) targetPoints(obj *SceneObject) []r3.Vec {
	b := obj.Bounds()
	center := b.Center()
	if c.radius == 0 || 2*b.HalfDiagonal() < multiPointDiagonalFraction*c.radius {
		return []r3.Vec{center}
	}

	pts := []r3.Vec{
		center,
		b.Min,
		b.Max,
		{X: center.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: center.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: center.Z},
		{X: center.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: center.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: center.Z},
	}
	for i, p := range pts {
		pts[i] = r3.Add(center, r3.Scale(refinementInset, r3.Sub(p, center)))
	}
	return pts
}

type stageOutcome struct {
	fraction  float64
	rays      int
	earlyExit bool
}

// sampleStage casts one ray per (viewpoint, target point) pair and
// accumulates the blocked fraction. Multi-point objects interleave their
// targets per viewpoint, so the aggregate fraction is the average over
// refinement points.
//
// Two independent triggers end sampling early, both finalizing the
// object as visible: a fixed count of visible rays, or the remaining
// unsampled rays being unable to push the blocked fraction up to
// occludedThreshold. The reported fraction covers only rays actually
// cast.
func (c *OcclusionClassifier) sampleStage(obj *SceneObject, targets, viewpoints []r3.Vec, occludedThreshold float64) stageOutcome {
	total := len(viewpoints) * len(targets)
	if total == 0 {
		return stageOutcome{}
	}

	var cast, blocked, visible int
	for _, vp := range viewpoints {
		for _, tp := range targets {
			cast++
			if c.rayBlocked(obj, vp, tp) {
				blocked++
			} else {
				visible++
			}

			if visible >= c.params.VisibleHitLimit {
				return stageOutcome{fraction: frac(blocked, cast), rays: cast, earlyExit: true}
			}
			if remaining := total - cast; remaining > 0 && float64(blocked+remaining)/float64(total) < occludedThreshold {
				return stageOutcome{fraction: frac(blocked, cast), rays: cast, earlyExit: true}
			}
		}
	}
	return stageOutcome{fraction: frac(blocked, cast), rays: cast}
}

func frac(blocked, cast int) float64 {
	if cast == 0 {
		return 0
	}
	return float64(blocked) / float64(cast)
}

// rayBlocked casts one ray from viewpoint toward target and reports
// whether some other object's surface is the nearest intersection. A ray
// that hits nothing, or hits obj's own surface first, counts as visible.
// Ties on distance resolve to the first object in scene order, keeping
// runs deterministic regardless of scheduling.
func (c *OcclusionClassifier) rayBlocked(obj *SceneObject, viewpoint, target r3.Vec) bool {
	ray := NewRay(viewpoint, target)

	nearestT := math.Inf(1)
	var nearest *SceneObject
	for _, other := range c.occluders {
		if !ray.IntersectsBox(other.Bounds()) {
			continue
		}
		mesh := other.WorldMesh()
		for _, f := range mesh.Faces {
			t, ok := ray.IntersectTriangle(mesh.Verts[f[0]], mesh.Verts[f[1]], mesh.Verts[f[2]])
			if ok && t < nearestT {
				nearestT = t
				nearest = other
			}
		}
	}
	return nearest != nil && nearest != obj
}
