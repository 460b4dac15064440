package triage

import (
	"fmt"
	"math"
)

// VolumeRecord holds the validated volume of one object for the current
// analysis pass. Records are immutable once computed and recomputed from
// scratch on the next pass; there is no cache across scene edits.
type VolumeRecord struct {
	Object *SceneObject
	Volume float64
	Valid  bool
	Reason string // set when Valid is false
}

// SampleVolume computes a closed-volume integral over the object's
// evaluated world-space surface. An object that cannot produce a finite
// positive volume is marked invalid with a reason; it is never treated as
// zero volume.
func SampleVolume(obj *SceneObject) VolumeRecord {
	mesh := obj.WorldMesh()
	if mesh == nil || mesh.FaceCount() == 0 {
		return invalidRecord(obj, "no faces (empty or non-mesh surface)")
	}

	vol := mesh.SignedVolume()
	switch {
	case math.IsNaN(vol) || math.IsInf(vol, 0):
		return invalidRecord(obj, fmt.Sprintf("non-finite volume %v", vol))
	case vol == 0:
		return invalidRecord(obj, "zero volume (possibly 2D/planar geometry)")
	case vol < 0:
		return invalidRecord(obj, "negative volume (inverted winding or open surface)")
	}

	return VolumeRecord{Object: obj, Volume: vol, Valid: true}
}

func invalidRecord(obj *SceneObject, reason string) VolumeRecord {
	return VolumeRecord{Object: obj, Reason: reason}
}
