package triage

import "fmt"

// SceneObject is one mesh-type object in the host scene. The triage core
// holds read references only; the world mesh, bounds and polygon count are
// frozen at snapshot time so a run never observes a half-edited scene.
type SceneObject struct {
	ID        string
	Name      string
	Transform Transform4

	mesh   *TriMesh // evaluated local-space surface
	world  *TriMesh
	bounds AABB
}

// NewSceneObject evaluates mesh through transform and freezes the
// world-space view of the object.
func NewSceneObject(id, name string, transform Transform4, mesh *TriMesh) *SceneObject {
	world := mesh.Transformed(transform)
	return &SceneObject{
		ID:        id,
		Name:      name,
		Transform: transform,
		mesh:      mesh,
		world:     world,
		bounds:    world.Bounds(),
	}
}

// WorldMesh returns the evaluated surface in world space.
func (o *SceneObject) WorldMesh() *TriMesh { return o.world }

// Bounds returns the world-space bounding box.
func (o *SceneObject) Bounds() AABB { return o.bounds }

// PolyCount returns the triangle count of the evaluated surface.
func (o *SceneObject) PolyCount() int { return o.world.FaceCount() }

func (o *SceneObject) String() string {
	return fmt.Sprintf("%s (%d tris)", o.ID, o.PolyCount())
}

// Scene is a frozen snapshot of the host scene's mesh objects. Object IDs
// are unique within a scene.
type Scene struct {
	Source  string
	Objects []*SceneObject

	byID map[string]*SceneObject
}

// NewScene assembles a snapshot. Objects with duplicate IDs are rejected
// since identity is the dedup key for the final partition.
func NewScene(source string, objects []*SceneObject) (*Scene, error) {
	s := &Scene{
		Source:  source,
		Objects: objects,
		byID:    make(map[string]*SceneObject, len(objects)),
	}
	for _, o := range objects {
		if _, dup := s.byID[o.ID]; dup {
			return nil, fmt.Errorf("duplicate object id %q in scene %q", o.ID, source)
		}
		s.byID[o.ID] = o
	}
	return s, nil
}

// Object looks up an object by ID, returning nil when absent.
func (s *Scene) Object(id string) *SceneObject { return s.byID[id] }

// Len returns the number of objects in the snapshot.
func (s *Scene) Len() int { return len(s.Objects) }
