package triage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// LoadOBJScene reads a Wavefront OBJ file into a frozen scene snapshot.
// OBJ is the reference host-scene adapter used by the CLI and tests;
// embedding hosts hand the engine SceneObjects directly instead.
func LoadOBJScene(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f, path)
}

// ParseOBJ parses OBJ geometry: `v` vertices, `f` faces (fan-triangulated,
// negative indices allowed), with `o`/`g` records splitting objects.
// Vertices are taken as already world-space, so each object carries the
// identity transform. Normals, texture coordinates and material records
// are ignored.
func ParseOBJ(r io.Reader, source string) (*Scene, error) {
	var (
		verts   []r3.Vec
		objects []*SceneObject
		seen    = map[string]int{}

		name  = "default"
		faces [][3]int
	)

	flush := func() {
		if len(faces) == 0 {
			return
		}
		id := name
		seen[name]++
		if n := seen[name]; n > 1 {
			id = fmt.Sprintf("%s_%d", name, n)
		}
		objects = append(objects, NewSceneObject(id, name, IdentityTransform4, remapMesh(verts, faces)))
		faces = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "o", "g":
			flush()
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			} else {
				name = "default"
			}

		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: vertex needs 3 coordinates", source, lineNo)
			}
			var coord [3]float64
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: bad vertex coordinate %q", source, lineNo, fields[i+1])
				}
				coord[i] = v
			}
			verts = append(verts, r3.Vec{X: coord[0], Y: coord[1], Z: coord[2]})

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: face needs at least 3 vertices", source, lineNo)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				i, err := parseFaceIndex(ref, len(verts))
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %v", source, lineNo, err)
				}
				idx = append(idx, i)
			}
			// Fan triangulation handles quads and n-gons from CAD exports.
			for i := 1; i+1 < len(idx); i++ {
				faces = append(faces, [3]int{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	flush()

	return NewScene(source, objects)
}

// parseFaceIndex resolves one face vertex reference ("7", "7/1/2" or
// "-1") to a zero-based index into the global vertex list.
func parseFaceIndex(ref string, vertCount int) (int, error) {
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		ref = ref[:i]
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", ref)
	}
	switch {
	case n > 0 && n <= vertCount:
		return n - 1, nil
	case n < 0 && -n <= vertCount:
		return vertCount + n, nil
	default:
		return 0, fmt.Errorf("face index %d out of range (%d vertices)", n, vertCount)
	}
}

// remapMesh extracts the vertices an object's faces actually use from the
// global OBJ vertex list into a compact per-object mesh.
func remapMesh(verts []r3.Vec, faces [][3]int) *TriMesh {
	remap := make(map[int]int)
	mesh := &TriMesh{Faces: make([][3]int, len(faces))}
	for fi, f := range faces {
		for vi, global := range f {
			local, ok := remap[global]
			if !ok {
				local = len(mesh.Verts)
				remap[global] = local
				mesh.Verts = append(mesh.Verts, verts[global])
			}
			mesh.Faces[fi][vi] = local
		}
	}
	return mesh
}
