// Package scene holds the decoded clump as flat, index-linked containers.
//
// Frames, geometries, atomics and lights live in separate slices owned by
// Scene and refer to each other only by index, so a Scene has no pointers
// between its parts and no cycles.
package scene

import (
	"fmt"

	"github.com/Faultbox/rwexport/pkg/math"
	"github.com/Faultbox/rwexport/pkg/rw"
)

// NoParent is the parent index of root frames.
const NoParent int32 = -1

// FaceType is the primitive topology of a geometry.
type FaceType uint32

const (
	FaceTriangles     FaceType = 0
	FaceTriangleStrip FaceType = 1
)

// String returns the label used by both export formats.
func (f FaceType) String() string {
	if f == FaceTriangleStrip {
		return "Triangle_Strip"
	}
	return "Triangles"
}

// Frame is a transform node.
type Frame struct {
	Index    int
	Parent   int32
	Name     string
	Rotation [9]float32 // row-major 3x3
	Position [3]float32
}

// IsRoot reports whether the frame has no parent.
func (f *Frame) IsRoot() bool {
	return f.Parent == NoParent
}

// Material is the surface bound to a split. An empty TextureName means untextured.
type Material struct {
	TextureName string
	Color       [4]uint8 // RGBA as stored
}

// Split is a run of vertex indices drawn with one material.
type Split struct {
	Indices  []uint32
	Material Material
}

// Geometry is a mesh. Vertices holds 3 floats per vertex, each UV channel 2
// floats per vertex, VertexColors 4 bytes per vertex when present.
type Geometry struct {
	FaceType     FaceType
	Vertices     []float32
	TexCoords    [][]float32
	VertexColors []uint8
	Splits       []Split
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Vertices) / 3
}

// UVs returns UV channel 0, or nil when the geometry is untextured.
func (g *Geometry) UVs() []float32 {
	if len(g.TexCoords) == 0 {
		return nil
	}
	return g.TexCoords[0]
}

// PackedColor returns vertex i's color packed as R<<24 | G<<16 | B<<8 | A.
func (g *Geometry) PackedColor(i int) uint32 {
	c := g.VertexColors[i*4 : i*4+4]
	return uint32(c[0])<<24 | uint32(c[1])<<16 | uint32(c[2])<<8 | uint32(c[3])
}

// PackedColors returns every vertex color packed, or nil without prelighting.
func (g *Geometry) PackedColors() []uint32 {
	n := len(g.VertexColors) / 4
	if n == 0 {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = g.PackedColor(i)
	}
	return out
}

// Atomic binds a frame to a geometry.
type Atomic struct {
	FrameIndex    int
	GeometryIndex int
}

// Light is a light attached to a frame. Params are carried through untouched.
type Light struct {
	FrameIndex int32
	Params     rw.LightParams
}

// Scene is a decoded clump.
type Scene struct {
	Frames     []Frame
	Geometries []Geometry
	Atomics    []Atomic
	Lights     []Light
}

// Frame returns frame i, or an error if i is out of range.
func (s *Scene) Frame(i int) (*Frame, error) {
	if i < 0 || i >= len(s.Frames) {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)", i, len(s.Frames))
	}
	return &s.Frames[i], nil
}

// WorldMatrix returns the transform of frame i composed with those of all
// its ancestors. A parent chain that loops or leaves the frame list is an
// error.
func (s *Scene) WorldMatrix(i int) (math.Mat4, error) {
	world := math.Identity()
	for steps := 0; ; steps++ {
		f, err := s.Frame(i)
		if err != nil {
			return world, err
		}
		if steps >= len(s.Frames) {
			return world, fmt.Errorf("frame %d: parent chain loops", f.Index)
		}
		world = math.Compose(f.Rotation, f.Position).Mul(world)
		if f.IsRoot() {
			return world, nil
		}
		i = int(f.Parent)
	}
}

// GeometryFor returns the geometry of the first atomic bound to frameIndex.
// Later atomics on the same frame are ignored. An atomic pointing past the
// geometry list is reported as an error.
func (s *Scene) GeometryFor(frameIndex int) (*Geometry, bool, error) {
	for _, a := range s.Atomics {
		if a.FrameIndex != frameIndex {
			continue
		}
		if a.GeometryIndex < 0 || a.GeometryIndex >= len(s.Geometries) {
			return nil, false, fmt.Errorf("atomic on frame %d references geometry %d of %d",
				frameIndex, a.GeometryIndex, len(s.Geometries))
		}
		return &s.Geometries[a.GeometryIndex], true, nil
	}
	return nil, false, nil
}

// Children returns the indices of frames whose parent is i.
func (s *Scene) Children(i int) []int {
	var children []int
	for _, f := range s.Frames {
		if int(f.Parent) == i {
			children = append(children, f.Index)
		}
	}
	return children
}

// VertexCount returns the total number of vertices across all geometries.
func (s *Scene) VertexCount() int {
	total := 0
	for i := range s.Geometries {
		total += s.Geometries[i].VertexCount()
	}
	return total
}
