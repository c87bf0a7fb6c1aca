// Package amf implements the compact binary model format.
//
// Layout, little-endian throughout: a sequence of texture names, a u16
// frame count, then per frame its index, parent, damaged flag, name, face
// type, textures, UV pairs, vertex positions and packed vertex colors.
// Strings carry a one-byte length, sequences a u32 element count. There is
// no magic number and no version field.
package amf

import (
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/rwexport/pkg/scene"
)

// AMF errors.
var (
	ErrTruncatedAMFData = errors.New("truncated AMF data")
	ErrTooManyFrames    = errors.New("too many frames for AMF")
)

// RootParent is the parent index written for root frames.
const RootParent uint16 = 0xFFFF

// MaxStringLen is the longest string a length byte can describe.
const MaxStringLen = 255

// TexCoord is a UV pair.
type TexCoord struct {
	U, V float32
}

// Vertex is a position.
type Vertex struct {
	X, Y, Z float32
}

// Texture is one material split.
type Texture struct {
	Name    string
	Indices []uint32
	Color   [4]uint8
}

// Geometry is the mesh of a frame. Frames without an atomic have an empty
// Geometry with an empty FaceType.
type Geometry struct {
	FaceType  string
	Textures  []Texture
	TexCoords []TexCoord
	Vertices  []Vertex
	Colors    []uint32 // packed R<<24 | G<<16 | B<<8 | A
}

// Frame is a serialized frame.
type Frame struct {
	Index    uint16
	Parent   uint16
	Damaged  bool
	Name     string
	Geometry Geometry
}

// IsRoot reports whether the frame has no parent.
func (f *Frame) IsRoot() bool {
	return f.Parent == RootParent
}

// File is a whole AMF model.
type File struct {
	TextureNames []string
	Frames       []Frame
}

// FromExport builds a File from prepared frames. Texture names are
// collected in encounter order; duplicates are kept and empty names skipped.
func FromExport(frames []scene.ExportFrame) (*File, error) {
	if len(frames) > stdmath.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyFrames, len(frames))
	}

	f := &File{
		TextureNames: []string{},
		Frames:       make([]Frame, 0, len(frames)),
	}
	for i := range frames {
		ef := &frames[i]
		if ef.Index > stdmath.MaxUint16 {
			return nil, fmt.Errorf("%w: frame index %d", ErrTooManyFrames, ef.Index)
		}
		parent, err := parentIndex(ef.Parent)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", ef.Index, err)
		}
		fr := Frame{
			Index:   uint16(ef.Index),
			Parent:  parent,
			Damaged: ef.Damaged,
			Name:    ef.Name,
		}
		if ef.Geometry != nil {
			fr.Geometry = fromGeometry(ef.Geometry)
			for _, t := range fr.Geometry.Textures {
				if t.Name != "" {
					f.TextureNames = append(f.TextureNames, t.Name)
				}
			}
		}
		f.Frames = append(f.Frames, fr)
	}
	return f, nil
}

// parentIndex maps a scene parent onto the u16 field. RootParent itself is
// reserved, so the largest usable parent is one below it.
func parentIndex(p int32) (uint16, error) {
	if p < 0 {
		return RootParent, nil
	}
	if p >= int32(RootParent) {
		return 0, fmt.Errorf("%w: parent index %d", ErrTooManyFrames, p)
	}
	return uint16(p), nil
}

func fromGeometry(g *scene.Geometry) Geometry {
	out := Geometry{
		FaceType: g.FaceType.String(),
		Vertices: make([]Vertex, g.VertexCount()),
		Colors:   g.PackedColors(),
	}
	for i := range out.Vertices {
		out.Vertices[i] = Vertex{X: g.Vertices[i*3], Y: g.Vertices[i*3+1], Z: g.Vertices[i*3+2]}
	}
	uvs := g.UVs()
	out.TexCoords = make([]TexCoord, len(uvs)/2)
	for i := range out.TexCoords {
		out.TexCoords[i] = TexCoord{U: uvs[i*2], V: uvs[i*2+1]}
	}
	out.Textures = make([]Texture, len(g.Splits))
	for i, s := range g.Splits {
		out.Textures[i] = Texture{
			Name:    s.Material.TextureName,
			Indices: s.Indices,
			Color:   s.Material.Color,
		}
	}
	return out
}

// VertexCount returns the number of vertices across all frames.
func (f *File) VertexCount() int {
	n := 0
	for i := range f.Frames {
		n += len(f.Frames[i].Geometry.Vertices)
	}
	return n
}
