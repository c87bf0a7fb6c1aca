// Package export renders prepared frames as the human-readable JSON document.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	stdmath "math"
	"strings"

	"github.com/Faultbox/rwexport/pkg/math"
	"github.com/Faultbox/rwexport/pkg/scene"
)

// DefaultIndent is the number of spaces per nesting level.
const DefaultIndent = 4

// Number is a float that encodes NaN and infinities as null.
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if stdmath.IsNaN(f) || stdmath.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Entry is one frame of the document. Field order is the key order.
type Entry struct {
	Frame    int            `json:"frame"`
	Parent   int32          `json:"parent"`
	Name     string         `json:"name"`
	Matrix   [4][4]Number   `json:"matrix"`
	Damaged  bool           `json:"damaged"`
	Empty    bool           `json:"empty"`
	Geometry *GeometryEntry `json:"geometry"`
}

// GeometryEntry is the mesh bound to a frame.
type GeometryEntry struct {
	TexCoords []TexCoord     `json:"texcoords"`
	Vertices  []Vertex       `json:"vertices"`
	FaceType  string         `json:"facetype"`
	Textures  []TextureEntry `json:"textures"`
}

// TexCoord is a UV pair.
type TexCoord struct {
	U Number `json:"uvx"`
	V Number `json:"uvy"`
}

// Vertex is a position with an optional packed RGBA color.
type Vertex struct {
	X     Number  `json:"x"`
	Y     Number  `json:"y"`
	Z     Number  `json:"z"`
	Color *uint32 `json:"color,omitempty"`
}

// TextureEntry is one split: the indices it draws and its material.
type TextureEntry struct {
	Indices []uint32 `json:"indices"`
	Name    string   `json:"name"`
	Color   [4]uint8 `json:"color"`
}

// Build converts prepared frames into document entries. Positions, UVs and
// vertex coordinates are ceil-rounded at the sixth decimal; rotation is not.
func Build(frames []scene.ExportFrame) []Entry {
	entries := make([]Entry, 0, len(frames))
	for i := range frames {
		f := &frames[i]
		e := Entry{
			Frame:   f.Index,
			Parent:  f.Parent,
			Name:    f.Name,
			Damaged: f.Damaged,
			Empty:   f.Geometry == nil,
		}
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				v := f.Matrix[r][c]
				if c == 3 && r < 3 {
					e.Matrix[r][c] = Number(math.CeilPrecision(v))
				} else {
					e.Matrix[r][c] = Number(v)
				}
			}
		}
		if f.Geometry != nil {
			e.Geometry = buildGeometry(f.Geometry)
		}
		entries = append(entries, e)
	}
	return entries
}

func buildGeometry(g *scene.Geometry) *GeometryEntry {
	uvs := g.UVs()
	out := &GeometryEntry{
		TexCoords: make([]TexCoord, 0, len(uvs)/2),
		Vertices:  make([]Vertex, g.VertexCount()),
		FaceType:  g.FaceType.String(),
		Textures:  make([]TextureEntry, 0, len(g.Splits)),
	}
	for i := 0; i+1 < len(uvs); i += 2 {
		out.TexCoords = append(out.TexCoords, TexCoord{
			U: Number(math.CeilPrecision(uvs[i])),
			V: Number(math.CeilPrecision(uvs[i+1])),
		})
	}

	colors := g.PackedColors()
	for i := range out.Vertices {
		v := &out.Vertices[i]
		v.X = Number(math.CeilPrecision(g.Vertices[i*3]))
		v.Y = Number(math.CeilPrecision(g.Vertices[i*3+1]))
		v.Z = Number(math.CeilPrecision(g.Vertices[i*3+2]))
		if i < len(colors) {
			c := colors[i]
			v.Color = &c
		}
	}

	for _, split := range g.Splits {
		indices := split.Indices
		if indices == nil {
			indices = []uint32{}
		}
		out.Textures = append(out.Textures, TextureEntry{
			Indices: indices,
			Name:    split.Material.TextureName,
			Color:   split.Material.Color,
		})
	}
	return out
}

// Marshal renders frames as an indented JSON array followed by a newline.
func Marshal(frames []scene.ExportFrame, indent int) ([]byte, error) {
	if indent < 0 {
		indent = 0
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))
	if err := enc.Encode(Build(frames)); err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders frames to w in a single write.
func Write(w io.Writer, frames []scene.ExportFrame, indent int) error {
	data, err := Marshal(frames, indent)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
