package rwtest

import "github.com/Faultbox/rwexport/pkg/rw"

// Identity is an identity rotation block.
var Identity = [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}

// FrameSpec describes a frame list entry.
type FrameSpec struct {
	Name     string
	Parent   int32
	Rotation [9]float32
	Position [3]float32
	Plugins  []Plugin // written before the node name plugin
}

// MaterialSpec describes a material. An empty Texture means untextured.
type MaterialSpec struct {
	Texture string
	Color   [4]uint8
}

// SplitSpec describes a BinMesh split.
type SplitSpec struct {
	Material uint32
	Indices  []uint32
}

// GeometrySpec describes a non-native geometry with one morph target.
type GeometrySpec struct {
	FaceType     uint32
	Vertices     []float32
	TexCoords    []float32
	VertexColors []uint8
	Materials    []MaterialSpec
	Splits       []SplitSpec
}

// AtomicSpec binds a frame to a geometry.
type AtomicSpec struct {
	Frame    uint32
	Geometry uint32
}

// LightSpec describes a light attached to a frame.
type LightSpec struct {
	Frame  int32
	Params rw.LightParams
}

// ClumpSpec describes a whole clump.
type ClumpSpec struct {
	Frames     []FrameSpec
	Geometries []GeometrySpec
	Atomics    []AtomicSpec
	Lights     []LightSpec
}

// Clump serializes spec as a .dff stream.
func Clump(spec ClumpSpec) []byte {
	var w Writer
	w.Chunk(rw.ChunkClump, func(w *Writer) {
		w.Chunk(rw.ChunkStruct, func(w *Writer) {
			w.U32(uint32(len(spec.Atomics)))
			if len(spec.Lights) > 0 {
				w.U32(uint32(len(spec.Lights)))
				w.U32(0) // cameras
			}
		})
		w.FrameList(spec.Frames)
		w.Chunk(rw.ChunkGeometryList, func(w *Writer) {
			w.Chunk(rw.ChunkStruct, func(w *Writer) {
				w.U32(uint32(len(spec.Geometries)))
			})
			for _, g := range spec.Geometries {
				w.Geometry(g)
			}
		})
		for _, a := range spec.Atomics {
			w.Atomic(a)
		}
		for _, l := range spec.Lights {
			w.Light(l)
		}
		w.Extension()
	})
	return w.Bytes()
}

// FrameList writes a FRAMELIST chunk: all base structs, then all extensions.
func (w *Writer) FrameList(frames []FrameSpec) {
	w.Chunk(rw.ChunkFrameList, func(w *Writer) {
		w.Chunk(rw.ChunkStruct, func(w *Writer) {
			w.U32(uint32(len(frames)))
			for _, f := range frames {
				w.F32(f.Rotation[:]...)
				w.F32(f.Position[:]...)
				w.I32(f.Parent)
				w.U32(0)
			}
		})
		for _, f := range frames {
			plugins := append([]Plugin{}, f.Plugins...)
			if f.Name != "" {
				plugins = append(plugins, Plugin{Type: rw.ChunkNodeName, Data: []byte(f.Name)})
			}
			w.Extension(plugins...)
		}
	})
}

// Geometry writes a GEOMETRY chunk.
func (w *Writer) Geometry(g GeometrySpec) {
	numVerts := len(g.Vertices) / 3
	flags := uint16(rw.GeometryPositions)
	var numUV uint8
	if g.FaceType == uint32(rw.FaceTriangleStrip) {
		flags |= rw.GeometryTriStrip
	}
	if len(g.TexCoords) > 0 {
		flags |= rw.GeometryTextured
		numUV = 1
	}
	if len(g.VertexColors) > 0 {
		flags |= rw.GeometryPrelit
	}

	w.Chunk(rw.ChunkGeometry, func(w *Writer) {
		w.Chunk(rw.ChunkStruct, func(w *Writer) {
			w.U16(flags)
			w.U8(numUV)
			w.U8(0)
			w.U32(0) // triangles
			w.U32(uint32(numVerts))
			w.U32(1) // morph targets
			w.Raw(g.VertexColors)
			w.F32(g.TexCoords...)
			w.F32(0, 0, 0, 1)
			w.U32(1)
			w.U32(0)
			w.F32(g.Vertices...)
		})
		w.Chunk(rw.ChunkMaterialList, func(w *Writer) {
			w.Chunk(rw.ChunkStruct, func(w *Writer) {
				w.U32(uint32(len(g.Materials)))
				for range g.Materials {
					w.I32(-1)
				}
			})
			for _, m := range g.Materials {
				w.Material(m)
			}
		})
		w.Extension(Plugin{Type: rw.ChunkBinMesh, Data: binMesh(g)})
	})
}

// Material writes a MATERIAL chunk.
func (w *Writer) Material(m MaterialSpec) {
	w.Chunk(rw.ChunkMaterial, func(w *Writer) {
		w.Chunk(rw.ChunkStruct, func(w *Writer) {
			w.U32(0)
			w.Raw(m.Color[:])
			w.U32(0)
			if m.Texture != "" {
				w.U32(1)
			} else {
				w.U32(0)
			}
			w.F32(1, 1, 1)
		})
		if m.Texture != "" {
			w.Chunk(rw.ChunkTexture, func(w *Writer) {
				w.Chunk(rw.ChunkStruct, func(w *Writer) {
					w.U16(0x1106)
					w.U16(0)
				})
				w.String(m.Texture)
				w.String("")
				w.Extension()
			})
		}
		w.Extension()
	})
}

func binMesh(g GeometrySpec) []byte {
	var w Writer
	total := 0
	for _, s := range g.Splits {
		total += len(s.Indices)
	}
	w.U32(g.FaceType)
	w.U32(uint32(len(g.Splits)))
	w.U32(uint32(total))
	for _, s := range g.Splits {
		w.U32(uint32(len(s.Indices)))
		w.U32(s.Material)
		for _, idx := range s.Indices {
			w.U32(idx)
		}
	}
	return w.Bytes()
}

// Atomic writes an ATOMIC chunk.
func (w *Writer) Atomic(a AtomicSpec) {
	w.Chunk(rw.ChunkAtomic, func(w *Writer) {
		w.Chunk(rw.ChunkStruct, func(w *Writer) {
			w.U32(a.Frame)
			w.U32(a.Geometry)
			w.U32(5)
			w.U32(0)
		})
		w.Extension()
	})
}

// Light writes the frame index struct followed by a LIGHT chunk.
func (w *Writer) Light(l LightSpec) {
	w.Chunk(rw.ChunkStruct, func(w *Writer) {
		w.I32(l.Frame)
	})
	w.Chunk(rw.ChunkLight, func(w *Writer) {
		w.Chunk(rw.ChunkStruct, func(w *Writer) {
			w.F32(l.Params.Radius)
			w.F32(l.Params.Color[:]...)
			w.F32(l.Params.MinusCosAngle)
			w.U16(l.Params.Flags)
			w.U16(l.Params.Type)
		})
		w.Extension()
	})
}
