package rw_test

import (
	"errors"
	"testing"

	"github.com/Faultbox/rwexport/pkg/rw"
	"github.com/Faultbox/rwexport/pkg/rw/rwtest"
)

func TestReadFrameExtension_SkipsUnknownPlugins(t *testing.T) {
	var w rwtest.Writer
	w.Extension(
		rwtest.Plugin{Type: 0x253F2FA, Data: []byte("collision data that is not a frame plugin")},
		rwtest.Plugin{Type: 0x11E, Data: make([]byte, 12)},
		rwtest.Plugin{Type: rw.ChunkNodeName, Data: []byte("chassis_dummy")},
	)
	w.U32(0xCAFEBABE)

	s := rw.NewStream(w.Bytes())
	var f rw.Frame
	if err := s.ReadFrameExtension(&f); err != nil {
		t.Fatalf("ReadFrameExtension failed: %v", err)
	}
	if f.Name != "chassis_dummy" {
		t.Errorf("Name = %q, want %q", f.Name, "chassis_dummy")
	}
	if next, _ := s.ReadU32(); next != 0xCAFEBABE {
		t.Errorf("cursor not at end of extension, next word = 0x%x", next)
	}
}

func TestReadFrameExtension_SubChunkOverrun(t *testing.T) {
	var w rwtest.Writer
	w.Chunk(rw.ChunkExtension, func(w *rwtest.Writer) {
		// Claims far more bytes than the extension holds.
		w.Header(rw.ChunkNodeName, 1000)
		w.Raw([]byte("abcd"))
	})

	var f rw.Frame
	err := rw.NewStream(w.Bytes()).ReadFrameExtension(&f)
	if !errors.Is(err, rw.ErrTruncatedStream) {
		t.Errorf("expected ErrTruncatedStream, got %v", err)
	}
}

func TestReadFrameExtension_TrailingPadding(t *testing.T) {
	var w rwtest.Writer
	w.Chunk(rw.ChunkExtension, func(w *rwtest.Writer) {
		w.Chunk(rw.ChunkNodeName, func(w *rwtest.Writer) { w.Raw([]byte("wheel_lf")) })
		w.Raw([]byte{0, 0, 0, 0})
	})
	w.U32(0xCAFEBABE)

	s := rw.NewStream(w.Bytes())
	var f rw.Frame
	if err := s.ReadFrameExtension(&f); err != nil {
		t.Fatalf("ReadFrameExtension failed: %v", err)
	}
	if f.Name != "wheel_lf" {
		t.Errorf("Name = %q, want %q", f.Name, "wheel_lf")
	}
	if next, _ := s.ReadU32(); next != 0xCAFEBABE {
		t.Errorf("cursor not at end of extension, next word = 0x%x", next)
	}
}

func TestReadFrameStruct(t *testing.T) {
	var w rwtest.Writer
	w.F32(1, 2, 3, 4, 5, 6, 7, 8, 9)
	w.F32(10, 11, 12)
	w.I32(-1)
	w.U32(3)

	f, err := rw.NewStream(w.Bytes()).ReadFrameStruct()
	if err != nil {
		t.Fatalf("ReadFrameStruct failed: %v", err)
	}
	if f.Rotation != [9]float32{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		t.Errorf("Rotation = %v", f.Rotation)
	}
	if f.Position != [3]float32{10, 11, 12} || f.Parent != -1 || f.Flags != 3 {
		t.Errorf("frame = %+v", f)
	}

	if _, err := rw.NewStream(w.Bytes()[:rw.FrameStructSize-1]).ReadFrameStruct(); !errors.Is(err, rw.ErrTruncatedStream) {
		t.Errorf("expected ErrTruncatedStream, got %v", err)
	}
}

func TestReadGeometry(t *testing.T) {
	var w rwtest.Writer
	w.Geometry(rwtest.GeometrySpec{
		FaceType:     1,
		Vertices:     []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		TexCoords:    []float32{0, 0, 1, 0, 0, 1},
		VertexColors: []uint8{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255},
		Materials: []rwtest.MaterialSpec{
			{Texture: "metal", Color: [4]uint8{10, 20, 30, 255}},
			{Color: [4]uint8{1, 2, 3, 4}},
		},
		Splits: []rwtest.SplitSpec{
			{Material: 0, Indices: []uint32{0, 1, 2}},
			{Material: 1, Indices: []uint32{2, 1}},
		},
	})

	g, err := rw.NewStream(w.Bytes()).ReadGeometry()
	if err != nil {
		t.Fatalf("ReadGeometry failed: %v", err)
	}
	if g.FaceType != rw.FaceTriangleStrip {
		t.Errorf("FaceType = %d, want strip", g.FaceType)
	}
	if g.VertexCount != 3 || len(g.Vertices) != 9 {
		t.Errorf("vertices = %d (%d floats)", g.VertexCount, len(g.Vertices))
	}
	if len(g.TexCoords) != 1 || len(g.TexCoords[0]) != 6 {
		t.Fatalf("TexCoords = %v", g.TexCoords)
	}
	if !g.HasVertexColors() || len(g.VertexColors) != 12 {
		t.Errorf("VertexColors = %v", g.VertexColors)
	}
	if len(g.Materials) != 2 {
		t.Fatalf("material count = %d, want 2", len(g.Materials))
	}
	if g.Materials[0].TextureName() != "metal" || g.Materials[0].Color != [4]uint8{10, 20, 30, 255} {
		t.Errorf("material 0 = %+v", g.Materials[0])
	}
	if g.Materials[1].TextureName() != "" {
		t.Errorf("material 1 should be untextured, got %q", g.Materials[1].TextureName())
	}
	if len(g.Splits) != 2 || len(g.Splits[0].Indices) != 3 || g.Splits[1].MaterialIndex != 1 {
		t.Errorf("splits = %+v", g.Splits)
	}
}

func TestReadGeometry_InstancedMaterial(t *testing.T) {
	var w rwtest.Writer
	w.Chunk(rw.ChunkGeometry, func(w *rwtest.Writer) {
		w.Chunk(rw.ChunkStruct, func(w *rwtest.Writer) {
			w.U16(rw.GeometryPositions)
			w.U8(0)
			w.U8(0)
			w.U32(0)
			w.U32(0)
			w.U32(0)
		})
		w.Chunk(rw.ChunkMaterialList, func(w *rwtest.Writer) {
			w.Chunk(rw.ChunkStruct, func(w *rwtest.Writer) {
				w.U32(2)
				w.I32(-1)
				w.I32(0)
			})
			w.Material(rwtest.MaterialSpec{Texture: "glass", Color: [4]uint8{0, 0, 0, 128}})
		})
		w.Extension()
	})

	g, err := rw.NewStream(w.Bytes()).ReadGeometry()
	if err != nil {
		t.Fatalf("ReadGeometry failed: %v", err)
	}
	if len(g.Materials) != 2 || g.Materials[1].TextureName() != "glass" {
		t.Errorf("instanced material not resolved: %+v", g.Materials)
	}
}

func TestReadAtomicAndLight(t *testing.T) {
	var w rwtest.Writer
	w.Atomic(rwtest.AtomicSpec{Frame: 3, Geometry: 1})
	w.Light(rwtest.LightSpec{Frame: 2, Params: rw.LightParams{Radius: 5, Type: rw.LightPoint}})

	s := rw.NewStream(w.Bytes())
	a, err := s.ReadAtomic()
	if err != nil {
		t.Fatalf("ReadAtomic failed: %v", err)
	}
	if a.FrameIndex != 3 || a.GeometryIndex != 1 {
		t.Errorf("atomic = %+v", a)
	}

	if _, body, err := s.ReadStruct(); err != nil {
		t.Fatalf("light frame struct: %v", err)
	} else if idx, _ := body.ReadI32(); idx != 2 {
		t.Errorf("light frame index = %d, want 2", idx)
	}
	l, err := s.ReadLight()
	if err != nil {
		t.Fatalf("ReadLight failed: %v", err)
	}
	if l.Radius != 5 || l.Type != rw.LightPoint {
		t.Errorf("light = %+v", l)
	}
	if s.Len() != 0 {
		t.Errorf("%d bytes left unread", s.Len())
	}
}
