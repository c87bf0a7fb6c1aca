// Package dff decodes RenderWare clump (.dff) files into a scene.Scene.
//
// The clump is read in a fixed order instead of recursing through every
// chunk: all frame base structs are read before any frame extension. Some
// SA-MP models embed a collision section inside the frame extension area
// that sends a naive recursive extension reader into an endless loop; the
// two-pass layout never needs to understand that section.
package dff

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/rwexport/pkg/rw"
	"github.com/Faultbox/rwexport/pkg/scene"
)

// ErrEmptyModel is returned for clumps without frames.
var ErrEmptyModel = errors.New("clump has no frames")

// clumpStructWithLights is the STRUCT length of clumps that declare lights
// and cameras after the atomic count.
const clumpStructWithLights = 0xC

// Decode parses a clump from a byte slice.
func Decode(data []byte) (*scene.Scene, error) {
	s := rw.NewStream(data)

	if _, err := s.ExpectHeader(rw.ChunkClump); err != nil {
		return nil, fmt.Errorf("reading clump header: %w", err)
	}
	numAtomics, numLights, err := readClumpStruct(s)
	if err != nil {
		return nil, fmt.Errorf("reading clump struct: %w", err)
	}

	frames, err := readFrameList(s)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrEmptyModel
	}

	geometries, err := readGeometryList(s)
	if err != nil {
		return nil, err
	}

	sc := &scene.Scene{
		Frames:     make([]scene.Frame, len(frames)),
		Geometries: make([]scene.Geometry, len(geometries)),
	}
	for i, f := range frames {
		sc.Frames[i] = convertFrame(i, f)
	}
	for i, g := range geometries {
		if sc.Geometries[i], err = convertGeometry(g); err != nil {
			return nil, fmt.Errorf("reading geometry %d: %w", i, err)
		}
	}

	for i := uint32(0); i < numAtomics; i++ {
		a, err := s.ReadAtomic()
		if err != nil {
			return nil, fmt.Errorf("reading atomic %d: %w", i, err)
		}
		sc.Atomics = append(sc.Atomics, scene.Atomic{
			FrameIndex:    int(a.FrameIndex),
			GeometryIndex: int(a.GeometryIndex),
		})
	}

	for i := uint32(0); i < numLights; i++ {
		l, err := readLight(s)
		if err != nil {
			return nil, fmt.Errorf("reading light %d: %w", i, err)
		}
		sc.Lights = append(sc.Lights, l)
	}

	return sc, nil
}

// DecodeFile parses a clump from disk.
func DecodeFile(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DFF file: %w", err)
	}
	return Decode(data)
}

func readClumpStruct(s *rw.Stream) (numAtomics, numLights uint32, err error) {
	h, err := s.ExpectHeader(rw.ChunkStruct)
	if err != nil {
		return 0, 0, err
	}
	if numAtomics, err = s.ReadU32(); err != nil {
		return 0, 0, err
	}
	if h.Length == clumpStructWithLights {
		if numLights, err = s.ReadU32(); err != nil {
			return 0, 0, err
		}
		// Camera count, unused.
		if err = s.Skip(4); err != nil {
			return 0, 0, err
		}
	}
	return numAtomics, numLights, nil
}

// readFrameList reads a FRAMELIST chunk in two passes.
func readFrameList(s *rw.Stream) ([]rw.Frame, error) {
	if _, err := s.ExpectHeader(rw.ChunkFrameList); err != nil {
		return nil, fmt.Errorf("reading frame list: %w", err)
	}
	if _, err := s.ExpectHeader(rw.ChunkStruct); err != nil {
		return nil, fmt.Errorf("reading frame list struct: %w", err)
	}
	count, err := s.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("reading frame count: %w", err)
	}

	frames, err := readFrameBases(s, count)
	if err != nil {
		return nil, err
	}
	if err := readFrameExtensions(s, frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// readFrameBases is the first pass: every fixed-layout frame record.
func readFrameBases(s *rw.Stream, count uint32) ([]rw.Frame, error) {
	// Bound the allocation by what the stream can actually hold.
	if int64(count)*rw.FrameStructSize > int64(s.Len()) {
		return nil, fmt.Errorf("reading frame list: %d frames: %w", count, rw.ErrTruncatedStream)
	}
	frames := make([]rw.Frame, count)
	for i := range frames {
		f, err := s.ReadFrameStruct()
		if err != nil {
			return nil, fmt.Errorf("reading frame %d: %w", i, err)
		}
		frames[i] = f
	}
	return frames, nil
}

// readFrameExtensions is the second pass: one EXTENSION chunk per frame, in
// frame order, each walked only by declared sub-chunk lengths.
func readFrameExtensions(s *rw.Stream, frames []rw.Frame) error {
	for i := range frames {
		if err := s.ReadFrameExtension(&frames[i]); err != nil {
			return fmt.Errorf("reading frame %d extension: %w", i, err)
		}
	}
	return nil
}

func readGeometryList(s *rw.Stream) ([]*rw.Geometry, error) {
	if _, err := s.ExpectHeader(rw.ChunkGeometryList); err != nil {
		return nil, fmt.Errorf("reading geometry list: %w", err)
	}
	if _, err := s.ExpectHeader(rw.ChunkStruct); err != nil {
		return nil, fmt.Errorf("reading geometry list struct: %w", err)
	}
	count, err := s.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("reading geometry count: %w", err)
	}
	if int64(count)*rw.HeaderSize > int64(s.Len()) {
		return nil, fmt.Errorf("reading geometry list: %d geometries: %w", count, rw.ErrTruncatedStream)
	}

	geometries := make([]*rw.Geometry, count)
	for i := range geometries {
		g, err := s.ReadGeometry()
		if err != nil {
			return nil, fmt.Errorf("reading geometry %d: %w", i, err)
		}
		geometries[i] = g
	}
	return geometries, nil
}

func readLight(s *rw.Stream) (scene.Light, error) {
	if _, err := s.ExpectHeader(rw.ChunkStruct); err != nil {
		return scene.Light{}, err
	}
	frameIndex, err := s.ReadI32()
	if err != nil {
		return scene.Light{}, err
	}
	params, err := s.ReadLight()
	if err != nil {
		return scene.Light{}, err
	}
	return scene.Light{FrameIndex: frameIndex, Params: params}, nil
}

func convertFrame(index int, f rw.Frame) scene.Frame {
	return scene.Frame{
		Index:    index,
		Parent:   f.Parent,
		Name:     f.Name,
		Rotation: f.Rotation,
		Position: f.Position,
	}
}

func convertGeometry(g *rw.Geometry) (scene.Geometry, error) {
	out := scene.Geometry{
		FaceType:     scene.FaceType(g.FaceType),
		Vertices:     g.Vertices,
		TexCoords:    g.TexCoords,
		VertexColors: g.VertexColors,
		Splits:       make([]scene.Split, 0, len(g.Splits)),
	}
	for i, split := range g.Splits {
		if int(split.MaterialIndex) >= len(g.Materials) {
			return out, fmt.Errorf("%w: split %d uses material %d of %d",
				rw.ErrBadMaterialRef, i, split.MaterialIndex, len(g.Materials))
		}
		m := &g.Materials[split.MaterialIndex]
		out.Splits = append(out.Splits, scene.Split{
			Indices:  split.Indices,
			Material: scene.Material{TextureName: m.TextureName(), Color: m.Color},
		})
	}
	return out, nil
}
