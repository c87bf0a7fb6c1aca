package rw

import (
	"errors"
	"fmt"
)

// Geometry flags.
const (
	GeometryTriStrip  = 0x01
	GeometryPositions = 0x02
	GeometryTextured  = 0x04
	GeometryPrelit    = 0x08
	GeometryNormals   = 0x10
	GeometryLight     = 0x20
	GeometryModulate  = 0x40
	GeometryTextured2 = 0x80
)

// ErrBadMaterialRef is returned when a material list references a material
// that has not been read yet.
var ErrBadMaterialRef = errors.New("invalid material reference")

// FaceType is the primitive topology declared by a geometry's BinMesh.
type FaceType uint32

const (
	FaceTriangleList  FaceType = 0
	FaceTriangleStrip FaceType = 1
)

// Triangle is a face record from a geometry struct.
type Triangle struct {
	V          [3]uint16
	MaterialID uint16
}

// Texture is a texture reference inside a material.
type Texture struct {
	Name        string
	MaskName    string
	FilterFlags uint16
	Addressing  uint16
}

// Material is a surface description. Texture is nil for untextured materials.
type Material struct {
	Flags   uint32
	Color   [4]uint8 // RGBA
	Texture *Texture
}

// TextureName returns the bound texture name, or "" when untextured.
func (m *Material) TextureName() string {
	if m.Texture == nil {
		return ""
	}
	return m.Texture.Name
}

// Split is one BinMesh material split.
type Split struct {
	MaterialIndex uint32
	Indices       []uint32
}

// Geometry is a mesh with its material list and BinMesh splits.
type Geometry struct {
	Flags          uint16
	Native         bool
	FaceType       FaceType
	VertexCount    int
	Triangles      []Triangle
	VertexColors   []uint8     // 4 bytes per vertex, RGBA
	TexCoords      [][]float32 // one slice per UV set, 2 floats per vertex
	Vertices       []float32   // 3 floats per vertex, first morph target
	Normals        []float32
	BoundingSphere [4]float32
	Materials      []Material
	Splits         []Split
}

// HasVertexColors reports whether the geometry carries prelit colors.
func (g *Geometry) HasVertexColors() bool {
	return len(g.VertexColors) > 0
}

// ReadStruct reads a STRUCT header and returns a stream bounded to its body.
func (s *Stream) ReadStruct() (Header, *Stream, error) {
	h, err := s.ExpectHeader(ChunkStruct)
	if err != nil {
		return h, nil, err
	}
	if err := s.need(int(h.Length)); err != nil {
		return h, nil, err
	}
	return h, s.sub(int(h.Length)), nil
}

// ReadGeometry reads a GEOMETRY chunk: struct, material list and extension.
func (s *Stream) ReadGeometry() (*Geometry, error) {
	if _, err := s.ExpectHeader(ChunkGeometry); err != nil {
		return nil, err
	}
	h, body, err := s.ReadStruct()
	if err != nil {
		return nil, err
	}
	g := &Geometry{}
	if err := g.readStruct(body, h.Version); err != nil {
		return nil, fmt.Errorf("geometry struct: %w", err)
	}
	if g.Materials, err = s.readMaterialList(); err != nil {
		return nil, fmt.Errorf("material list: %w", err)
	}
	if err := s.walkExtension(g.readExtension); err != nil {
		return nil, fmt.Errorf("geometry extension: %w", err)
	}
	return g, nil
}

func (g *Geometry) readStruct(s *Stream, version uint32) error {
	flags, err := s.ReadU16()
	if err != nil {
		return err
	}
	numUV, err := s.ReadU8()
	if err != nil {
		return err
	}
	native, err := s.ReadU8()
	if err != nil {
		return err
	}
	g.Flags = flags
	g.Native = native != 0
	if numUV == 0 {
		if flags&GeometryTextured != 0 {
			numUV = 1
		}
		if flags&GeometryTextured2 != 0 {
			numUV = 2
		}
	}

	numTris, err := s.ReadU32()
	if err != nil {
		return err
	}
	numVerts, err := s.ReadU32()
	if err != nil {
		return err
	}
	numMorphs, err := s.ReadU32()
	if err != nil {
		return err
	}
	g.VertexCount = int(numVerts)

	// Pre-3.4 streams store surface lighting coefficients here.
	if version < 0x34000 {
		if err := s.Skip(12); err != nil {
			return err
		}
	}

	if !g.Native {
		if flags&GeometryPrelit != 0 {
			if g.VertexColors, err = s.ReadBytes(int(numVerts) * 4); err != nil {
				return err
			}
		}
		g.TexCoords = make([][]float32, numUV)
		for i := range g.TexCoords {
			if g.TexCoords[i], err = s.ReadFloats(int(numVerts) * 2); err != nil {
				return err
			}
		}
		if err := s.need(int(numTris) * 8); err != nil {
			return err
		}
		g.Triangles = make([]Triangle, numTris)
		for i := range g.Triangles {
			tri := &g.Triangles[i]
			tri.V[1], _ = s.ReadU16()
			tri.V[0], _ = s.ReadU16()
			tri.MaterialID, _ = s.ReadU16()
			tri.V[2], _ = s.ReadU16()
		}
	}

	for m := uint32(0); m < numMorphs; m++ {
		sphere, err := s.ReadFloats(4)
		if err != nil {
			return err
		}
		hasPositions, err := s.ReadU32()
		if err != nil {
			return err
		}
		hasNormals, err := s.ReadU32()
		if err != nil {
			return err
		}
		var positions, normals []float32
		if hasPositions != 0 && !g.Native {
			if positions, err = s.ReadFloats(int(numVerts) * 3); err != nil {
				return err
			}
		}
		if hasNormals != 0 && !g.Native {
			if normals, err = s.ReadFloats(int(numVerts) * 3); err != nil {
				return err
			}
		}
		// Only the base morph target is kept.
		if m == 0 {
			copy(g.BoundingSphere[:], sphere)
			g.Vertices = positions
			g.Normals = normals
		}
	}
	return nil
}

func (g *Geometry) readExtension(h Header, body *Stream) error {
	if h.Type != ChunkBinMesh {
		return nil
	}
	faceType, err := body.ReadU32()
	if err != nil {
		return err
	}
	numSplits, err := body.ReadU32()
	if err != nil {
		return err
	}
	if _, err := body.ReadU32(); err != nil { // total index count
		return err
	}
	g.FaceType = FaceType(faceType)
	g.Splits = make([]Split, 0, numSplits)
	for i := uint32(0); i < numSplits; i++ {
		count, err := body.ReadU32()
		if err != nil {
			return err
		}
		matIndex, err := body.ReadU32()
		if err != nil {
			return err
		}
		split := Split{MaterialIndex: matIndex}
		// Native geometry keeps its indices in the platform data instead.
		if !g.Native {
			if err := body.need(int(count) * 4); err != nil {
				return err
			}
			split.Indices = make([]uint32, count)
			for j := range split.Indices {
				split.Indices[j], _ = body.ReadU32()
			}
		}
		g.Splits = append(g.Splits, split)
	}
	return nil
}

func (s *Stream) readMaterialList() ([]Material, error) {
	if _, err := s.ExpectHeader(ChunkMaterialList); err != nil {
		return nil, err
	}
	_, body, err := s.ReadStruct()
	if err != nil {
		return nil, err
	}
	count, err := body.ReadU32()
	if err != nil {
		return nil, err
	}
	if err := body.need(int(count) * 4); err != nil {
		return nil, err
	}
	refs := make([]int32, count)
	for i := range refs {
		refs[i], _ = body.ReadI32()
	}

	materials := make([]Material, count)
	for i, ref := range refs {
		if ref >= 0 {
			// Instanced: shares an earlier material and has no chunk of its own.
			if int(ref) >= i {
				return nil, fmt.Errorf("%w: material %d refers to %d", ErrBadMaterialRef, i, ref)
			}
			materials[i] = materials[ref]
			continue
		}
		m, err := s.readMaterial()
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		materials[i] = m
	}
	return materials, nil
}

func (s *Stream) readMaterial() (Material, error) {
	var m Material
	if _, err := s.ExpectHeader(ChunkMaterial); err != nil {
		return m, err
	}
	_, body, err := s.ReadStruct()
	if err != nil {
		return m, err
	}
	if m.Flags, err = body.ReadU32(); err != nil {
		return m, err
	}
	color, err := body.ReadBytes(4)
	if err != nil {
		return m, err
	}
	copy(m.Color[:], color)
	if err := body.Skip(4); err != nil {
		return m, err
	}
	textured, err := body.ReadU32()
	if err != nil {
		return m, err
	}

	if textured != 0 {
		tex, err := s.readTexture()
		if err != nil {
			return m, fmt.Errorf("texture: %w", err)
		}
		m.Texture = tex
	}
	if err := s.SkipExtension(); err != nil {
		return m, err
	}
	return m, nil
}

func (s *Stream) readTexture() (*Texture, error) {
	if _, err := s.ExpectHeader(ChunkTexture); err != nil {
		return nil, err
	}
	_, body, err := s.ReadStruct()
	if err != nil {
		return nil, err
	}
	tex := &Texture{}
	if tex.FilterFlags, err = body.ReadU16(); err != nil {
		return nil, err
	}
	if tex.Addressing, err = body.ReadU16(); err != nil {
		return nil, err
	}
	if tex.Name, err = s.ReadString(); err != nil {
		return nil, err
	}
	if tex.MaskName, err = s.ReadString(); err != nil {
		return nil, err
	}
	if err := s.SkipExtension(); err != nil {
		return nil, err
	}
	return tex, nil
}
