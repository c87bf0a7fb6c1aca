package rw

import (
	"fmt"

	"github.com/Faultbox/rwexport/pkg/encoding"
)

// ChunkType identifies a section in a RenderWare stream.
type ChunkType uint32

// Chunk types understood by this package.
const (
	ChunkStruct        ChunkType = 0x01
	ChunkString        ChunkType = 0x02
	ChunkExtension     ChunkType = 0x03
	ChunkTexture       ChunkType = 0x06
	ChunkMaterial      ChunkType = 0x07
	ChunkMaterialList  ChunkType = 0x08
	ChunkFrameList     ChunkType = 0x0E
	ChunkGeometry      ChunkType = 0x0F
	ChunkClump         ChunkType = 0x10
	ChunkLight         ChunkType = 0x12
	ChunkAtomic        ChunkType = 0x14
	ChunkTextureNative ChunkType = 0x15
	ChunkTexDictionary ChunkType = 0x16
	ChunkGeometryList  ChunkType = 0x1A
	ChunkBinMesh       ChunkType = 0x50E
	ChunkNodeName      ChunkType = 0x253F2FE
)

var chunkNames = map[ChunkType]string{
	ChunkStruct:        "Struct",
	ChunkString:        "String",
	ChunkExtension:     "Extension",
	ChunkTexture:       "Texture",
	ChunkMaterial:      "Material",
	ChunkMaterialList:  "MaterialList",
	ChunkFrameList:     "FrameList",
	ChunkGeometry:      "Geometry",
	ChunkClump:         "Clump",
	ChunkLight:         "Light",
	ChunkAtomic:        "Atomic",
	ChunkTextureNative: "TextureNative",
	ChunkTexDictionary: "TexDictionary",
	ChunkGeometryList:  "GeometryList",
	ChunkBinMesh:       "BinMesh",
	ChunkNodeName:      "NodeName",
}

// String returns a human-readable chunk type name.
func (t ChunkType) String() string {
	if name, ok := chunkNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%X)", uint32(t))
}

// ReadString reads a STRING chunk and returns its null-terminated contents.
func (s *Stream) ReadString() (string, error) {
	h, err := s.ExpectHeader(ChunkString)
	if err != nil {
		return "", err
	}
	buf, err := s.ReadBytes(int(h.Length))
	if err != nil {
		return "", err
	}
	return encoding.FixedStringToUTF8(buf), nil
}

// SkipExtension consumes an EXTENSION chunk without looking inside it.
func (s *Stream) SkipExtension() error {
	h, err := s.ExpectHeader(ChunkExtension)
	if err != nil {
		return err
	}
	return s.SkipChunk(h)
}

// walkExtension reads an EXTENSION chunk and calls visit for each sub-chunk
// with a stream bounded to that sub-chunk's body. Sub-chunks are stepped over
// by their declared length whatever visit consumed, so unknown plugins are
// never interpreted. Trailing bytes too short to hold a header are padding.
func (s *Stream) walkExtension(visit func(h Header, body *Stream) error) error {
	h, err := s.ExpectHeader(ChunkExtension)
	if err != nil {
		return err
	}
	if err := s.need(int(h.Length)); err != nil {
		return err
	}
	base := s.pos
	ext := s.sub(int(h.Length))
	for ext.Len() >= HeaderSize {
		sub, err := ext.ReadHeader()
		if err != nil {
			return err
		}
		if int(sub.Length) > ext.Len() {
			return fmt.Errorf("%w: %s sub-chunk overruns extension at offset 0x%x",
				ErrTruncatedStream, sub.Type, base+ext.pos-HeaderSize)
		}
		body := ext.sub(int(sub.Length))
		if err := visit(sub, body); err != nil {
			return fmt.Errorf("reading %s extension: %w", sub.Type, err)
		}
	}
	return nil
}
