package rw

import (
	"errors"
	"fmt"

	"github.com/Faultbox/rwexport/pkg/encoding"
)

// Texture dictionary errors.
var (
	ErrUnsupportedPlatform = errors.New("unsupported texture platform")
	ErrUnsupportedRaster   = errors.New("unsupported raster format")
)

// Native texture platforms.
const (
	PlatformD3D8 uint32 = 8
	PlatformD3D9 uint32 = 9
)

// Raster format bits.
const (
	RasterDefault    uint32 = 0x0000
	Raster1555       uint32 = 0x0100
	Raster565        uint32 = 0x0200
	Raster4444       uint32 = 0x0300
	RasterLUM8       uint32 = 0x0400
	Raster8888       uint32 = 0x0500
	Raster888        uint32 = 0x0600
	Raster555        uint32 = 0x0A00
	RasterAutoMipmap uint32 = 0x1000
	RasterPAL8       uint32 = 0x2000
	RasterPAL4       uint32 = 0x4000
	RasterMipmap     uint32 = 0x8000

	rasterPixelMask uint32 = 0x0F00
)

// Compression schemes.
const (
	CompressionNone uint8 = 0
	CompressionDXT1 uint8 = 1
	CompressionDXT3 uint8 = 3
	CompressionDXT5 uint8 = 5
)

// MipLevel is one level of a texture's mipmap chain.
type MipLevel struct {
	Width  int
	Height int
	Data   []byte
}

// NativeTexture is a PC (Direct3D 8/9) native texture.
type NativeTexture struct {
	Platform     uint32
	FilterFlags  uint32
	Name         string
	MaskName     string
	RasterFormat uint32
	D3DFormat    uint32
	HasAlpha     bool
	Depth        uint8
	RasterType   uint8
	Compression  uint8
	Palette      []byte // RGBA entries
	Levels       []MipLevel
}

// TextureDictionary is a parsed .txd file.
type TextureDictionary struct {
	DeviceID uint16
	Textures []*NativeTexture
}

// ParseTextureDictionary parses a texture dictionary from a byte slice.
func ParseTextureDictionary(data []byte) (*TextureDictionary, error) {
	return NewStream(data).ReadTextureDictionary()
}

// ReadTextureDictionary reads a TEXDICTIONARY chunk.
func (s *Stream) ReadTextureDictionary() (*TextureDictionary, error) {
	if _, err := s.ExpectHeader(ChunkTexDictionary); err != nil {
		return nil, err
	}
	_, body, err := s.ReadStruct()
	if err != nil {
		return nil, err
	}
	count, err := body.ReadU16()
	if err != nil {
		return nil, err
	}
	txd := &TextureDictionary{}
	if body.Len() >= 2 {
		txd.DeviceID, _ = body.ReadU16()
	}

	txd.Textures = make([]*NativeTexture, 0, count)
	for i := 0; i < int(count); i++ {
		tex, err := s.ReadNativeTexture()
		if err != nil {
			return nil, fmt.Errorf("texture %d: %w", i, err)
		}
		txd.Textures = append(txd.Textures, tex)
	}
	return txd, nil
}

// ReadNativeTexture reads a TEXTURENATIVE chunk.
func (s *Stream) ReadNativeTexture() (*NativeTexture, error) {
	if _, err := s.ExpectHeader(ChunkTextureNative); err != nil {
		return nil, err
	}
	_, body, err := s.ReadStruct()
	if err != nil {
		return nil, err
	}
	t := &NativeTexture{}
	if err := t.readStruct(body); err != nil {
		return nil, err
	}
	if err := s.SkipExtension(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *NativeTexture) readStruct(s *Stream) error {
	var err error
	if t.Platform, err = s.ReadU32(); err != nil {
		return err
	}
	if t.Platform != PlatformD3D8 && t.Platform != PlatformD3D9 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedPlatform, t.Platform)
	}
	if t.FilterFlags, err = s.ReadU32(); err != nil {
		return err
	}
	names, err := s.ReadBytes(64)
	if err != nil {
		return err
	}
	t.Name = encoding.FixedStringToUTF8(names[:32])
	t.MaskName = encoding.FixedStringToUTF8(names[32:])

	if t.RasterFormat, err = s.ReadU32(); err != nil {
		return err
	}
	alphaOrFormat, err := s.ReadU32()
	if err != nil {
		return err
	}
	width, err := s.ReadU16()
	if err != nil {
		return err
	}
	height, err := s.ReadU16()
	if err != nil {
		return err
	}
	if t.Depth, err = s.ReadU8(); err != nil {
		return err
	}
	numLevels, err := s.ReadU8()
	if err != nil {
		return err
	}
	if t.RasterType, err = s.ReadU8(); err != nil {
		return err
	}
	last, err := s.ReadU8()
	if err != nil {
		return err
	}

	if t.Platform == PlatformD3D9 {
		t.D3DFormat = alphaOrFormat
		t.HasAlpha = last&0x01 != 0
		if last&0x08 != 0 {
			t.Compression = compressionFromFourCC(alphaOrFormat)
		}
	} else {
		t.HasAlpha = alphaOrFormat != 0
		t.Compression = last
	}

	switch {
	case t.RasterFormat&RasterPAL8 != 0:
		t.Palette, err = s.ReadBytes(256 * 4)
	case t.RasterFormat&RasterPAL4 != 0:
		t.Palette, err = s.ReadBytes(32 * 4)
	}
	if err != nil {
		return err
	}

	t.Levels = make([]MipLevel, 0, numLevels)
	w, h := int(width), int(height)
	for i := 0; i < int(numLevels); i++ {
		size, err := s.ReadU32()
		if err != nil {
			return err
		}
		data, err := s.ReadBytes(int(size))
		if err != nil {
			return fmt.Errorf("mip level %d: %w", i, err)
		}
		t.Levels = append(t.Levels, MipLevel{Width: w, Height: h, Data: data})
		w, h = max(w/2, 1), max(h/2, 1)
	}
	return nil
}

func compressionFromFourCC(fourCC uint32) uint8 {
	switch fourCC {
	case 0x31545844: // "DXT1"
		return CompressionDXT1
	case 0x33545844: // "DXT3"
		return CompressionDXT3
	case 0x35545844: // "DXT5"
		return CompressionDXT5
	}
	return CompressionNone
}

// Width returns the width of the base level.
func (t *NativeTexture) Width() int {
	if len(t.Levels) == 0 {
		return 0
	}
	return t.Levels[0].Width
}

// Height returns the height of the base level.
func (t *NativeTexture) Height() int {
	if len(t.Levels) == 0 {
		return 0
	}
	return t.Levels[0].Height
}

// IsCompressed reports whether the texel data is block compressed.
func (t *NativeTexture) IsCompressed() bool {
	return t.Compression != CompressionNone
}

// Texels returns the raw bytes of a mip level, or nil if it does not exist.
func (t *NativeTexture) Texels(level int) []byte {
	if level < 0 || level >= len(t.Levels) {
		return nil
	}
	return t.Levels[level].Data
}
