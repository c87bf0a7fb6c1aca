package rw

import (
	"encoding/binary"
	"fmt"
)

// Decompress expands every DXT compressed level into 32-bit BGRA texels.
// It is a no-op for uncompressed textures.
func (t *NativeTexture) Decompress() error {
	if !t.IsCompressed() {
		return nil
	}
	for i := range t.Levels {
		lvl := &t.Levels[i]
		out, err := decodeDXT(t.Compression, lvl.Data, lvl.Width, lvl.Height)
		if err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
		lvl.Data = out
	}
	t.Compression = CompressionNone
	t.RasterFormat = t.RasterFormat&^rasterPixelMask | Raster8888
	t.Depth = 32
	return nil
}

// ConvertTo32Bit normalizes every level to 4 bytes per texel in B, G, R, A
// order, resolving palettes. Compressed textures must be decompressed first.
func (t *NativeTexture) ConvertTo32Bit() error {
	if t.IsCompressed() {
		return fmt.Errorf("%w: texture %q is still compressed", ErrUnsupportedRaster, t.Name)
	}
	for i := range t.Levels {
		lvl := &t.Levels[i]
		out, err := t.convertLevel(lvl)
		if err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
		lvl.Data = out
	}
	t.RasterFormat = t.RasterFormat&^(rasterPixelMask|RasterPAL4|RasterPAL8) | Raster8888
	t.Palette = nil
	t.Depth = 32
	return nil
}

func (t *NativeTexture) convertLevel(lvl *MipLevel) ([]byte, error) {
	n := lvl.Width * lvl.Height
	src := lvl.Data
	out := make([]byte, n*4)

	if t.RasterFormat&(RasterPAL8|RasterPAL4) != 0 {
		packed := len(src) < n
		if (packed && len(src) < (n+1)/2) || len(t.Palette) == 0 {
			return nil, fmt.Errorf("%w: paletted data too short", ErrTruncatedStream)
		}
		for i := 0; i < n; i++ {
			var idx int
			if packed {
				idx = int(src[i/2]>>(4*(i%2))) & 0x0F
			} else {
				idx = int(src[i])
			}
			p := idx * 4
			if p+4 > len(t.Palette) {
				return nil, fmt.Errorf("%w: palette index %d out of range", ErrUnsupportedRaster, idx)
			}
			out[i*4+0] = t.Palette[p+2]
			out[i*4+1] = t.Palette[p+1]
			out[i*4+2] = t.Palette[p+0]
			out[i*4+3] = t.Palette[p+3]
		}
		return out, nil
	}

	format := t.RasterFormat & rasterPixelMask
	switch format {
	case Raster8888:
		if len(src) < n*4 {
			return nil, fmt.Errorf("%w: 8888 data too short", ErrTruncatedStream)
		}
		copy(out, src)
	case Raster888:
		stride := 4
		if t.Depth == 24 {
			stride = 3
		}
		if len(src) < n*stride {
			return nil, fmt.Errorf("%w: 888 data too short", ErrTruncatedStream)
		}
		for i := 0; i < n; i++ {
			copy(out[i*4:i*4+3], src[i*stride:i*stride+3])
			out[i*4+3] = 0xFF
		}
	case RasterLUM8:
		if len(src) < n {
			return nil, fmt.Errorf("%w: LUM8 data too short", ErrTruncatedStream)
		}
		for i := 0; i < n; i++ {
			out[i*4+0], out[i*4+1], out[i*4+2], out[i*4+3] = src[i], src[i], src[i], 0xFF
		}
	case Raster1555, Raster555, Raster565, Raster4444:
		if len(src) < n*2 {
			return nil, fmt.Errorf("%w: 16-bit data too short", ErrTruncatedStream)
		}
		for i := 0; i < n; i++ {
			b, g, r, a := unpack16(format, binary.LittleEndian.Uint16(src[i*2:]))
			out[i*4+0], out[i*4+1], out[i*4+2], out[i*4+3] = b, g, r, a
		}
	default:
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupportedRaster, t.RasterFormat)
	}
	return out, nil
}

func unpack16(format uint32, v uint16) (b, g, r, a uint8) {
	switch format {
	case Raster1555, Raster555:
		r = expand5(uint8(v>>10&0x1F))
		g = expand5(uint8(v>>5&0x1F))
		b = expand5(uint8(v & 0x1F))
		a = 0xFF
		if format == Raster1555 && v&0x8000 == 0 {
			a = 0
		}
	case Raster565:
		r = expand5(uint8(v>>11&0x1F))
		g = expand6(uint8(v>>5&0x3F))
		b = expand5(uint8(v & 0x1F))
		a = 0xFF
	case Raster4444:
		a = uint8(v>>12&0xF) * 17
		r = uint8(v>>8&0xF) * 17
		g = uint8(v>>4&0xF) * 17
		b = uint8(v&0xF) * 17
	}
	return b, g, r, a
}

func expand5(x uint8) uint8 { return x<<3 | x>>2 }
func expand6(x uint8) uint8 { return x<<2 | x>>4 }
