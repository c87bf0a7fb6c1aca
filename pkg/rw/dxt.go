package rw

import "fmt"

// decodeDXT expands DXT1/3/5 blocks into width*height BGRA texels.
func decodeDXT(compression uint8, src []byte, width, height int) ([]byte, error) {
	blockSize := 16
	if compression == CompressionDXT1 {
		blockSize = 8
	} else if compression != CompressionDXT3 && compression != CompressionDXT5 {
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupportedRaster, compression)
	}

	bw, bh := (width+3)/4, (height+3)/4
	if len(src) < bw*bh*blockSize {
		return nil, fmt.Errorf("%w: DXT%d level %dx%d needs %d bytes, have %d",
			ErrTruncatedStream, compression, width, height, bw*bh*blockSize, len(src))
	}

	out := make([]byte, width*height*4)
	var block [16][4]uint8
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			b := src[(by*bw+bx)*blockSize:]
			switch compression {
			case CompressionDXT1:
				decodeColorBlock(b[:8], &block, true)
			case CompressionDXT3:
				decodeColorBlock(b[8:16], &block, false)
				for i := 0; i < 16; i++ {
					a := (b[i/2] >> (4 * (i % 2))) & 0x0F
					block[i][3] = a * 17
				}
			case CompressionDXT5:
				decodeColorBlock(b[8:16], &block, false)
				decodeAlphaBlock(b[:8], &block)
			}

			for py := 0; py < 4; py++ {
				y := by*4 + py
				if y >= height {
					break
				}
				for px := 0; px < 4; px++ {
					x := bx*4 + px
					if x >= width {
						break
					}
					copy(out[(y*width+x)*4:], block[py*4+px][:])
				}
			}
		}
	}
	return out, nil
}

// decodeColorBlock fills BGRA texels from an 8-byte color block. DXT1 blocks
// with c0 <= c1 use the three-color mode with transparent black.
func decodeColorBlock(b []byte, block *[16][4]uint8, dxt1 bool) {
	c0 := uint16(b[0]) | uint16(b[1])<<8
	c1 := uint16(b[2]) | uint16(b[3])<<8
	bits := uint32(b[4]) | uint32(b[5])<<8 | uint32(b[6])<<16 | uint32(b[7])<<24

	var palette [4][4]uint8
	b0, g0, r0, _ := unpack16(Raster565, c0)
	b1, g1, r1, _ := unpack16(Raster565, c1)
	palette[0] = [4]uint8{b0, g0, r0, 0xFF}
	palette[1] = [4]uint8{b1, g1, r1, 0xFF}
	if c0 > c1 || !dxt1 {
		palette[2] = lerpColor(palette[0], palette[1], 2, 1)
		palette[3] = lerpColor(palette[0], palette[1], 1, 2)
	} else {
		palette[2] = lerpColor(palette[0], palette[1], 1, 1)
		palette[3] = [4]uint8{0, 0, 0, 0}
	}

	for i := 0; i < 16; i++ {
		block[i] = palette[bits>>(2*i)&0x03]
	}
}

func lerpColor(a, b [4]uint8, wa, wb int) [4]uint8 {
	var c [4]uint8
	for i := 0; i < 3; i++ {
		c[i] = uint8((int(a[i])*wa + int(b[i])*wb) / (wa + wb))
	}
	c[3] = 0xFF
	return c
}

// decodeAlphaBlock applies an interpolated DXT5 alpha block.
func decodeAlphaBlock(b []byte, block *[16][4]uint8) {
	a0, a1 := int(b[0]), int(b[1])
	var alpha [8]uint8
	alpha[0], alpha[1] = uint8(a0), uint8(a1)
	if a0 > a1 {
		for i := 1; i < 7; i++ {
			alpha[i+1] = uint8(((7-i)*a0 + i*a1) / 7)
		}
	} else {
		for i := 1; i < 5; i++ {
			alpha[i+1] = uint8(((5-i)*a0 + i*a1) / 5)
		}
		alpha[6], alpha[7] = 0, 0xFF
	}

	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(b[2+i]) << (8 * i)
	}
	for i := 0; i < 16; i++ {
		block[i][3] = alpha[bits>>(3*i)&0x07]
	}
}
