package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/Faultbox/rwexport/internal/config"
	"github.com/Faultbox/rwexport/pkg/rw"
)

// textureImage decodes the base level of a native texture. Texels come out
// of the raster conversion as BGRA and are reordered to RGBA here.
func textureImage(tex *rw.NativeTexture) (*image.NRGBA, error) {
	if tex.IsCompressed() {
		if err := tex.Decompress(); err != nil {
			return nil, err
		}
	}
	if err := tex.ConvertTo32Bit(); err != nil {
		return nil, err
	}

	w, h := tex.Width(), tex.Height()
	texels := tex.Texels(0)
	if len(texels) < w*h*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d texels", rw.ErrTruncatedStream, len(texels), w, h)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		src := texels[i*4 : i*4+4]
		dst := img.Pix[i*4 : i*4+4]
		dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], src[3]
	}
	return img, nil
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case config.TexturePNG:
		err = png.Encode(&buf, img)
	case config.TextureBMP:
		err = bmp.Encode(&buf, img)
	case config.TextureTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("unknown texture format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
