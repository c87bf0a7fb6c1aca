package amf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Decode parses an AMF model. The matrix is not part of the encoding and
// is left zero.
func Decode(data []byte) (*File, error) {
	d := decoder{r: bytes.NewReader(data)}

	f := &File{}
	var err error
	if f.TextureNames, err = d.strings(); err != nil {
		return nil, fmt.Errorf("reading texture names: %w", err)
	}

	var frameCount uint16
	if err := d.read(&frameCount); err != nil {
		return nil, fmt.Errorf("reading frame count: %w", err)
	}
	f.Frames = make([]Frame, frameCount)
	for i := range f.Frames {
		if err := d.frame(&f.Frames[i]); err != nil {
			return nil, fmt.Errorf("reading frame %d: %w", i, err)
		}
	}
	return f, nil
}

// DecodeFile parses an AMF model from disk.
func DecodeFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading AMF file: %w", err)
	}
	return Decode(data)
}

type decoder struct {
	r *bytes.Reader
}

func (d *decoder) read(v any) error {
	if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
		return ErrTruncatedAMFData
	}
	return nil
}

func (d *decoder) str() (string, error) {
	n, err := d.r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: reading string length", ErrTruncatedAMFData)
	}
	b := make([]byte, n)
	if err := d.read(b); err != nil {
		return "", fmt.Errorf("%w: reading %d-byte string", ErrTruncatedAMFData, n)
	}
	return string(b), nil
}

// count reads a sequence length and rejects counts the remaining data
// cannot hold at elemSize bytes per element.
func (d *decoder) count(elemSize int) (int, error) {
	var n uint32
	if err := d.read(&n); err != nil {
		return 0, fmt.Errorf("%w: reading sequence length", ErrTruncatedAMFData)
	}
	if int64(n)*int64(elemSize) > int64(d.r.Len()) {
		return 0, fmt.Errorf("%w: %d elements of %d bytes", ErrTruncatedAMFData, n, elemSize)
	}
	return int(n), nil
}

func (d *decoder) strings() ([]string, error) {
	n, err := d.count(1)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = d.str(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) frame(fr *Frame) error {
	var damaged uint8
	for _, v := range []any{&fr.Index, &fr.Parent, &damaged} {
		if err := d.read(v); err != nil {
			return err
		}
	}
	fr.Damaged = damaged != 0

	var err error
	if fr.Name, err = d.str(); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	g := &fr.Geometry
	if g.FaceType, err = d.str(); err != nil {
		return fmt.Errorf("face type: %w", err)
	}

	// Each texture is at least a length byte, an index count and a color.
	n, err := d.count(9)
	if err != nil {
		return fmt.Errorf("textures: %w", err)
	}
	g.Textures = make([]Texture, n)
	for i := range g.Textures {
		t := &g.Textures[i]
		if t.Name, err = d.str(); err != nil {
			return fmt.Errorf("texture %d: %w", i, err)
		}
		m, err := d.count(4)
		if err != nil {
			return fmt.Errorf("texture %d indices: %w", i, err)
		}
		t.Indices = make([]uint32, m)
		if err := d.read(t.Indices); err != nil {
			return fmt.Errorf("texture %d indices: %w", i, err)
		}
		if err := d.read(&t.Color); err != nil {
			return fmt.Errorf("texture %d color: %w", i, err)
		}
	}

	if n, err = d.count(8); err != nil {
		return fmt.Errorf("texcoords: %w", err)
	}
	g.TexCoords = make([]TexCoord, n)
	if err := d.read(g.TexCoords); err != nil {
		return fmt.Errorf("texcoords: %w", err)
	}

	if n, err = d.count(12); err != nil {
		return fmt.Errorf("vertices: %w", err)
	}
	g.Vertices = make([]Vertex, n)
	if err := d.read(g.Vertices); err != nil {
		return fmt.Errorf("vertices: %w", err)
	}

	if n, err = d.count(4); err != nil {
		return fmt.Errorf("vertex colors: %w", err)
	}
	g.Colors = make([]uint32, n)
	if err := d.read(g.Colors); err != nil {
		return fmt.Errorf("vertex colors: %w", err)
	}
	return nil
}
