package amf

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Encode serializes f.
func Encode(f *File) []byte {
	var e encoder
	e.strings(f.TextureNames)
	e.u16(uint16(len(f.Frames)))
	for i := range f.Frames {
		fr := &f.Frames[i]
		e.u16(fr.Index)
		e.u16(fr.Parent)
		e.bool(fr.Damaged)
		e.str(fr.Name)
		e.str(fr.Geometry.FaceType)

		e.u32(uint32(len(fr.Geometry.Textures)))
		for _, t := range fr.Geometry.Textures {
			e.str(t.Name)
			e.u32(uint32(len(t.Indices)))
			e.write(t.Indices)
			e.buf.Write(t.Color[:])
		}

		e.u32(uint32(len(fr.Geometry.TexCoords)))
		e.write(fr.Geometry.TexCoords)
		e.u32(uint32(len(fr.Geometry.Vertices)))
		e.write(fr.Geometry.Vertices)
		e.u32(uint32(len(fr.Geometry.Colors)))
		e.write(fr.Geometry.Colors)
	}
	return e.buf.Bytes()
}

// Write serializes f to w in a single write.
func Write(w io.Writer, f *File) error {
	_, err := w.Write(Encode(f))
	return err
}

type encoder struct {
	buf bytes.Buffer
}

// write emits fixed-size values. Writes to a bytes.Buffer cannot fail.
func (e *encoder) write(v any) {
	_ = binary.Write(&e.buf, binary.LittleEndian, v)
}

func (e *encoder) u16(v uint16) { e.write(v) }
func (e *encoder) u32(v uint32) { e.write(v) }

func (e *encoder) bool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

// str writes a length byte and the raw bytes, cut to MaxStringLen.
func (e *encoder) str(s string) {
	if len(s) > MaxStringLen {
		s = s[:MaxStringLen]
	}
	e.buf.WriteByte(uint8(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) strings(ss []string) {
	e.u32(uint32(len(ss)))
	for _, s := range ss {
		e.str(s)
	}
}
