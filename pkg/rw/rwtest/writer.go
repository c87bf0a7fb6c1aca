// Package rwtest builds RenderWare streams for tests.
package rwtest

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/rwexport/pkg/encoding"
	"github.com/Faultbox/rwexport/pkg/rw"
)

// LibraryID is the version stamp written into every header (3.6.0.3, build 0xFFFF).
const LibraryID uint32 = 0x1803FFFF

// Writer assembles chunks with back-patched lengths.
type Writer struct {
	buf bytes.Buffer
}

// Bytes returns the assembled stream.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Header writes a raw chunk header.
func (w *Writer) Header(t rw.ChunkType, length uint32) {
	w.U32(uint32(t))
	w.U32(length)
	w.U32(LibraryID)
}

// Chunk writes a chunk whose body is produced by fn.
func (w *Writer) Chunk(t rw.ChunkType, fn func(w *Writer)) {
	start := w.buf.Len()
	w.Header(t, 0)
	if fn != nil {
		fn(w)
	}
	length := uint32(w.buf.Len() - start - rw.HeaderSize)
	binary.LittleEndian.PutUint32(w.buf.Bytes()[start+4:], length)
}

// U8 writes a byte.
func (w *Writer) U8(v uint8) { w.buf.WriteByte(v) }

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) { binary.Write(&w.buf, binary.LittleEndian, v) }

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) { binary.Write(&w.buf, binary.LittleEndian, v) }

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) { binary.Write(&w.buf, binary.LittleEndian, v) }

// F32 writes little-endian floats.
func (w *Writer) F32(v ...float32) { binary.Write(&w.buf, binary.LittleEndian, v) }

// Raw writes bytes as-is.
func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

// Fixed writes s as Windows-1252, null-padded to size bytes.
func (w *Writer) Fixed(s string, size int) {
	w.buf.Write(encoding.UTF8ToFixedString(s, size))
}

// String writes a STRING chunk padded to a multiple of four bytes.
func (w *Writer) String(s string) {
	w.Chunk(rw.ChunkString, func(w *Writer) {
		w.Fixed(s, (len(s)+4)&^3)
	})
}

// Extension writes an EXTENSION chunk holding the given plugins.
func (w *Writer) Extension(plugins ...Plugin) {
	w.Chunk(rw.ChunkExtension, func(w *Writer) {
		for _, p := range plugins {
			w.Chunk(p.Type, func(w *Writer) { w.Raw(p.Data) })
		}
	})
}

// Plugin is an extension sub-chunk.
type Plugin struct {
	Type rw.ChunkType
	Data []byte
}
