// Package rw provides readers for the RenderWare binary stream format used by
// GTA model (.dff) and texture dictionary (.txd) files.
package rw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Stream errors.
var (
	ErrTruncatedStream     = errors.New("truncated stream")
	ErrUnexpectedChunkType = errors.New("unexpected chunk type")
)

// HeaderSize is the width of every chunk header.
const HeaderSize = 12

// ChunkTypeError reports a header that does not match the expected chunk type.
type ChunkTypeError struct {
	Want   ChunkType
	Got    ChunkType
	Offset int
}

func (e *ChunkTypeError) Error() string {
	return fmt.Sprintf("unexpected chunk type at offset 0x%x: want %s, got %s", e.Offset, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrUnexpectedChunkType) match.
func (e *ChunkTypeError) Is(target error) bool {
	return target == ErrUnexpectedChunkType
}

// Header is a decoded chunk header.
type Header struct {
	Type    ChunkType
	Length  uint32
	Version uint32
	Build   uint32
}

// Stream is a forward-only little-endian reader over a RenderWare byte stream.
type Stream struct {
	data []byte
	pos  int
}

// NewStream creates a stream over data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data}
}

// Pos returns the current offset.
func (s *Stream) Pos() int { return s.pos }

// Len returns the number of unread bytes.
func (s *Stream) Len() int { return len(s.data) - s.pos }

func (s *Stream) need(n int) error {
	if n < 0 || s.Len() < n {
		return fmt.Errorf("%w: need %d bytes at offset 0x%x, have %d", ErrTruncatedStream, n, s.pos, s.Len())
	}
	return nil
}

// ReadHeader reads a chunk header and decodes its library version stamp.
func (s *Stream) ReadHeader() (Header, error) {
	if err := s.need(HeaderSize); err != nil {
		return Header{}, err
	}
	b := s.data[s.pos:]
	h := Header{
		Type:   ChunkType(binary.LittleEndian.Uint32(b)),
		Length: binary.LittleEndian.Uint32(b[4:]),
	}
	h.Version, h.Build = decodeLibraryID(binary.LittleEndian.Uint32(b[8:]))
	s.pos += HeaderSize
	return h, nil
}

// decodeLibraryID handles both header shapes: packed library IDs (3.1+) and
// the plain version numbers written by older exporters.
func decodeLibraryID(id uint32) (version, build uint32) {
	if id&0xFFFF0000 != 0 {
		version = ((id>>14)&0x3FF00 + 0x30000) | (id>>16)&0x3F
		build = id & 0xFFFF
		return version, build
	}
	return id << 8, 0
}

// ExpectHeader reads a header and fails unless it has the given type.
func (s *Stream) ExpectHeader(t ChunkType) (Header, error) {
	offset := s.pos
	h, err := s.ReadHeader()
	if err != nil {
		return h, err
	}
	if h.Type != t {
		return h, &ChunkTypeError{Want: t, Got: h.Type, Offset: offset}
	}
	return h, nil
}

// ReadU8 reads an unsigned byte.
func (s *Stream) ReadU8() (uint8, error) {
	if err := s.need(1); err != nil {
		return 0, err
	}
	v := s.data[s.pos]
	s.pos++
	return v, nil
}

// ReadU16 reads a little-endian uint16.
func (s *Stream) ReadU16() (uint16, error) {
	if err := s.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadU32 reads a little-endian uint32.
func (s *Stream) ReadU32() (uint32, error) {
	if err := s.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// ReadI32 reads a little-endian int32.
func (s *Stream) ReadI32() (int32, error) {
	v, err := s.ReadU32()
	return int32(v), err
}

// ReadF32 reads a little-endian IEEE 754 float.
func (s *Stream) ReadF32() (float32, error) {
	v, err := s.ReadU32()
	return math.Float32frombits(v), err
}

// ReadFloats reads n consecutive floats.
func (s *Stream) ReadFloats(n int) ([]float32, error) {
	if err := s.need(n * 4); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(s.data[s.pos:]))
		s.pos += 4
	}
	return out, nil
}

// ReadBytes returns the next n bytes. The slice is a copy.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if err := s.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:])
	s.pos += n
	return out, nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (s *Stream) Skip(n int) error {
	if err := s.need(n); err != nil {
		return err
	}
	s.pos += n
	return nil
}

// sub returns a stream over the next n bytes and advances past them.
// Callers check the bound first.
func (s *Stream) sub(n int) *Stream {
	body := &Stream{data: s.data[s.pos : s.pos+n]}
	s.pos += n
	return body
}

// SkipChunk skips the body of a chunk whose header has already been read.
func (s *Stream) SkipChunk(h Header) error {
	return s.Skip(int(h.Length))
}
