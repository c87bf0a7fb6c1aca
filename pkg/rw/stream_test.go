package rw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func makeHeader(t ChunkType, length, libraryID uint32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(t))
	binary.Write(&buf, binary.LittleEndian, length)
	binary.Write(&buf, binary.LittleEndian, libraryID)
	return buf.Bytes()
}

func TestDecodeLibraryID(t *testing.T) {
	tests := []struct {
		name        string
		id          uint32
		wantVersion uint32
		wantBuild   uint32
	}{
		{"GTA SA stamp", 0x1803FFFF, 0x36003, 0xFFFF},
		{"GTA VC stamp", 0x0C02FFFF, 0x33002, 0xFFFF},
		{"plain 3.1", 0x310, 0x31000, 0},
		{"plain 3.0", 0x302, 0x30200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, b := decodeLibraryID(tt.id)
			if v != tt.wantVersion || b != tt.wantBuild {
				t.Errorf("decodeLibraryID(0x%x) = (0x%x, 0x%x), want (0x%x, 0x%x)",
					tt.id, v, b, tt.wantVersion, tt.wantBuild)
			}
		})
	}
}

func TestReadHeader(t *testing.T) {
	s := NewStream(makeHeader(ChunkClump, 0x1234, 0x1803FFFF))
	h, err := s.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if h.Type != ChunkClump || h.Length != 0x1234 || h.Version != 0x36003 {
		t.Errorf("header = %+v", h)
	}
	if s.Pos() != HeaderSize || s.Len() != 0 {
		t.Errorf("cursor at %d with %d left", s.Pos(), s.Len())
	}
}

func TestReadHeader_Truncated(t *testing.T) {
	s := NewStream(makeHeader(ChunkClump, 0, 0)[:HeaderSize-1])
	if _, err := s.ReadHeader(); !errors.Is(err, ErrTruncatedStream) {
		t.Errorf("expected ErrTruncatedStream, got %v", err)
	}
}

func TestExpectHeader_Mismatch(t *testing.T) {
	s := NewStream(makeHeader(ChunkGeometryList, 4, 0x1803FFFF))
	_, err := s.ExpectHeader(ChunkFrameList)
	if !errors.Is(err, ErrUnexpectedChunkType) {
		t.Fatalf("expected ErrUnexpectedChunkType, got %v", err)
	}
	var typeErr *ChunkTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected *ChunkTypeError, got %T", err)
	}
	if typeErr.Want != ChunkFrameList || typeErr.Got != ChunkGeometryList || typeErr.Offset != 0 {
		t.Errorf("ChunkTypeError = %+v", typeErr)
	}
}

func TestScalarReads(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint8(7))
	binary.Write(&buf, binary.LittleEndian, uint16(0xBEEF))
	binary.Write(&buf, binary.LittleEndian, uint32(0xDEADBEEF))
	binary.Write(&buf, binary.LittleEndian, int32(-1))
	binary.Write(&buf, binary.LittleEndian, float32(1.5))

	s := NewStream(buf.Bytes())
	u8, _ := s.ReadU8()
	u16, _ := s.ReadU16()
	u32, _ := s.ReadU32()
	i32, _ := s.ReadI32()
	f32, err := s.ReadF32()
	if err != nil {
		t.Fatalf("reads failed: %v", err)
	}
	if u8 != 7 || u16 != 0xBEEF || u32 != 0xDEADBEEF || i32 != -1 || f32 != 1.5 {
		t.Errorf("got %d %x %x %d %f", u8, u16, u32, i32, f32)
	}

	if _, err := s.ReadU32(); !errors.Is(err, ErrTruncatedStream) {
		t.Errorf("read past end: expected ErrTruncatedStream, got %v", err)
	}
	if _, err := s.ReadI32(); !errors.Is(err, ErrTruncatedStream) {
		t.Errorf("ReadI32 past end: expected ErrTruncatedStream, got %v", err)
	}
}

func TestSkip(t *testing.T) {
	s := NewStream(make([]byte, 8))
	if err := s.Skip(4); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if s.Pos() != 4 {
		t.Errorf("Pos = %d, want 4", s.Pos())
	}
	if err := s.Skip(5); !errors.Is(err, ErrTruncatedStream) {
		t.Errorf("expected ErrTruncatedStream, got %v", err)
	}
	if s.Pos() != 4 {
		t.Errorf("failed Skip moved cursor to %d", s.Pos())
	}
}

func TestChunkType_String(t *testing.T) {
	tests := []struct {
		chunk ChunkType
		want  string
	}{
		{ChunkClump, "Clump"},
		{ChunkFrameList, "FrameList"},
		{ChunkNodeName, "NodeName"},
		{ChunkType(0x253F2FA), "Unknown(0x253F2FA)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.chunk.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
