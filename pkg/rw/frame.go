package rw

import "github.com/Faultbox/rwexport/pkg/encoding"

// FrameStructSize is the on-disk width of one frame base record.
const FrameStructSize = 56

// Frame is a transform node as stored in a frame list.
type Frame struct {
	Rotation [9]float32 // 3x3 rotation, row-major
	Position [3]float32
	Parent   int32  // -1 for roots
	Flags    uint32 // matrix creation flags
	Name     string // from the node name plugin, empty if absent
}

// ReadFrameStruct reads one fixed-layout frame record from a frame list struct.
func (s *Stream) ReadFrameStruct() (Frame, error) {
	var f Frame
	if err := s.need(FrameStructSize); err != nil {
		return f, err
	}
	rot, _ := s.ReadFloats(9)
	pos, _ := s.ReadFloats(3)
	copy(f.Rotation[:], rot)
	copy(f.Position[:], pos)
	f.Parent, _ = s.ReadI32()
	f.Flags, _ = s.ReadU32()
	return f, nil
}

// ReadFrameExtension reads a frame's EXTENSION chunk. Only the node name
// plugin is interpreted; every other plugin is skipped by its length.
func (s *Stream) ReadFrameExtension(f *Frame) error {
	return s.walkExtension(func(h Header, body *Stream) error {
		if h.Type != ChunkNodeName {
			return nil
		}
		raw, err := body.ReadBytes(body.Len())
		if err != nil {
			return err
		}
		f.Name = encoding.FixedStringToUTF8(raw)
		return nil
	})
}
