package rw

// Atomic binds a frame to a geometry.
type Atomic struct {
	FrameIndex    uint32
	GeometryIndex uint32
	Flags         uint32
}

// ReadAtomic reads an ATOMIC chunk. The atomic's extension is skipped.
func (s *Stream) ReadAtomic() (Atomic, error) {
	var a Atomic
	if _, err := s.ExpectHeader(ChunkAtomic); err != nil {
		return a, err
	}
	_, body, err := s.ReadStruct()
	if err != nil {
		return a, err
	}
	if a.FrameIndex, err = body.ReadU32(); err != nil {
		return a, err
	}
	if a.GeometryIndex, err = body.ReadU32(); err != nil {
		return a, err
	}
	if body.Len() >= 4 {
		a.Flags, _ = body.ReadU32()
	}
	return a, s.SkipExtension()
}

// LightType values.
const (
	LightDirectional uint16 = 0x01
	LightAmbient     uint16 = 0x02
	LightPoint       uint16 = 0x80
	LightSpot        uint16 = 0x81
	LightSpotSoft    uint16 = 0x82
)

// LightParams is the body of a LIGHT chunk.
type LightParams struct {
	Radius        float32
	Color         [3]float32
	MinusCosAngle float32
	Flags         uint16
	Type          uint16
}

// ReadLight reads a LIGHT chunk. The frame index precedes it in its own
// STRUCT chunk and is read by the caller.
func (s *Stream) ReadLight() (LightParams, error) {
	var l LightParams
	if _, err := s.ExpectHeader(ChunkLight); err != nil {
		return l, err
	}
	_, body, err := s.ReadStruct()
	if err != nil {
		return l, err
	}
	if l.Radius, err = body.ReadF32(); err != nil {
		return l, err
	}
	color, err := body.ReadFloats(3)
	if err != nil {
		return l, err
	}
	copy(l.Color[:], color)
	if l.MinusCosAngle, err = body.ReadF32(); err != nil {
		return l, err
	}
	if l.Flags, err = body.ReadU16(); err != nil {
		return l, err
	}
	if l.Type, err = body.ReadU16(); err != nil {
		return l, err
	}
	return l, s.SkipExtension()
}
