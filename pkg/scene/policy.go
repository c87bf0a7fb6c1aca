package scene

import (
	"strings"

	"github.com/Faultbox/rwexport/pkg/math"
)

// Default frame name markers.
const (
	DefaultLODMarker    = "_vlo"
	DefaultDamageMarker = "_dam"
)

// Policy holds the frame name rules shared by every export format.
// Matching is case-sensitive and looks anywhere in the name.
type Policy struct {
	LODMarker    string // frames containing it are dropped
	DamageMarker string // frames containing it are flagged damaged
}

// DefaultPolicy returns the GTA vehicle naming rules.
func DefaultPolicy() Policy {
	return Policy{LODMarker: DefaultLODMarker, DamageMarker: DefaultDamageMarker}
}

// Excluded reports whether a frame with this name is left out of the export.
func (p Policy) Excluded(name string) bool {
	return p.LODMarker != "" && strings.Contains(name, p.LODMarker)
}

// Damaged reports whether a frame with this name is a damage variant.
func (p Policy) Damaged(name string) bool {
	return p.DamageMarker != "" && strings.Contains(name, p.DamageMarker)
}

// ExportFrame is a frame prepared for serialization.
type ExportFrame struct {
	Index    int
	Parent   int32
	Name     string
	Damaged  bool
	Matrix   math.Mat4 // full precision
	Geometry *Geometry // nil when no atomic is bound to the frame
}

// Prepare applies the policy to every frame in order and returns the frames
// to export with their transforms and geometry resolved.
func (s *Scene) Prepare(p Policy) ([]ExportFrame, error) {
	out := make([]ExportFrame, 0, len(s.Frames))
	for i := range s.Frames {
		f := &s.Frames[i]
		if p.Excluded(f.Name) {
			continue
		}
		geom, _, err := s.GeometryFor(f.Index)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportFrame{
			Index:    f.Index,
			Parent:   f.Parent,
			Name:     f.Name,
			Damaged:  p.Damaged(f.Name),
			Matrix:   math.Compose(f.Rotation, f.Position),
			Geometry: geom,
		})
	}
	return out, nil
}
