package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			want := float32(0)
			if r == c {
				want = 1
			}
			if m[r][c] != want {
				t.Errorf("Identity[%d][%d] = %f, want %f", r, c, m[r][c], want)
			}
		}
	}
}

func TestCompose(t *testing.T) {
	rot := [9]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	pos := [3]float32{10, 20, 30}
	m := Compose(rot, pos)

	want := Mat4{
		{1, 2, 3, 10},
		{4, 5, 6, 20},
		{7, 8, 9, 30},
		{0, 0, 0, 1},
	}
	if m != want {
		t.Errorf("Compose = %v, want %v", m, want)
	}
	if m.Translation() != pos {
		t.Errorf("Translation() = %v, want %v", m.Translation(), pos)
	}
}

func TestCompose_BottomRowExact(t *testing.T) {
	m := Compose([9]float32{-0.5, 0.25, 1e-7, 3, 3, 3, 9, 9, 9}, [3]float32{-1e9, 1e-9, 42})
	if m[3] != [4]float32{0, 0, 0, 1} {
		t.Errorf("bottom row = %v, want [0 0 0 1]", m[3])
	}
}

func TestMulIdentity(t *testing.T) {
	m := Compose([9]float32{0, -1, 0, 1, 0, 0, 0, 0, 1}, [3]float32{1, 2, 3})
	if got := m.Mul(Identity()); got != m {
		t.Errorf("M * I = %v, want %v", got, m)
	}
	if got := Identity().Mul(m); got != m {
		t.Errorf("I * M = %v, want %v", got, m)
	}
}

func TestMulChain(t *testing.T) {
	// Parent rotates 90 degrees about Z and sits at (10, 20, 30); the child
	// is offset by 1 along its parent's X axis.
	parent := Compose([9]float32{0, -1, 0, 1, 0, 0, 0, 0, 1}, [3]float32{10, 20, 30})
	child := Compose([9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}, [3]float32{1, 0, 0})

	world := parent.Mul(child)
	if got, want := world.Translation(), [3]float32{10, 21, 30}; got != want {
		t.Errorf("world translation = %v, want %v", got, want)
	}
	if world[3] != [4]float32{0, 0, 0, 1} {
		t.Errorf("bottom row = %v, want [0 0 0 1]", world[3])
	}
}

func TestCeilPrecision(t *testing.T) {
	tests := []struct {
		in   float32
		want float64
	}{
		{0, 0},
		{1, 1},
		{-1, -1},
		{0.5, 0.5},
		{0.1234561, math.Ceil(float64(float32(0.1234561))*1e6) / 1e6},
		{-2.7182818, math.Ceil(float64(float32(-2.7182818))*1e6) / 1e6},
	}

	for _, tt := range tests {
		if got := CeilPrecision(tt.in); got != tt.want {
			t.Errorf("CeilPrecision(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCeilPrecision_RoundsUp(t *testing.T) {
	// 0.1234561 rounds up to 0.123457, never to the nearest 0.123456.
	got := CeilPrecision(0.1234561)
	if got < 0.1234565 || got > 0.1234575 {
		t.Errorf("CeilPrecision(0.1234561) = %v, want ~0.123457", got)
	}
	// Negative values move toward zero.
	got = CeilPrecision(-0.1234569)
	if got < -0.1234565 || got > -0.1234555 {
		t.Errorf("CeilPrecision(-0.1234569) = %v, want ~-0.123456", got)
	}
}
