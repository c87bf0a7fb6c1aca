// Package math provides the small amount of matrix math the exporter needs.
package math

// Mat4 is a 4x4 matrix in row-major order: m[row][col].
// Translation lives in the last column, the bottom row is [0 0 0 1]
// for every affine transform.
type Mat4 [4][4]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Compose builds a homogeneous transform from a row-major 3x3 rotation
// block and a position. Row r is [rot[3r], rot[3r+1], rot[3r+2], pos[r]].
func Compose(rotation [9]float32, position [3]float32) Mat4 {
	var m Mat4
	for r := 0; r < 3; r++ {
		m[r] = [4]float32{rotation[3*r], rotation[3*r+1], rotation[3*r+2], position[r]}
	}
	m[3] = [4]float32{0, 0, 0, 1}
	return m
}

// Translation returns the position column.
func (m Mat4) Translation() [3]float32 {
	return [3]float32{m[0][3], m[1][3], m[2][3]}
}

// Mul returns m * other. A child's world transform is parent.Mul(local).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			result[row][col] =
				m[row][0]*other[0][col] +
					m[row][1]*other[1][col] +
					m[row][2]*other[2][col] +
					m[row][3]*other[3][col]
		}
	}
	return result
}
