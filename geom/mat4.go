// Package geom provides the small set of rigid-transform and camera math
// the placement demo needs: row-major 4x4 matrices over column vectors,
// TRS composition/decomposition, and view/projection builders.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mat4 is a row-major 4x4 transform applied to column vectors: p' = M p.
type Mat4 [16]float64

// rigidTol bounds the determinant drift accepted for a proper rotation block.
const rigidTol = 0.01

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a pure translation by v.
func Translate(v r3.Vec) Mat4 {
	m := Identity()
	m[3] = v.X
	m[7] = v.Y
	m[11] = v.Z
	return m
}

// RotateY returns a rotation of angle radians about the +Y axis.
func RotateY(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat4{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// Mul returns a*b (b applied first).
func (a Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[row*4+k] * b[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// Apply transforms the point v by the affine part of m (no perspective
// divide; rigid and TRS transforms only).
func (m Mat4) Apply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3],
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7],
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11],
	}
}

// ApplyH transforms v with the full homogeneous matrix and returns the
// result before the perspective divide, plus the clip-space w.
func (m Mat4) ApplyH(v r3.Vec) (r3.Vec, float64) {
	out := r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3],
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7],
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11],
	}
	w := m[12]*v.X + m[13]*v.Y + m[14]*v.Z + m[15]
	return out, w
}

// Position returns the translation column of m.
func (m Mat4) Position() r3.Vec {
	return r3.Vec{X: m[3], Y: m[7], Z: m[11]}
}

// Compose builds a TRS matrix from position, unit rotation quaternion,
// and per-axis scale.
func Compose(pos r3.Vec, rot quat.Number, scale r3.Vec) Mat4 {
	w, x, y, z := rot.Real, rot.Imag, rot.Jmag, rot.Kmag

	r00 := 1 - 2*(y*y+z*z)
	r01 := 2 * (x*y - w*z)
	r02 := 2 * (x*z + w*y)
	r10 := 2 * (x*y + w*z)
	r11 := 1 - 2*(x*x+z*z)
	r12 := 2 * (y*z - w*x)
	r20 := 2 * (x*z - w*y)
	r21 := 2 * (y*z + w*x)
	r22 := 1 - 2*(x*x+y*y)

	return Mat4{
		r00 * scale.X, r01 * scale.Y, r02 * scale.Z, pos.X,
		r10 * scale.X, r11 * scale.Y, r12 * scale.Z, pos.Y,
		r20 * scale.X, r21 * scale.Y, r22 * scale.Z, pos.Z,
		0, 0, 0, 1,
	}
}

// Decompose splits a TRS matrix into position, unit rotation quaternion,
// and per-axis scale. A negative-determinant basis is folded into a
// negated X scale so the rotation stays proper.
func (m Mat4) Decompose() (pos r3.Vec, rot quat.Number, scale r3.Vec) {
	pos = m.Position()

	sx := math.Sqrt(m[0]*m[0] + m[4]*m[4] + m[8]*m[8])
	sy := math.Sqrt(m[1]*m[1] + m[5]*m[5] + m[9]*m[9])
	sz := math.Sqrt(m[2]*m[2] + m[6]*m[6] + m[10]*m[10])
	if m.det3() < 0 {
		sx = -sx
	}
	scale = r3.Vec{X: sx, Y: sy, Z: sz}

	if sx == 0 || sy == 0 || sz == 0 {
		rot = quat.Number{Real: 1}
		return pos, rot, scale
	}

	r00, r01, r02 := m[0]/sx, m[1]/sy, m[2]/sz
	r10, r11, r12 := m[4]/sx, m[5]/sy, m[6]/sz
	r20, r21, r22 := m[8]/sx, m[9]/sy, m[10]/sz

	trace := r00 + r11 + r22
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		rot = quat.Number{
			Real: 0.25 * s,
			Imag: (r21 - r12) / s,
			Jmag: (r02 - r20) / s,
			Kmag: (r10 - r01) / s,
		}
	case r00 > r11 && r00 > r22:
		s := 2 * math.Sqrt(1+r00-r11-r22)
		rot = quat.Number{
			Real: (r21 - r12) / s,
			Imag: 0.25 * s,
			Jmag: (r01 + r10) / s,
			Kmag: (r02 + r20) / s,
		}
	case r11 > r22:
		s := 2 * math.Sqrt(1+r11-r00-r22)
		rot = quat.Number{
			Real: (r02 - r20) / s,
			Imag: (r01 + r10) / s,
			Jmag: 0.25 * s,
			Kmag: (r12 + r21) / s,
		}
	default:
		s := 2 * math.Sqrt(1+r22-r00-r11)
		rot = quat.Number{
			Real: (r10 - r01) / s,
			Imag: (r02 + r20) / s,
			Jmag: (r12 + r21) / s,
			Kmag: 0.25 * s,
		}
	}
	return pos, rot, scale
}

// IsRigid reports whether m is a proper rigid transform: an orthonormal
// rotation block with determinant ~1 and an affine [0 0 0 1] last row.
func (m Mat4) IsRigid() bool {
	if math.Abs(m.det3()-1) > rigidTol {
		return false
	}
	if m[12] != 0 || m[13] != 0 || m[14] != 0 || math.Abs(m[15]-1) > 1e-3 {
		return false
	}
	return true
}

// RigidInverse inverts a rigid transform by transposing the rotation
// block and counter-rotating the translation. Results are undefined for
// non-rigid input.
func (m Mat4) RigidInverse() Mat4 {
	tx, ty, tz := m[3], m[7], m[11]
	return Mat4{
		m[0], m[4], m[8], -(m[0]*tx + m[4]*ty + m[8]*tz),
		m[1], m[5], m[9], -(m[1]*tx + m[5]*ty + m[9]*tz),
		m[2], m[6], m[10], -(m[2]*tx + m[6]*ty + m[10]*tz),
		0, 0, 0, 1,
	}
}

func (m Mat4) det3() float64 {
	return m[0]*(m[5]*m[10]-m[6]*m[9]) -
		m[1]*(m[4]*m[10]-m[6]*m[8]) +
		m[2]*(m[4]*m[9]-m[5]*m[8])
}
