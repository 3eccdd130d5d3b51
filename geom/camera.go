package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// LookAt builds a right-handed view matrix for an eye looking at target.
func LookAt(eye, target, up r3.Vec) Mat4 {
	z := r3.Unit(r3.Sub(eye, target))
	x := r3.Unit(r3.Cross(up, z))
	y := r3.Cross(z, x)
	return Mat4{
		x.X, x.Y, x.Z, -r3.Dot(x, eye),
		y.X, y.Y, y.Z, -r3.Dot(y, eye),
		z.X, z.Y, z.Z, -r3.Dot(z, eye),
		0, 0, 0, 1,
	}
}

// Perspective builds a right-handed projection matrix. fovY is the
// vertical field of view in radians.
func Perspective(fovY, aspect, near, far float64) Mat4 {
	f := 1 / math.Tan(fovY/2)
	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) / (near - far), 2 * far * near / (near - far),
		0, 0, -1, 0,
	}
}
