// pkg/physics/vector.go
package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-6

// Unit axes in world space.
var (
	AxisX = mgl32.Vec3{1, 0, 0}
	AxisY = mgl32.Vec3{0, 1, 0}
	AxisZ = mgl32.Vec3{0, 0, 1}
)

// NormalizeOr returns v scaled to unit length, or fallback when v is
// too short to carry a direction.
func NormalizeOr(v, fallback mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < Epsilon {
		return fallback
	}
	return v.Mul(1 / l)
}

// IsFinite reports whether every component of v is a real number.
func IsFinite(v mgl32.Vec3) bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// WorldInverseInertia rotates a body-space inverse inertia tensor into
// world space: R * I^-1 * R^T.
func WorldInverseInertia(invLocal mgl32.Mat3, rot mgl32.Quat) mgl32.Mat3 {
	r := rot.Mat4().Mat3()
	return r.Mul3(invLocal).Mul3(r.Transpose())
}

// boxCorners returns the eight corners of a box with the given half
// extents, in box space.
func boxCorners(h mgl32.Vec3) [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{-h[0], -h[1], -h[2]},
		{-h[0], -h[1], h[2]},
		{-h[0], h[1], -h[2]},
		{-h[0], h[1], h[2]},
		{h[0], -h[1], -h[2]},
		{h[0], -h[1], h[2]},
		{h[0], h[1], -h[2]},
		{h[0], h[1], h[2]},
	}
}

// diag3 builds a diagonal 3x3 matrix.
func diag3(x, y, z float32) mgl32.Mat3 {
	return mgl32.Diag3(mgl32.Vec3{x, y, z})
}
