package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box given by its minimum and maximum
// corners.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// InfiniteAABB returns a box covering all of space. It overlaps every
// other box, which is how planes always pass the broad-phase.
func InfiniteAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: mgl32.Vec3{-inf, -inf, -inf},
		Max: mgl32.Vec3{inf, inf, inf},
	}
}

// Translate returns the box moved by offset.
func (b AABB) Translate(offset mgl32.Vec3) AABB {
	return AABB{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box on each axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// ContainsPoint reports whether p lies inside the box, boundary included.
func (b AABB) ContainsPoint(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Overlaps reports whether the two boxes intersect. Touching boxes
// overlap. The test is symmetric.
func (b AABB) Overlaps(other AABB) bool {
	return b.Min[0] <= other.Max[0] && b.Max[0] >= other.Min[0] &&
		b.Min[1] <= other.Max[1] && b.Max[1] >= other.Min[1] &&
		b.Min[2] <= other.Max[2] && b.Max[2] >= other.Min[2]
}

// ClosestPoint returns the point of the box nearest to p.
func (b AABB) ClosestPoint(p mgl32.Vec3) mgl32.Vec3 {
	for i := 0; i < 3; i++ {
		p[i] = mgl32.Clamp(p[i], b.Min[i], b.Max[i])
	}
	return p
}
