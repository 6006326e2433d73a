// pkg/physics/collision.go
package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxContacts bounds the manifold a single shape pair can produce.
const MaxContacts = 4

// Contact is one point of a collision manifold.
type Contact struct {
	// Position of the contact in world space
	Position mgl32.Vec3
	// Normal is a unit vector pointing from the first body toward the second
	Normal mgl32.Vec3
	// Penetration depth, positive when the shapes overlap
	Penetration float32
}

// Collide runs the narrow-phase test between two posed shapes and writes
// the resulting contacts into dst, whose length bounds the output. It
// returns the number of contacts written.
//
// Some pairs are handled by the routine of the reversed pair. In that case
// swapped is true: the manifold was computed with b as the first body, so
// its normals point from b toward a and the caller must exchange the
// roles of the two bodies before using it.
//
// Pairs without a handler (plane-plane, box-box) never produce contacts.
func Collide(dst []Contact, a *Shape, pa Pose, b *Shape, pb Pose) (n int, swapped bool) {
	if len(dst) == 0 || a == nil || b == nil {
		return 0, false
	}
	switch a.kind {
	case ShapePlane:
		switch b.kind {
		case ShapeSphere:
			return planeSphere(dst, a, b, pb), false
		case ShapeBox:
			return planeBox(dst, a, b, pb), false
		}
	case ShapeSphere:
		switch b.kind {
		case ShapePlane:
			return planeSphere(dst, b, a, pa), true
		case ShapeSphere:
			return sphereSphere(dst, a, pa, b, pb), false
		case ShapeBox:
			return boxSphere(dst, b, pb, a, pa), true
		}
	case ShapeBox:
		switch b.kind {
		case ShapePlane:
			return planeBox(dst, b, a, pa), true
		case ShapeSphere:
			return boxSphere(dst, a, pa, b, pb), false
		}
	}
	return 0, false
}

// signedDistance returns the distance of a world point above a plane.
func signedDistance(plane *Shape, p mgl32.Vec3) float32 {
	return p.Dot(plane.normal) - plane.distance
}

func planeSphere(dst []Contact, plane, sphere *Shape, ps Pose) int {
	d := signedDistance(plane, ps.Position)
	r := sphere.radius
	if d <= -r || d >= r {
		return 0
	}
	dst[0] = Contact{
		Position:    ps.Position.Sub(plane.normal.Mul(r)),
		Normal:      plane.normal,
		Penetration: r - d,
	}
	return 1
}

// planeBox averages every penetrating corner into a single contact rather
// than reporting up to eight points.
func planeBox(dst []Contact, plane, box *Shape, pb Pose) int {
	d := signedDistance(plane, pb.Position)
	reach := box.halfExtents.Len()
	if d > reach || d < -reach {
		return 0
	}

	local := pb.Orientation.Inverse().Rotate(plane.normal)

	var sum mgl32.Vec3
	var depth float32
	count := 0
	for _, c := range boxCorners(box.halfExtents) {
		cd := c.Dot(local) + d
		if cd >= 0 {
			continue
		}
		sum = sum.Add(pb.ToWorld(c))
		depth -= cd
		count++
	}
	if count == 0 {
		return 0
	}

	inv := 1 / float32(count)
	dst[0] = Contact{
		Position:    sum.Mul(inv),
		Normal:      plane.normal,
		Penetration: depth * inv,
	}
	return 1
}

func sphereSphere(dst []Contact, a *Shape, pa Pose, b *Shape, pb Pose) int {
	delta := pb.Position.Sub(pa.Position)
	radii := a.radius + b.radius
	dist := delta.Len()
	if dist > radii {
		return 0
	}

	if dist < Epsilon {
		dst[0] = Contact{
			Position:    pa.Position,
			Normal:      AxisY,
			Penetration: radii,
		}
		return 1
	}

	n := delta.Mul(1 / dist)
	pen := radii - dist
	dst[0] = Contact{
		Position:    pa.Position.Add(n.Mul(a.radius - pen/2)),
		Normal:      n,
		Penetration: pen,
	}
	return 1
}

func boxSphere(dst []Contact, box *Shape, pb Pose, sphere *Shape, ps Pose) int {
	center := pb.ToLocal(ps.Position)
	h := box.halfExtents
	bounds := AABB{Min: h.Mul(-1), Max: h}

	closest := bounds.ClosestPoint(center)
	dir := center.Sub(closest)
	dist := dir.Len()
	r := sphere.radius
	if dist > r {
		return 0
	}

	if dist >= Epsilon {
		dst[0] = Contact{
			Position:    pb.ToWorld(closest),
			Normal:      pb.Orientation.Rotate(dir.Mul(1 / dist)),
			Penetration: r - dist,
		}
		return 1
	}

	// The sphere center is inside the box: push out through the nearest
	// face.
	axis, depth := 0, h[0]-math32.Abs(center[0])
	for i := 1; i < 3; i++ {
		if di := h[i] - math32.Abs(center[i]); di < depth {
			axis, depth = i, di
		}
	}
	var n mgl32.Vec3
	n[axis] = 1
	if center[axis] < 0 {
		n[axis] = -1
	}
	face := center
	face[axis] = n[axis] * h[axis]

	dst[0] = Contact{
		Position:    pb.ToWorld(face),
		Normal:      pb.Orientation.Rotate(n),
		Penetration: r + depth,
	}
	return 1
}
