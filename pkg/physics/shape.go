package physics

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ShapeType identifies the geometry carried by a Shape.
type ShapeType int

const (
	ShapePlane ShapeType = iota
	ShapeSphere
	ShapeBox
)

// Material defaults shared by every shape type.
const (
	DefaultRestitution float32 = 0.2
	DefaultFriction    float32 = 0.4
	DefaultDensity     float32 = 1
)

var shapeTypeNames = [...]string{
	ShapePlane:  "plane",
	ShapeSphere: "sphere",
	ShapeBox:    "box",
}

func (t ShapeType) String() string {
	if t < 0 || int(t) >= len(shapeTypeNames) {
		return fmt.Sprintf("ShapeType(%d)", int(t))
	}
	return shapeTypeNames[t]
}

// MarshalText implements encoding.TextMarshaler so config files can name
// shape types.
func (t ShapeType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(shapeTypeNames) {
		return nil, fmt.Errorf("unknown shape type %d", int(t))
	}
	return []byte(shapeTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ShapeType) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range shapeTypeNames {
		if n == name {
			*t = ShapeType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown shape type %q", string(text))
}

// Shape is the geometry and material of a body. The geometric payload
// depends on Type: planes carry a normal and a signed distance from the
// origin, spheres a radius, boxes their half extents.
//
// Shapes are created independently of any world and may be shared by
// several bodies; a world only keeps a reference.
type Shape struct {
	kind ShapeType

	normal      mgl32.Vec3
	distance    float32
	radius      float32
	halfExtents mgl32.Vec3

	density     float32
	mass        float32
	inertia     mgl32.Mat3
	invInertia  mgl32.Mat3
	restitution float32
	friction    float32
}

func newShape(kind ShapeType) *Shape {
	return &Shape{
		kind:        kind,
		density:     DefaultDensity,
		restitution: DefaultRestitution,
		friction:    DefaultFriction,
	}
}

// NewPlane creates an infinite static plane. The normal is normalized;
// distance is measured from the origin along it. Planes have zero mass.
func NewPlane(normal mgl32.Vec3, distance float32) *Shape {
	s := newShape(ShapePlane)
	s.normal = NormalizeOr(normal, AxisY)
	s.distance = distance
	s.density = 0
	return s
}

// NewSphere creates a sphere of the given radius with unit density.
func NewSphere(radius float32) *Shape {
	s := newShape(ShapeSphere)
	s.radius = radius
	s.updateMass()
	return s
}

// NewBox creates a box with the given full edge lengths and unit density.
func NewBox(size mgl32.Vec3) *Shape {
	s := newShape(ShapeBox)
	s.halfExtents = size.Mul(0.5)
	s.updateMass()
	return s
}

func (s *Shape) Type() ShapeType { return s.kind }

// Normal is the unit normal of a plane.
func (s *Shape) Normal() mgl32.Vec3 { return s.normal }

// Distance is the signed offset of a plane from the origin.
func (s *Shape) Distance() float32 { return s.distance }

func (s *Shape) Radius() float32 { return s.radius }

func (s *Shape) HalfExtents() mgl32.Vec3 { return s.halfExtents }

func (s *Shape) Density() float32 { return s.density }

// Mass is zero for planes, which the solver treats as immovable.
func (s *Shape) Mass() float32 { return s.mass }

func (s *Shape) Inertia() mgl32.Mat3 { return s.inertia }

func (s *Shape) InvInertia() mgl32.Mat3 { return s.invInertia }

func (s *Shape) Restitution() float32 { return s.restitution }

func (s *Shape) Friction() float32 { return s.friction }

// SetRestitution sets the bounciness, clamped to [0,1].
func (s *Shape) SetRestitution(e float32) {
	s.restitution = mgl32.Clamp(e, 0, 1)
}

// SetFriction sets the friction coefficient, clamped to be non-negative.
func (s *Shape) SetFriction(mu float32) {
	s.friction = math32.Max(mu, 0)
}

// SetDensity recomputes mass and inertia from a new density. Planes
// ignore it.
func (s *Shape) SetDensity(density float32) {
	if s.kind == ShapePlane {
		return
	}
	s.density = density
	s.updateMass()
}

// SetMass overrides the mass without touching the inertia tensor; call
// RecalcInertia afterwards to bring it in line.
func (s *Shape) SetMass(mass float32) {
	if s.kind == ShapePlane {
		return
	}
	s.mass = mass
}

// RecalcInertia recomputes the inertia tensor and its inverse from the
// current mass. A zero mass yields an infinite inverse.
func (s *Shape) RecalcInertia() {
	switch s.kind {
	case ShapeSphere:
		i := 2 * s.mass * s.radius * s.radius / 5
		s.inertia = diag3(i, i, i)
		s.invInertia = diag3(1/i, 1/i, 1/i)
	case ShapeBox:
		h := s.halfExtents
		x := s.mass * (h[1]*h[1] + h[2]*h[2]) / 3
		y := s.mass * (h[0]*h[0] + h[2]*h[2]) / 3
		z := s.mass * (h[0]*h[0] + h[1]*h[1]) / 3
		s.inertia = diag3(x, y, z)
		s.invInertia = diag3(1/x, 1/y, 1/z)
	}
}

// Volume returns the enclosed volume; planes are unbounded and report 0.
func (s *Shape) Volume() float32 {
	switch s.kind {
	case ShapeSphere:
		return 4 / 3.0 * math32.Pi * s.radius * s.radius * s.radius
	case ShapeBox:
		h := s.halfExtents
		return 8 * h[0] * h[1] * h[2]
	}
	return 0
}

func (s *Shape) updateMass() {
	s.mass = s.density * s.Volume()
	s.RecalcInertia()
}

// AABB returns the shape bounds for the given orientation, relative to
// the shape origin.
func (s *Shape) AABB(rot mgl32.Quat) AABB {
	switch s.kind {
	case ShapeSphere:
		r := s.radius
		return AABB{Min: mgl32.Vec3{-r, -r, -r}, Max: mgl32.Vec3{r, r, r}}
	case ShapeBox:
		var b AABB
		for _, c := range boxCorners(s.halfExtents) {
			p := rot.Rotate(c)
			for i := 0; i < 3; i++ {
				b.Min[i] = math32.Min(b.Min[i], p[i])
				b.Max[i] = math32.Max(b.Max[i], p[i])
			}
		}
		return b
	}
	return InfiniteAABB()
}

func (s *Shape) String() string {
	switch s.kind {
	case ShapePlane:
		return fmt.Sprintf("plane(n=%v, d=%g)", s.normal, s.distance)
	case ShapeSphere:
		return fmt.Sprintf("sphere(r=%g, m=%g)", s.radius, s.mass)
	case ShapeBox:
		return fmt.Sprintf("box(h=%v, m=%g)", s.halfExtents, s.mass)
	}
	return s.kind.String()
}
