package physics

import "github.com/go-gl/mathgl/mgl32"

// Pose places a shape in world space.
type Pose struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

// IdentityPose is a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl32.QuatIdent()}
}

// At returns an unrotated pose at position p.
func At(p mgl32.Vec3) Pose {
	return Pose{Position: p, Orientation: mgl32.QuatIdent()}
}

// ToWorld maps a point from shape space into world space.
func (p Pose) ToWorld(local mgl32.Vec3) mgl32.Vec3 {
	return p.Orientation.Rotate(local).Add(p.Position)
}

// ToLocal maps a world point into shape space.
func (p Pose) ToLocal(world mgl32.Vec3) mgl32.Vec3 {
	return p.Orientation.Inverse().Rotate(world.Sub(p.Position))
}

// Matrix returns the pose as a column-major 4x4 model matrix.
func (p Pose) Matrix() mgl32.Mat4 {
	t := mgl32.Translate3D(p.Position[0], p.Position[1], p.Position[2])
	return t.Mul4(p.Orientation.Mat4())
}
