// pkg/world/force.go
package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/opd-ai/go-viscosity/pkg/physics"
)

// massProperties returns the inverse mass and world-space inverse inertia
// of slot i. Shapeless bodies behave as a unit mass with identity inertia;
// zero-mass shapes report ok == false and take no response.
func (w *World) massProperties(i int) (invMass float32, invInertia mgl32.Mat3, ok bool) {
	s := w.bodies.shape[i]
	if s == nil {
		return 1, mgl32.Ident3(), true
	}
	m := s.Mass()
	if m <= 0 {
		return 0, mgl32.Mat3{}, false
	}
	return 1 / m, physics.WorldInverseInertia(s.InvInertia(), w.bodies.rot[i]), true
}

// applyImpulse accumulates the velocity change from an impulse at a world
// point. Only dynamic bodies respond.
func (w *World) applyImpulse(i int, point, impulse mgl32.Vec3) {
	if w.bodies.kind[i] != Dynamic {
		return
	}
	invMass, invI, ok := w.massProperties(i)
	if !ok {
		return
	}
	r := point.Sub(w.bodies.pos[i])
	w.bodies.accVel[i] = w.bodies.accVel[i].Add(impulse.Mul(invMass))
	w.bodies.accAngVel[i] = w.bodies.accAngVel[i].Add(invI.Mul3x1(r.Cross(impulse)))
}

// ApplyForce applies an impulse at a world-space point. The resulting
// velocity change is accumulated and takes effect at the next step. Only
// dynamic bodies with non-zero mass respond.
func (w *World) ApplyForce(id BodyID, point, force mgl32.Vec3) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	if err := checkFinite(id, "point", point); err != nil {
		return err
	}
	if err := checkFinite(id, "force", force); err != nil {
		return err
	}
	w.applyImpulse(i, point, force)
	return nil
}

// ApplyForceAtCenter applies an impulse through a body's origin, changing
// only its linear velocity.
func (w *World) ApplyForceAtCenter(id BodyID, force mgl32.Vec3) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	if err := checkFinite(id, "force", force); err != nil {
		return err
	}
	w.applyImpulse(i, w.bodies.pos[i], force)
	return nil
}

// ApplyTorque applies an angular impulse.
func (w *World) ApplyTorque(id BodyID, torque mgl32.Vec3) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	if err := checkFinite(id, "torque", torque); err != nil {
		return err
	}
	if w.bodies.kind[i] != Dynamic {
		return nil
	}
	if _, invI, ok := w.massProperties(i); ok {
		w.bodies.accAngVel[i] = w.bodies.accAngVel[i].Add(invI.Mul3x1(torque))
	}
	return nil
}

// VelocityAtPoint returns the velocity of the material point of a body at
// a world position. Static bodies never move.
func (w *World) VelocityAtPoint(id BodyID, point mgl32.Vec3) (mgl32.Vec3, error) {
	i, err := w.slot(id)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return w.pointVelocity(i, point), nil
}

func (w *World) pointVelocity(i int, point mgl32.Vec3) mgl32.Vec3 {
	if !w.bodies.kind[i].simulated() {
		return mgl32.Vec3{}
	}
	r := point.Sub(w.bodies.pos[i])
	return w.bodies.vel[i].Add(w.bodies.angVel[i].Cross(r))
}
