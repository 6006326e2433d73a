// pkg/world/step.go
package world

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/opd-ai/go-viscosity/pkg/event"
	"github.com/opd-ai/go-viscosity/pkg/logging"
	"github.com/opd-ai/go-viscosity/pkg/physics"
)

// Stats describes the work done by the most recent step.
type Stats struct {
	Step           uint64  `json:"step"`
	Bodies         int     `json:"bodies"`
	BodyCapacity   int     `json:"bodyCapacity"`
	JointCapacity  int     `json:"jointCapacity"`
	PairTests      int     `json:"pairTests"`
	Overlaps       int     `json:"overlaps"`
	Contacts       int     `json:"contacts"`
	Impulses       int     `json:"impulses"`
	MaxPenetration float32 `json:"maxPenetration"`
}

// Stats returns the statistics of the last step.
func (w *World) Stats() Stats { return w.stats }

// Step advances the simulation by dt seconds: integrate, refresh bounds,
// find contacts, then resolve them. Impulses from resolution land in the
// accumulators and take effect at the next step.
func (w *World) Step(dt float32) error {
	if w.destroyed {
		return ErrWorldDestroyed
	}

	w.joints.reset()
	w.stats = Stats{}

	w.integrate(dt)
	w.refreshAABBs()
	w.collide()
	w.solve()

	w.steps++
	w.stats.Step = w.steps
	w.stats.Bodies = w.bodies.live
	w.stats.BodyCapacity = w.bodies.capacity()
	w.stats.JointCapacity = w.joints.capacity()

	w.publish(event.StepCompleted, func() event.Event {
		return event.NewStepEvent(w, w.steps, dt, w.stats.Contacts, w.stats.MaxPenetration)
	})
	return nil
}

func (w *World) integrate(dt float32) {
	b := &w.bodies
	gravity := w.cfg.Gravity.Mul(dt)
	damping := dt * w.cfg.AngularDamping

	for i := 0; i < b.used; i++ {
		kind := b.kind[i]
		if !kind.simulated() {
			continue
		}

		if kind == Dynamic {
			b.vel[i] = b.vel[i].Add(b.accVel[i])
			b.angVel[i] = b.angVel[i].Add(b.accAngVel[i])
		}
		b.accVel[i] = mgl32.Vec3{}
		b.accAngVel[i] = mgl32.Vec3{}

		b.pos[i] = b.pos[i].Add(b.vel[i].Mul(dt))

		if kind == Dynamic {
			b.angVel[i] = b.angVel[i].Sub(b.angVel[i].Mul(damping))
		}
		spin := mgl32.Quat{W: 0, V: b.angVel[i]}.Mul(b.rot[i]).Scale(0.5 * dt)
		b.rot[i] = b.rot[i].Add(spin).Normalize()

		if kind == Dynamic {
			b.vel[i] = b.vel[i].Add(gravity)
		}
	}
}

// refreshAABBs updates the bounds of every moving shaped body. Static
// bodies are refreshed when they are edited.
func (w *World) refreshAABBs() {
	b := &w.bodies
	for i := 0; i < b.used; i++ {
		if b.kind[i].simulated() && b.shape[i] != nil {
			b.refreshAABB(i)
		}
	}
}

// collide runs the exhaustive broad-phase over every pair of live shaped
// bodies and turns narrow-phase contacts into joints.
func (w *World) collide() {
	b := &w.bodies
	for i := 0; i < b.used; i++ {
		if b.kind[i] == Deleted || b.shape[i] == nil {
			continue
		}
		for j := i + 1; j < b.used; j++ {
			if b.kind[j] == Deleted || b.shape[j] == nil {
				continue
			}
			w.stats.PairTests++
			if !b.aabb[i].Overlaps(b.aabb[j]) {
				continue
			}
			w.stats.Overlaps++

			n, swapped := physics.Collide(w.scratch, b.shape[i], b.pose(i), b.shape[j], b.pose(j))
			first, second := i, j
			if swapped {
				first, second = j, i
			}
			for k := 0; k < n; k++ {
				w.addContact(first, second, w.scratch[k])
			}
		}
	}
}

func (w *World) addContact(a, b int, c physics.Contact) {
	old := w.joints.capacity()
	if _, grew := w.joints.add(a, b, c); grew {
		w.logger.Debug(w.ctx, "joint pool grown", "from", old, "to", w.joints.capacity())
		w.publish(event.ArenaGrown, func() event.Event {
			return event.NewArenaEvent(w, ArenaJoints, old, w.joints.capacity())
		})
	}

	w.stats.Contacts++
	w.stats.MaxPenetration = math32.Max(w.stats.MaxPenetration, c.Penetration)
	w.publish(event.ContactCreated, func() event.Event {
		return event.NewContactEvent(w, uint64(w.bodies.id(a)), uint64(w.bodies.id(b)), c)
	})
}

// solve resolves and then removes every joint created this step.
func (w *World) solve() {
	p := &w.joints
	for k := 0; k < p.used; k++ {
		if !p.live[k] {
			continue
		}
		if w.resolveContact(p.a[k], p.b[k], p.contact[k]) {
			w.stats.Impulses++
		}
		p.remove(k)
	}
	if w.stats.Contacts > 0 {
		w.logger.Debug(w.ctx, "contacts solved",
			"contacts", w.stats.Contacts,
			"impulses", w.stats.Impulses,
			"max_penetration", w.stats.MaxPenetration)
	}
}

// resolveContact applies positional correction and a combined normal and
// friction impulse for one contact. The normal points from a toward b.
// It reports whether an impulse was applied.
func (w *World) resolveContact(a, b int, c physics.Contact) bool {
	bodies := &w.bodies
	ka, kb := bodies.kind[a], bodies.kind[b]
	if ka != Dynamic && kb != Dynamic {
		return false
	}

	n := c.Normal
	if c.Penetration > w.cfg.Slop {
		if kb == Dynamic {
			bodies.pos[b] = bodies.pos[b].Add(n.Mul(c.Penetration))
		} else {
			bodies.pos[a] = bodies.pos[a].Sub(n.Mul(c.Penetration))
		}
	}

	rel := w.pointVelocity(b, c.Position).Sub(w.pointVelocity(a, c.Position))
	vn := rel.Dot(n)
	if vn > 0 {
		return false
	}

	kn := w.effectiveMass(a, c.Position, n) + w.effectiveMass(b, c.Position, n)
	if kn <= 0 {
		return false
	}

	sa, sb := bodies.shape[a], bodies.shape[b]
	e := 1 + math32.Max(sa.Restitution(), sb.Restitution())
	mu := math32.Sqrt(sa.Friction() * sb.Friction())

	jn := -e * vn / kn
	impulse := n.Mul(jn)

	// Friction acts against the sliding of b relative to a.
	t := rel.Cross(n).Cross(n)
	if t.Len() > physics.Epsilon && mu > 0 {
		t = t.Normalize()
		kt := w.effectiveMass(a, c.Position, t) + w.effectiveMass(b, c.Position, t)
		if kt > 0 {
			jt := math32.Min(-mu*t.Dot(rel)/kt, mu*jn)
			impulse = impulse.Add(t.Mul(jt))
		}
	}

	w.applyImpulse(b, c.Position, impulse)
	w.applyImpulse(a, c.Position, impulse.Mul(-1))
	return true
}

// effectiveMass returns the inverse effective mass of slot i along unit
// direction u at a world point. Bodies that cannot respond contribute
// nothing.
func (w *World) effectiveMass(i int, point, u mgl32.Vec3) float32 {
	if w.bodies.kind[i] != Dynamic {
		return 0
	}
	invMass, invI, ok := w.massProperties(i)
	if !ok {
		return 0
	}
	r := point.Sub(w.bodies.pos[i])
	angular := invI.Mul3x1(r.Cross(u)).Cross(r)
	return invMass + u.Dot(angular)
}

// logBody writes the state of one body at debug level.
func (w *World) logBody(msg string, id BodyID) {
	i, ok := w.bodies.lookup(id)
	if !ok {
		return
	}
	w.logger.Debug(w.ctx, msg,
		"body", id.String(),
		"type", w.bodies.kind[i].String(),
		logging.Vec("position", w.bodies.pos[i]),
		logging.Vec("velocity", w.bodies.vel[i]))
}
