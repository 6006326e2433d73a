// Package world implements the rigid-body simulation: body storage, the
// step pipeline and contact resolution.
//
// Bodies are addressed through BodyID handles. Storage may be reallocated
// whenever a body is created, so the world never hands out references into
// it. A World is not safe for concurrent use.
package world

import (
	"context"
	"fmt"
	"iter"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/opd-ai/go-viscosity/pkg/config"
	"github.com/opd-ai/go-viscosity/pkg/event"
	"github.com/opd-ai/go-viscosity/pkg/logging"
	"github.com/opd-ai/go-viscosity/pkg/physics"
)

// Arena names used in ArenaGrown events.
const (
	ArenaBodies = "bodies"
	ArenaJoints = "joints"
)

// World owns bodies and the transient joints created while stepping.
type World struct {
	cfg     config.WorldConfig
	bodies  bodyArena
	joints  jointPool
	scratch []physics.Contact

	logger *logging.Logger
	bus    *event.Bus
	ctx    context.Context

	steps     uint64
	stats     Stats
	destroyed bool
}

// Transform is the placement of a body. Scale is always one.
type Transform struct {
	Position    mgl32.Vec3
	Scale       mgl32.Vec3
	Orientation mgl32.Quat
}

// Matrix returns the transform as a column-major model matrix.
func (t Transform) Matrix() mgl32.Mat4 {
	m := physics.Pose{Position: t.Position, Orientation: t.Orientation}.Matrix()
	return m.Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// New creates an empty world. A nil cfg selects config.DefaultWorldConfig;
// out of range capacities and contact bounds fall back to their defaults.
func New(cfg *config.WorldConfig) *World {
	def := config.DefaultWorldConfig()
	c := *def
	if cfg != nil {
		c = *cfg
	}
	if c.InitialBodyCapacity < 1 {
		c.InitialBodyCapacity = def.InitialBodyCapacity
	}
	if c.InitialJointCapacity < 1 {
		c.InitialJointCapacity = def.InitialJointCapacity
	}
	if c.MaxContacts < 1 {
		c.MaxContacts = def.MaxContacts
	}

	return &World{
		cfg:     c,
		bodies:  newBodyArena(c.InitialBodyCapacity),
		joints:  newJointPool(c.InitialJointCapacity),
		scratch: make([]physics.Contact, c.MaxContacts),
		logger:  logging.NewDiscardLogger(),
		ctx:     context.Background(),
	}
}

// Destroy releases all storage. Every later call fails with
// ErrWorldDestroyed.
func (w *World) Destroy() {
	if w.destroyed {
		return
	}
	w.logger.Debug(w.ctx, "world destroyed", "bodies", w.bodies.live, "steps", w.steps)
	w.bodies = bodyArena{}
	w.joints = jointPool{}
	w.scratch = nil
	w.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (w *World) Destroyed() bool { return w.destroyed }

// Config returns the tuning the world was created with.
func (w *World) Config() config.WorldConfig { return w.cfg }

// SetLogger attaches a logger. A nil logger silences the world.
func (w *World) SetLogger(l *logging.Logger) {
	if l == nil {
		l = logging.NewDiscardLogger()
	}
	w.logger = l
}

// SetContext sets the context passed to the logger, which is how a run ID
// reaches world log records.
func (w *World) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	w.ctx = ctx
}

// SetEventBus attaches a bus that receives lifecycle and contact events.
// Handlers run synchronously inside world calls and must not mutate the
// world.
func (w *World) SetEventBus(b *event.Bus) { w.bus = b }

// EventBus returns the attached bus, or nil.
func (w *World) EventBus() *event.Bus { return w.bus }

func (w *World) publish(t event.Type, build func() event.Event) {
	if w.bus.HasSubscribers(t) {
		w.bus.Publish(build())
	}
}

// Gravity returns the acceleration applied to dynamic bodies.
func (w *World) Gravity() mgl32.Vec3 { return w.cfg.Gravity }

// SetGravity changes the acceleration applied to dynamic bodies.
func (w *World) SetGravity(g mgl32.Vec3) { w.cfg.Gravity = g }

// StepCount returns the number of completed steps.
func (w *World) StepCount() uint64 { return w.steps }

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int { return w.bodies.live }

// BodyCapacity returns the number of body slots currently allocated.
func (w *World) BodyCapacity() int { return w.bodies.capacity() }

// JointCapacity returns the number of joint slots currently allocated.
func (w *World) JointCapacity() int { return w.joints.capacity() }

// Bodies iterates over the handles of all live bodies in slot order.
func (w *World) Bodies() iter.Seq[BodyID] {
	return func(yield func(BodyID) bool) {
		for i := 0; i < w.bodies.used; i++ {
			if w.bodies.kind[i] == Deleted {
				continue
			}
			if !yield(w.bodies.id(i)) {
				return
			}
		}
	}
}

// Valid reports whether id refers to a live body.
func (w *World) Valid(id BodyID) bool {
	if w.destroyed {
		return false
	}
	_, ok := w.bodies.lookup(id)
	return ok
}

func (w *World) slot(id BodyID) (int, error) {
	if w.destroyed {
		return 0, ErrWorldDestroyed
	}
	i, ok := w.bodies.lookup(id)
	if !ok {
		return 0, fmt.Errorf("%v: %w", id, ErrInvalidBody)
	}
	return i, nil
}

func checkFinite(id BodyID, what string, v mgl32.Vec3) error {
	if !physics.IsFinite(v) {
		return fmt.Errorf("%v: %w: %s %v", id, ErrNonFinite, what, v)
	}
	return nil
}

// CreateBody adds a static body at the origin with identity orientation,
// zero velocities and no shape.
func (w *World) CreateBody() (BodyID, error) {
	if w.destroyed {
		return NoBody, ErrWorldDestroyed
	}
	old := w.bodies.capacity()
	index, grew := w.bodies.alloc()
	id := w.bodies.id(int(index))

	if grew {
		w.logger.Debug(w.ctx, "body arena grown", "from", old, "to", w.bodies.capacity())
		w.publish(event.ArenaGrown, func() event.Event {
			return event.NewArenaEvent(w, ArenaBodies, old, w.bodies.capacity())
		})
	}
	w.logger.Debug(w.ctx, "body created", "body", id.String())
	w.publish(event.BodyCreated, func() event.Event {
		return event.NewBodyEvent(event.BodyCreated, w, uint64(id))
	})
	return id, nil
}

// DestroyBody removes a body. Its handle and any copies become invalid.
func (w *World) DestroyBody(id BodyID) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	w.logBody("body destroyed", id)
	w.bodies.release(uint32(i))
	w.publish(event.BodyDestroyed, func() event.Event {
		return event.NewBodyEvent(event.BodyDestroyed, w, uint64(id))
	})
	return nil
}

// Type returns the simulation mode of a body.
func (w *World) Type(id BodyID) (BodyType, error) {
	i, err := w.slot(id)
	if err != nil {
		return Deleted, err
	}
	return w.bodies.kind[i], nil
}

// SetType changes the simulation mode of a body. Use DestroyBody rather
// than setting Deleted.
func (w *World) SetType(id BodyID, t BodyType) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	if t <= Deleted || t > Kinematic {
		return fmt.Errorf("%v: %w: %v", id, ErrInvalidBodyType, t)
	}
	w.bodies.kind[i] = t
	w.bodies.refreshAABB(i)
	return nil
}

// Position returns the world position of a body's origin.
func (w *World) Position(id BodyID) (mgl32.Vec3, error) {
	i, err := w.slot(id)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return w.bodies.pos[i], nil
}

// SetPosition moves a body. Non-finite positions are rejected.
func (w *World) SetPosition(id BodyID, p mgl32.Vec3) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	if err := checkFinite(id, "position", p); err != nil {
		return err
	}
	w.bodies.pos[i] = p
	w.bodies.refreshAABB(i)
	return nil
}

// Orientation returns the rotation of a body.
func (w *World) Orientation(id BodyID) (mgl32.Quat, error) {
	i, err := w.slot(id)
	if err != nil {
		return mgl32.Quat{}, err
	}
	return w.bodies.rot[i], nil
}

// SetOrientation rotates a body. The quaternion is normalized; a zero
// quaternion resets the body to identity.
func (w *World) SetOrientation(id BodyID, q mgl32.Quat) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	if !physics.IsFinite(q.V) || math32.IsNaN(q.W) || math32.IsInf(q.W, 0) {
		return fmt.Errorf("%v: %w: orientation %v", id, ErrNonFinite, q)
	}
	if q.Len() < physics.Epsilon {
		q = mgl32.QuatIdent()
	}
	w.bodies.rot[i] = q.Normalize()
	w.bodies.refreshAABB(i)
	return nil
}

// LinearVelocity returns the velocity of a body's origin.
func (w *World) LinearVelocity(id BodyID) (mgl32.Vec3, error) {
	i, err := w.slot(id)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return w.bodies.vel[i], nil
}

// SetLinearVelocity sets the velocity of a body's origin.
func (w *World) SetLinearVelocity(id BodyID, v mgl32.Vec3) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	if err := checkFinite(id, "linear velocity", v); err != nil {
		return err
	}
	w.bodies.vel[i] = v
	return nil
}

// AngularVelocity returns the angular velocity of a body in radians per
// second about its origin.
func (w *World) AngularVelocity(id BodyID) (mgl32.Vec3, error) {
	i, err := w.slot(id)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return w.bodies.angVel[i], nil
}

// SetAngularVelocity sets the angular velocity of a body.
func (w *World) SetAngularVelocity(id BodyID, v mgl32.Vec3) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	if err := checkFinite(id, "angular velocity", v); err != nil {
		return err
	}
	w.bodies.angVel[i] = v
	return nil
}

// Transform returns the position and orientation of a body.
func (w *World) Transform(id BodyID) (Transform, error) {
	i, err := w.slot(id)
	if err != nil {
		return Transform{}, err
	}
	return Transform{
		Position:    w.bodies.pos[i],
		Scale:       mgl32.Vec3{1, 1, 1},
		Orientation: w.bodies.rot[i],
	}, nil
}

// Matrix returns the model matrix of a body.
func (w *World) Matrix(id BodyID) (mgl32.Mat4, error) {
	t, err := w.Transform(id)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return t.Matrix(), nil
}

// Shape returns the shape attached to a body, or nil.
func (w *World) Shape(id BodyID) (*physics.Shape, error) {
	i, err := w.slot(id)
	if err != nil {
		return nil, err
	}
	return w.bodies.shape[i], nil
}

// SetShape attaches a shape to a body, or detaches it when s is nil. The
// world keeps a reference; the shape may be shared with other bodies.
func (w *World) SetShape(id BodyID, s *physics.Shape) error {
	i, err := w.slot(id)
	if err != nil {
		return err
	}
	w.bodies.shape[i] = s
	w.bodies.refreshAABB(i)
	return nil
}

// AABB returns the world-space bounds of a body as of its last refresh.
func (w *World) AABB(id BodyID) (physics.AABB, error) {
	i, err := w.slot(id)
	if err != nil {
		return physics.AABB{}, err
	}
	return w.bodies.aabb[i], nil
}
