// Package systems connects a simulation world to an EngoEngine ecs.World.
//
// PhysicsSystem steps the world at a fixed rate from the variable frame
// time the ecs world is updated with, then copies each body's pose into
// the TransformComponent of the entity that owns it.
package systems

import (
	"errors"
	"fmt"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-viscosity/pkg/event"
	"github.com/opd-ai/go-viscosity/pkg/world"
)

// PhysicsPriority orders the physics system ahead of systems that read
// transforms.
const PhysicsPriority = 100

// DefaultMaxSubSteps bounds the fixed steps taken in one Update.
const DefaultMaxSubSteps = 8

// ErrInvalidStep is reported by Err when the fixed step is not positive.
var ErrInvalidStep = errors.New("fixed step must be positive")

// TransformComponent mirrors the pose of one body.
type TransformComponent struct {
	Body world.BodyID
	world.Transform
}

// GetTransformComponent returns the component itself.
func (c *TransformComponent) GetTransformComponent() *TransformComponent { return c }

// TransformFace is implemented by entities carrying a TransformComponent.
type TransformFace interface {
	GetTransformComponent() *TransformComponent
}

// Transformable is the entity shape the physics system accepts through
// ecs.World.AddEntity.
type Transformable interface {
	ecs.BasicFace
	TransformFace
}

// NotPhysicalComponent marks an entity the physics system should skip even
// though it carries a transform.
type NotPhysicalComponent struct{}

// GetNotPhysicalComponent returns the component itself.
func (n *NotPhysicalComponent) GetNotPhysicalComponent() *NotPhysicalComponent { return n }

// NotPhysical excludes entities from the physics system when used as the
// exclusion set of ecs.World.AddSystemInterface.
type NotPhysical interface {
	GetNotPhysicalComponent() *NotPhysicalComponent
}

// Body is an entity backed by a world body.
type Body struct {
	ecs.BasicEntity
	TransformComponent
}

// NewBody creates an entity for an existing body.
func NewBody(id world.BodyID) *Body {
	return &Body{
		BasicEntity:        ecs.NewBasic(),
		TransformComponent: TransformComponent{Body: id},
	}
}

type physicsEntity struct {
	basic     *ecs.BasicEntity
	transform *TransformComponent
}

// PhysicsSystem owns a world and steps it from ecs updates.
type PhysicsSystem struct {
	world       *world.World
	step        float32
	maxSubSteps int
	accumulator float32

	entities map[uint64]physicsEntity
	bodies   map[world.BodyID]uint64
	sub      *event.Subscription

	steps int
	err   error
}

// NewPhysicsSystem creates a system that advances w in steps of step
// seconds. If w has an event bus, bodies destroyed behind the system's
// back stop being synced.
func NewPhysicsSystem(w *world.World, step float32) *PhysicsSystem {
	s := &PhysicsSystem{
		world:       w,
		step:        step,
		maxSubSteps: DefaultMaxSubSteps,
		entities:    make(map[uint64]physicsEntity),
		bodies:      make(map[world.BodyID]uint64),
	}
	if bus := w.EventBus(); bus != nil {
		s.sub = bus.Subscribe(event.BodyDestroyed, s.handleBodyDestroyed)
	}
	return s
}

// SetMaxSubSteps bounds the fixed steps per Update. Frame time beyond the
// bound is dropped so a slow frame cannot snowball.
func (s *PhysicsSystem) SetMaxSubSteps(n int) {
	if n < 1 {
		n = 1
	}
	s.maxSubSteps = n
}

// Priority places the physics system before transform readers.
func (s *PhysicsSystem) Priority() int { return PhysicsPriority }

// Add starts syncing the transform of an entity from its body.
func (s *PhysicsSystem) Add(basic *ecs.BasicEntity, transform *TransformComponent) {
	s.entities[basic.ID()] = physicsEntity{basic: basic, transform: transform}
	s.bodies[transform.Body] = basic.ID()
	s.sync(transform)
}

// AddByInterface satisfies ecs.SystemAddByInterfacer.
func (s *PhysicsSystem) AddByInterface(i ecs.Identifier) {
	o, ok := i.(Transformable)
	if !ok {
		return
	}
	s.Add(o.GetBasicEntity(), o.GetTransformComponent())
}

// Remove stops tracking an entity and destroys its body.
func (s *PhysicsSystem) Remove(basic ecs.BasicEntity) {
	e, ok := s.entities[basic.ID()]
	if !ok {
		return
	}
	delete(s.entities, basic.ID())
	delete(s.bodies, e.transform.Body)
	if s.world.Valid(e.transform.Body) {
		_ = s.world.DestroyBody(e.transform.Body)
	}
}

// Update consumes dt in fixed steps and syncs transforms. After a step
// fails the system stops stepping; Err reports the failure.
func (s *PhysicsSystem) Update(dt float32) {
	if s.err != nil {
		return
	}
	if !(s.step > 0) {
		s.err = fmt.Errorf("%w: %g", ErrInvalidStep, s.step)
		return
	}
	s.accumulator += dt
	for n := 0; s.accumulator >= s.step; n++ {
		if n == s.maxSubSteps {
			s.accumulator = 0
			break
		}
		if err := s.world.Step(s.step); err != nil {
			s.err = err
			return
		}
		s.accumulator -= s.step
		s.steps++
	}
	for _, e := range s.entities {
		s.sync(e.transform)
	}
}

func (s *PhysicsSystem) sync(c *TransformComponent) {
	if t, err := s.world.Transform(c.Body); err == nil {
		c.Transform = t
	}
}

func (s *PhysicsSystem) handleBodyDestroyed(e event.Event) {
	be, ok := e.(*event.BodyEvent)
	if !ok {
		return
	}
	id := world.BodyID(be.Body)
	if entity, tracked := s.bodies[id]; tracked {
		delete(s.entities, entity)
		delete(s.bodies, id)
	}
}

// Steps returns the number of fixed steps taken.
func (s *PhysicsSystem) Steps() int { return s.steps }

// Len returns the number of tracked entities.
func (s *PhysicsSystem) Len() int { return len(s.entities) }

// Err returns the error that stopped stepping, if any.
func (s *PhysicsSystem) Err() error { return s.err }

// Close unsubscribes from the world's event bus.
func (s *PhysicsSystem) Close() {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
}

// Driver advances an ecs world as one fixed simulation step, which lets a
// scene runner drive the ecs path.
type Driver struct {
	World   *ecs.World
	Physics *PhysicsSystem
}

// Step updates the ecs world by dt and reports any physics failure.
func (d Driver) Step(dt float32) error {
	d.World.Update(dt)
	return d.Physics.Err()
}
