// Package scene turns a config.Scenario into a populated world and runs it
// at a fixed time step.
package scene

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/opd-ai/go-viscosity/pkg/config"
	"github.com/opd-ai/go-viscosity/pkg/logging"
	"github.com/opd-ai/go-viscosity/pkg/physics"
	"github.com/opd-ai/go-viscosity/pkg/world"
)

// Scene is a world together with the names its scenario gave to shapes
// and bodies.
type Scene struct {
	Name  string
	World *world.World

	shapes map[string]*physics.Shape
	bodies map[string]world.BodyID
	order  []string
}

// BodyState is a snapshot of one named body.
type BodyState struct {
	Name            string     `json:"name"`
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Position        mgl32.Vec3 `json:"position"`
	Orientation     mgl32.Quat `json:"orientation"`
	LinearVelocity  mgl32.Vec3 `json:"linearVelocity"`
	AngularVelocity mgl32.Vec3 `json:"angularVelocity"`
}

// Build creates a world from a validated scenario. Shapes are built once
// and shared between the bodies that name them.
func Build(s *config.Scenario) (*Scene, error) {
	if err := s.Validate(); err != nil {
		return nil, logging.WrapError(err, "invalid scenario %q", s.Name)
	}

	sc := &Scene{
		Name:   s.Name,
		World:  world.New(&s.World),
		shapes: make(map[string]*physics.Shape, len(s.Shapes)),
		bodies: make(map[string]world.BodyID, len(s.Bodies)),
	}
	for i := range s.Shapes {
		sc.shapes[s.Shapes[i].Name] = s.Shapes[i].Build()
	}
	for _, b := range s.Bodies {
		if _, err := sc.AddBody(b); err != nil {
			sc.World.Destroy()
			return nil, err
		}
	}
	return sc, nil
}

// BodyType maps a configured kind onto a world body type. An empty kind is
// dynamic.
func BodyType(k config.BodyKind) (world.BodyType, error) {
	switch k {
	case "", config.KindDynamic:
		return world.Dynamic, nil
	case config.KindStatic:
		return world.Static, nil
	case config.KindKinematic:
		return world.Kinematic, nil
	}
	return world.Deleted, fmt.Errorf("%w: %q", world.ErrInvalidBodyType, k)
}

// AddBody creates one configured body. Named bodies can later be found
// with Body.
func (sc *Scene) AddBody(b config.BodyConfig) (world.BodyID, error) {
	typ, err := BodyType(b.Kind)
	if err != nil {
		return world.NoBody, err
	}
	var shape *physics.Shape
	if b.Shape != "" {
		var ok bool
		if shape, ok = sc.shapes[b.Shape]; !ok {
			return world.NoBody, fmt.Errorf("body %q: unknown shape %q (have %s)",
				b.Name, b.Shape, strings.Join(sc.ShapeNames(), ", "))
		}
	}
	if b.Name != "" {
		if _, dup := sc.bodies[b.Name]; dup {
			return world.NoBody, fmt.Errorf("body %q: duplicate name", b.Name)
		}
	}

	w := sc.World
	id, err := w.CreateBody()
	if err != nil {
		return world.NoBody, err
	}
	for _, set := range []func() error{
		func() error { return w.SetType(id, typ) },
		func() error { return w.SetShape(id, shape) },
		func() error { return w.SetPosition(id, b.Position) },
		func() error { return w.SetOrientation(id, b.Orientation()) },
		func() error { return w.SetLinearVelocity(id, b.LinearVelocity) },
		func() error { return w.SetAngularVelocity(id, b.AngularVelocity) },
	} {
		if err := set(); err != nil {
			_ = w.DestroyBody(id)
			return world.NoBody, fmt.Errorf("body %q: %w", b.Name, err)
		}
	}

	if b.Name != "" {
		sc.bodies[b.Name] = id
		sc.order = append(sc.order, b.Name)
	}
	return id, nil
}

// Body returns the handle of a named body.
func (sc *Scene) Body(name string) (world.BodyID, bool) {
	id, ok := sc.bodies[name]
	return id, ok && sc.World.Valid(id)
}

// Shape returns a named shape.
func (sc *Scene) Shape(name string) (*physics.Shape, bool) {
	s, ok := sc.shapes[name]
	return s, ok
}

// ShapeNames returns the shape names in sorted order.
func (sc *Scene) ShapeNames() []string {
	names := make([]string, 0, len(sc.shapes))
	for name := range sc.shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns the names of live bodies in the order they were added.
func (sc *Scene) Names() []string {
	names := make([]string, 0, len(sc.order))
	for _, name := range sc.order {
		if _, ok := sc.Body(name); ok {
			names = append(names, name)
		}
	}
	return names
}

// Remove destroys a named body.
func (sc *Scene) Remove(name string) error {
	id, ok := sc.bodies[name]
	if !ok {
		return fmt.Errorf("body %q: %w", name, world.ErrInvalidBody)
	}
	if err := sc.World.DestroyBody(id); err != nil {
		return err
	}
	delete(sc.bodies, name)
	return nil
}

// Snapshot returns the state of every live named body.
func (sc *Scene) Snapshot() []BodyState {
	w := sc.World
	var states []BodyState
	for _, name := range sc.Names() {
		id := sc.bodies[name]
		typ, _ := w.Type(id)
		t, _ := w.Transform(id)
		v, _ := w.LinearVelocity(id)
		av, _ := w.AngularVelocity(id)
		states = append(states, BodyState{
			Name:            name,
			ID:              id.String(),
			Type:            typ.String(),
			Position:        t.Position,
			Orientation:     t.Orientation,
			LinearVelocity:  v,
			AngularVelocity: av,
		})
	}
	return states
}

// Close destroys the world.
func (sc *Scene) Close() {
	sc.World.Destroy()
}
