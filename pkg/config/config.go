// pkg/config/config.go
package config

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"

	"github.com/opd-ai/go-viscosity/pkg/physics"
)

// WorldConfig tunes a simulation world
type WorldConfig struct {
	Gravity              mgl32.Vec3 `json:"gravity" yaml:"gravity" toml:"gravity"`
	InitialBodyCapacity  int        `json:"initialBodyCapacity" yaml:"initialBodyCapacity" toml:"initialBodyCapacity"`
	InitialJointCapacity int        `json:"initialJointCapacity" yaml:"initialJointCapacity" toml:"initialJointCapacity"`
	Slop                 float32    `json:"slop" yaml:"slop" toml:"slop"`
	AngularDamping       float32    `json:"angularDamping" yaml:"angularDamping" toml:"angularDamping"`
	MaxContacts          int        `json:"maxContacts" yaml:"maxContacts" toml:"maxContacts"`
}

// ShapeConfig describes a named shape. Bodies refer to shapes by name so
// one shape can back several bodies.
type ShapeConfig struct {
	Name     string            `json:"name" yaml:"name" toml:"name"`
	Type     physics.ShapeType `json:"type" yaml:"type" toml:"type"`
	Normal   mgl32.Vec3        `json:"normal" yaml:"normal" toml:"normal"`
	Distance float32           `json:"distance" yaml:"distance" toml:"distance"`
	Radius   float32           `json:"radius" yaml:"radius" toml:"radius"`
	Size     mgl32.Vec3        `json:"size" yaml:"size" toml:"size"`

	// Optional material overrides
	Density     *float32 `json:"density,omitempty" yaml:"density,omitempty" toml:"density,omitempty"`
	Restitution *float32 `json:"restitution,omitempty" yaml:"restitution,omitempty" toml:"restitution,omitempty"`
	Friction    *float32 `json:"friction,omitempty" yaml:"friction,omitempty" toml:"friction,omitempty"`
}

// BodyKind names the simulation mode of a configured body
type BodyKind string

// Body kinds. An empty kind means dynamic.
const (
	KindStatic    BodyKind = "static"
	KindDynamic   BodyKind = "dynamic"
	KindKinematic BodyKind = "kinematic"
)

func (k BodyKind) valid() bool {
	switch k {
	case "", KindStatic, KindDynamic, KindKinematic:
		return true
	}
	return false
}

// BodyConfig describes a body placed in the world at start
type BodyConfig struct {
	Name            string     `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Shape           string     `json:"shape,omitempty" yaml:"shape,omitempty" toml:"shape,omitempty"`
	Kind            BodyKind   `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Position        mgl32.Vec3 `json:"position" yaml:"position" toml:"position"`
	RotationAxis    mgl32.Vec3 `json:"rotationAxis" yaml:"rotationAxis" toml:"rotationAxis"`
	RotationDegrees float32    `json:"rotationDegrees" yaml:"rotationDegrees" toml:"rotationDegrees"`
	LinearVelocity  mgl32.Vec3 `json:"linearVelocity" yaml:"linearVelocity" toml:"linearVelocity"`
	AngularVelocity mgl32.Vec3 `json:"angularVelocity" yaml:"angularVelocity" toml:"angularVelocity"`
}

// Orientation converts the axis-angle rotation into a unit quaternion.
func (b *BodyConfig) Orientation() mgl32.Quat {
	if b.RotationDegrees == 0 || b.RotationAxis.Len() < physics.Epsilon {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatRotate(mgl32.DegToRad(b.RotationDegrees), b.RotationAxis.Normalize())
}

// RenderConfig controls the terminal renderer
type RenderConfig struct {
	Width  int     `json:"width" yaml:"width" toml:"width"`
	Height int     `json:"height" yaml:"height" toml:"height"`
	Scale  float32 `json:"scale" yaml:"scale" toml:"scale"`
	Every  int     `json:"every" yaml:"every" toml:"every"`
	Color  bool    `json:"color" yaml:"color" toml:"color"`
}

// Scenario is a complete, reproducible simulation run
type Scenario struct {
	Name     string        `json:"name" yaml:"name" toml:"name"`
	World    WorldConfig   `json:"world" yaml:"world" toml:"world"`
	Steps    int           `json:"steps" yaml:"steps" toml:"steps"`
	TimeStep float32       `json:"timeStep" yaml:"timeStep" toml:"timeStep"`
	Render   RenderConfig  `json:"render" yaml:"render" toml:"render"`
	Shapes   []ShapeConfig `json:"shapes" yaml:"shapes" toml:"shapes"`
	Bodies   []BodyConfig  `json:"bodies" yaml:"bodies" toml:"bodies"`
}

// DefaultWorldConfig returns the standard world tuning
func DefaultWorldConfig() *WorldConfig {
	return &WorldConfig{
		Gravity:              mgl32.Vec3{0, -9.8, 0},
		InitialBodyCapacity:  4,
		InitialJointCapacity: 4,
		Slop:                 0.01,
		AngularDamping:       0.1,
		MaxContacts:          physics.MaxContacts,
	}
}

// DefaultRenderConfig returns a renderer setup that fits an 80 column
// terminal.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:  72,
		Height: 20,
		Scale:  6,
		Every:  25,
		Color:  true,
	}
}

// DefaultScenario returns a sphere and a box falling onto a ground plane
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:     "default",
		World:    *DefaultWorldConfig(),
		Steps:    300,
		TimeStep: 0.01,
		Render:   DefaultRenderConfig(),
		Shapes: []ShapeConfig{
			{Name: "ground", Type: physics.ShapePlane, Normal: physics.AxisY},
			{Name: "ball", Type: physics.ShapeSphere, Radius: 0.5},
			{Name: "crate", Type: physics.ShapeBox, Size: mgl32.Vec3{1, 1, 1}},
		},
		Bodies: []BodyConfig{
			{Name: "ground", Shape: "ground", Kind: KindStatic},
			{Name: "ball", Shape: "ball", Kind: KindDynamic, Position: mgl32.Vec3{-1, 3, 0}},
			{
				Name:            "crate",
				Shape:           "crate",
				Kind:            KindDynamic,
				Position:        mgl32.Vec3{1.5, 2, 0},
				RotationAxis:    physics.AxisZ,
				RotationDegrees: 30,
			},
		},
	}
}

// baseScenario is the starting point files are decoded onto, so omitted
// sections keep their defaults.
func baseScenario() *Scenario {
	return &Scenario{
		World:    *DefaultWorldConfig(),
		Steps:    300,
		TimeStep: 0.01,
		Render:   DefaultRenderConfig(),
	}
}

// Clone returns a deep copy of the scenario
func (s *Scenario) Clone() (*Scenario, error) {
	var out Scenario
	if err := copier.CopyWithOption(&out, s, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to clone scenario: %w", err)
	}
	return &out, nil
}

// Shape looks up a shape configuration by name
func (s *Scenario) Shape(name string) (ShapeConfig, bool) {
	for _, sh := range s.Shapes {
		if sh.Name == name {
			return sh, true
		}
	}
	return ShapeConfig{}, false
}

// Validate reports every problem found in the scenario
func (s *Scenario) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if s.Steps < 0 {
		add("steps must be non-negative, got %d", s.Steps)
	}
	if !(s.TimeStep > 0) || math32.IsInf(s.TimeStep, 0) {
		add("timeStep must be positive, got %g", s.TimeStep)
	}
	if err := s.World.Validate(); err != nil {
		errs = append(errs, err)
	}

	names := make(map[string]bool, len(s.Shapes))
	for i, sh := range s.Shapes {
		if err := sh.validate(); err != nil {
			errs = append(errs, fmt.Errorf("shape %d (%q): %w", i, sh.Name, err))
		}
		if names[sh.Name] {
			add("shape %d: duplicate name %q", i, sh.Name)
		}
		names[sh.Name] = true
	}

	bodies := make(map[string]bool, len(s.Bodies))
	for i, b := range s.Bodies {
		if b.Shape != "" && !names[b.Shape] {
			add("body %d (%q): unknown shape %q", i, b.Name, b.Shape)
		}
		if !b.Kind.valid() {
			add("body %d (%q): unknown kind %q", i, b.Name, b.Kind)
		}
		if b.Name != "" {
			if bodies[b.Name] {
				add("body %d: duplicate name %q", i, b.Name)
			}
			bodies[b.Name] = true
		}
		if !physics.IsFinite(b.Position) || !physics.IsFinite(b.LinearVelocity) || !physics.IsFinite(b.AngularVelocity) {
			add("body %d (%q): non-finite state", i, b.Name)
		}
	}

	if s.Render.Width < 0 || s.Render.Height < 0 {
		add("render size must be non-negative, got %dx%d", s.Render.Width, s.Render.Height)
	}
	if s.Render.Every < 0 {
		add("render.every must be non-negative, got %d", s.Render.Every)
	}

	return errors.Join(errs...)
}

// Validate checks the world tuning values
func (c *WorldConfig) Validate() error {
	var errs []error
	if !physics.IsFinite(c.Gravity) {
		errs = append(errs, fmt.Errorf("gravity must be finite, got %v", c.Gravity))
	}
	if c.InitialBodyCapacity < 1 {
		errs = append(errs, fmt.Errorf("initialBodyCapacity must be at least 1, got %d", c.InitialBodyCapacity))
	}
	if c.InitialJointCapacity < 1 {
		errs = append(errs, fmt.Errorf("initialJointCapacity must be at least 1, got %d", c.InitialJointCapacity))
	}
	if c.Slop < 0 {
		errs = append(errs, fmt.Errorf("slop must be non-negative, got %g", c.Slop))
	}
	if c.AngularDamping < 0 {
		errs = append(errs, fmt.Errorf("angularDamping must be non-negative, got %g", c.AngularDamping))
	}
	if c.MaxContacts < 1 {
		errs = append(errs, fmt.Errorf("maxContacts must be at least 1, got %d", c.MaxContacts))
	}
	return errors.Join(errs...)
}

func (sh *ShapeConfig) validate() error {
	var errs []error
	if sh.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch sh.Type {
	case physics.ShapePlane:
		if sh.Normal.Len() < physics.Epsilon {
			errs = append(errs, errors.New("plane normal must be non-zero"))
		}
	case physics.ShapeSphere:
		if !(sh.Radius > 0) {
			errs = append(errs, fmt.Errorf("sphere radius must be positive, got %g", sh.Radius))
		}
	case physics.ShapeBox:
		if !(sh.Size[0] > 0 && sh.Size[1] > 0 && sh.Size[2] > 0) {
			errs = append(errs, fmt.Errorf("box size must be positive, got %v", sh.Size))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown shape type %d", int(sh.Type)))
	}
	if sh.Density != nil && !(*sh.Density > 0) {
		errs = append(errs, fmt.Errorf("density must be positive, got %g", *sh.Density))
	}
	if sh.Restitution != nil && (*sh.Restitution < 0 || *sh.Restitution > 1) {
		errs = append(errs, fmt.Errorf("restitution must be within [0,1], got %g", *sh.Restitution))
	}
	if sh.Friction != nil && *sh.Friction < 0 {
		errs = append(errs, fmt.Errorf("friction must be non-negative, got %g", *sh.Friction))
	}
	return errors.Join(errs...)
}

// Build creates the physics shape described by the configuration
func (sh *ShapeConfig) Build() *physics.Shape {
	var s *physics.Shape
	switch sh.Type {
	case physics.ShapeSphere:
		s = physics.NewSphere(sh.Radius)
	case physics.ShapeBox:
		s = physics.NewBox(sh.Size)
	default:
		s = physics.NewPlane(sh.Normal, sh.Distance)
	}
	if sh.Density != nil {
		s.SetDensity(*sh.Density)
	}
	if sh.Restitution != nil {
		s.SetRestitution(*sh.Restitution)
	}
	if sh.Friction != nil {
		s.SetFriction(*sh.Friction)
	}
	return s
}
