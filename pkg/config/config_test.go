package config

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-viscosity/pkg/physics"
)

func ptr(f float32) *float32 { return &f }

func TestDefaultWorldConfig(t *testing.T) {
	c := DefaultWorldConfig()

	assert.Equal(t, mgl32.Vec3{0, -9.8, 0}, c.Gravity)
	assert.Equal(t, 4, c.InitialBodyCapacity)
	assert.Equal(t, 4, c.InitialJointCapacity)
	assert.Equal(t, float32(0.01), c.Slop)
	assert.Equal(t, float32(0.1), c.AngularDamping)
	assert.Equal(t, physics.MaxContacts, c.MaxContacts)
	assert.NoError(t, c.Validate())
}

func TestDefaultScenario_IsValid(t *testing.T) {
	s := DefaultScenario()

	require.NoError(t, s.Validate())
	assert.Len(t, s.Shapes, 3)
	assert.Len(t, s.Bodies, 3)

	ground, ok := s.Shape("ground")
	require.True(t, ok)
	assert.Equal(t, physics.ShapePlane, ground.Type)

	_, ok = s.Shape("missing")
	assert.False(t, ok)
}

func TestScenario_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr []string
	}{
		{
			name:   "valid",
			mutate: func(*Scenario) {},
		},
		{
			name:    "bad_timestep",
			mutate:  func(s *Scenario) { s.TimeStep = 0 },
			wantErr: []string{"timeStep must be positive"},
		},
		{
			name:    "negative_steps",
			mutate:  func(s *Scenario) { s.Steps = -1 },
			wantErr: []string{"steps must be non-negative"},
		},
		{
			name: "bad_world",
			mutate: func(s *Scenario) {
				s.World.InitialBodyCapacity = 0
				s.World.MaxContacts = 0
			},
			wantErr: []string{"initialBodyCapacity", "maxContacts"},
		},
		{
			name: "bad_shapes",
			mutate: func(s *Scenario) {
				s.Shapes = append(s.Shapes,
					ShapeConfig{Name: "flat", Type: physics.ShapeSphere},
					ShapeConfig{Name: "thin", Type: physics.ShapeBox, Size: mgl32.Vec3{1, 0, 1}},
					ShapeConfig{Name: "ball", Type: physics.ShapeSphere, Radius: 1},
					ShapeConfig{Name: "bouncy", Type: physics.ShapeSphere, Radius: 1, Restitution: ptr(2)},
				)
			},
			wantErr: []string{"sphere radius", "box size", `duplicate name "ball"`, "restitution"},
		},
		{
			name: "bad_bodies",
			mutate: func(s *Scenario) {
				s.Bodies = append(s.Bodies,
					BodyConfig{Name: "ghost", Shape: "nope"},
					BodyConfig{Name: "odd", Kind: "floating"},
					BodyConfig{Name: "ball"},
				)
			},
			wantErr: []string{`unknown shape "nope"`, `unknown kind "floating"`, `duplicate name "ball"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultScenario()
			tt.mutate(s)
			err := s.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestScenario_Clone_IsDeep(t *testing.T) {
	s := DefaultScenario()
	s.Shapes[1].Density = ptr(2)

	c, err := s.Clone()
	require.NoError(t, err)
	assert.Equal(t, s, c)

	c.Shapes[0].Name = "changed"
	*c.Shapes[1].Density = 5
	c.Bodies = c.Bodies[:1]
	c.World.Gravity = mgl32.Vec3{}

	assert.Equal(t, "ground", s.Shapes[0].Name)
	assert.Equal(t, float32(2), *s.Shapes[1].Density)
	assert.Len(t, s.Bodies, 3)
	assert.Equal(t, mgl32.Vec3{0, -9.8, 0}, s.World.Gravity)
}

func TestBodyConfig_Orientation(t *testing.T) {
	t.Run("no rotation", func(t *testing.T) {
		b := BodyConfig{RotationAxis: physics.AxisZ}
		assert.Equal(t, mgl32.QuatIdent(), b.Orientation())
	})

	t.Run("quarter turn about y", func(t *testing.T) {
		b := BodyConfig{RotationAxis: mgl32.Vec3{0, 2, 0}, RotationDegrees: 90}
		got := b.Orientation().Rotate(physics.AxisX)
		assert.InDelta(t, 0, got[0], 1e-6)
		assert.InDelta(t, -1, got[2], 1e-6)
		assert.InDelta(t, 1, b.Orientation().Len(), 1e-6)
	})
}

func TestShapeConfig_Build(t *testing.T) {
	tests := []struct {
		name string
		cfg  ShapeConfig
		kind physics.ShapeType
		mass float32
	}{
		{"plane", ShapeConfig{Type: physics.ShapePlane, Normal: mgl32.Vec3{0, 3, 0}, Distance: 1}, physics.ShapePlane, 0},
		{"box", ShapeConfig{Type: physics.ShapeBox, Size: mgl32.Vec3{1, 2, 3}}, physics.ShapeBox, 6},
		{"dense_box", ShapeConfig{Type: physics.ShapeBox, Size: mgl32.Vec3{1, 1, 1}, Density: ptr(4)}, physics.ShapeBox, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.cfg.Build()
			assert.Equal(t, tt.kind, s.Type())
			assert.InDelta(t, tt.mass, s.Mass(), 1e-5)
		})
	}

	t.Run("material overrides", func(t *testing.T) {
		s := (&ShapeConfig{Type: physics.ShapeSphere, Radius: 1, Restitution: ptr(0.8), Friction: ptr(0.1)}).Build()
		assert.Equal(t, float32(0.8), s.Restitution())
		assert.Equal(t, float32(0.1), s.Friction())
	})
}
