// pkg/physics/collision_test.go
package physics

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v", i, got)
	}
}

func collideOne(t *testing.T, a *Shape, pa Pose, b *Shape, pb Pose) (Contact, int, bool) {
	t.Helper()
	var buf [MaxContacts]Contact
	n, swapped := Collide(buf[:], a, pa, b, pb)
	require.LessOrEqual(t, n, MaxContacts)
	return buf[0], n, swapped
}

func TestCollide_PlaneSphere(t *testing.T) {
	ground := NewPlane(AxisY, 0)

	tests := []struct {
		name     string
		radius   float32
		height   float32
		expected int
		pen      float32
	}{
		{"resting_exactly_touching", 1, 1, 0, 0},
		{"half_sunk", 1, 0.5, 1, 0.5},
		{"slightly_sunk", 2, 1.9, 1, 0.1},
		{"far_above", 1, 10, 0, 0},
		{"fully_below", 1, -1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ball := NewSphere(tt.radius)
			c, n, swapped := collideOne(t, ground, IdentityPose(), ball, At(mgl32.Vec3{3, tt.height, -2}))

			assert.Equal(t, tt.expected, n)
			assert.False(t, swapped)
			if n == 0 {
				return
			}
			assert.InDelta(t, tt.pen, c.Penetration, 1e-5)
			assertVec(t, AxisY, c.Normal, 1e-6)
			assertVec(t, mgl32.Vec3{3, tt.height - tt.radius, -2}, c.Position, 1e-5)
		})
	}
}

func TestCollide_PlaneOffsetAndTilted(t *testing.T) {
	t.Run("offset_plane", func(t *testing.T) {
		floor := NewPlane(AxisY, 2)
		c, n, _ := collideOne(t, floor, IdentityPose(), NewSphere(1), At(mgl32.Vec3{0, 2.75, 0}))
		require.Equal(t, 1, n)
		assert.InDelta(t, 0.25, c.Penetration, 1e-5)
	})

	t.Run("tilted_plane", func(t *testing.T) {
		normal := mgl32.Vec3{1, 1, 0}.Normalize()
		ramp := NewPlane(normal, 0)
		c, n, _ := collideOne(t, ramp, IdentityPose(), NewSphere(1), At(normal.Mul(0.5)))
		require.Equal(t, 1, n)
		assert.InDelta(t, 0.5, c.Penetration, 1e-5)
		assertVec(t, normal, c.Normal, 1e-6)
		assertVec(t, normal.Mul(-0.5), c.Position, 1e-5)
	})
}

func TestCollide_PlaneBox(t *testing.T) {
	ground := NewPlane(AxisY, 0)
	crate := NewBox(mgl32.Vec3{2, 2, 2})

	t.Run("box_resting_with_overlap", func(t *testing.T) {
		c, n, swapped := collideOne(t, ground, IdentityPose(), crate, At(mgl32.Vec3{0, 0.9, 0}))

		require.Equal(t, 1, n)
		assert.False(t, swapped)
		assert.InDelta(t, 0.1, c.Penetration, 1e-5)
		assertVec(t, AxisY, c.Normal, 1e-6)
		assertVec(t, mgl32.Vec3{0, -0.1, 0}, c.Position, 1e-5)
	})

	t.Run("box_above_plane", func(t *testing.T) {
		_, n, _ := collideOne(t, ground, IdentityPose(), crate, At(mgl32.Vec3{0, 1.5, 0}))
		assert.Zero(t, n)
	})

	t.Run("box_beyond_reach", func(t *testing.T) {
		_, n, _ := collideOne(t, ground, IdentityPose(), crate, At(mgl32.Vec3{0, 5, 0}))
		assert.Zero(t, n)
	})

	t.Run("box_on_edge", func(t *testing.T) {
		// Rotated 45 degrees about Z, the lowest edge sits sqrt(2) below
		// the center.
		pose := Pose{
			Position:    mgl32.Vec3{0, 1.3, 0},
			Orientation: mgl32.QuatRotate(math32.Pi/4, AxisZ),
		}
		c, n, _ := collideOne(t, ground, IdentityPose(), crate, pose)

		require.Equal(t, 1, n)
		assert.InDelta(t, math32.Sqrt(2)-1.3, c.Penetration, 1e-4)
		assert.InDelta(t, 0, c.Position[0], 1e-4)
		assert.InDelta(t, 0, c.Position[2], 1e-4)
	})
}

func TestCollide_SphereSphere(t *testing.T) {
	tests := []struct {
		name     string
		ra, rb   float32
		offset   mgl32.Vec3
		expected int
		pen      float32
	}{
		{"overlapping_on_x", 1, 1, mgl32.Vec3{1.5, 0, 0}, 1, 0.5},
		{"touching", 1, 1, mgl32.Vec3{2, 0, 0}, 1, 0},
		{"separated", 1, 1, mgl32.Vec3{2.5, 0, 0}, 0, 0},
		{"different_radii_diagonal", 1, 0.5, mgl32.Vec3{0, 0.8, 0.6}, 1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := NewSphere(tt.ra), NewSphere(tt.rb)
			pa := At(mgl32.Vec3{1, 2, 3})
			pb := At(pa.Position.Add(tt.offset))

			c, n, swapped := collideOne(t, a, pa, b, pb)
			assert.Equal(t, tt.expected, n)
			assert.False(t, swapped)
			if n == 0 {
				return
			}
			assert.InDelta(t, tt.pen, c.Penetration, 1e-5)
			assertVec(t, tt.offset.Normalize(), c.Normal, 1e-5)
		})
	}
}

func TestCollide_CoincidentSpheres(t *testing.T) {
	a, b := NewSphere(0.5), NewSphere(0.5)
	p := At(mgl32.Vec3{4, 4, 4})

	c, n, _ := collideOne(t, a, p, b, p)

	require.Equal(t, 1, n)
	assert.InDelta(t, 1.0, c.Penetration, 1e-6)
	assert.True(t, IsFinite(c.Normal))
	assert.InDelta(t, 1, c.Normal.Len(), 1e-6)
	assert.True(t, IsFinite(c.Position))
}

func TestCollide_BoxSphere(t *testing.T) {
	crate := NewBox(mgl32.Vec3{2, 2, 2})

	t.Run("sphere_above_face", func(t *testing.T) {
		c, n, swapped := collideOne(t, crate, IdentityPose(), NewSphere(1), At(mgl32.Vec3{0, 1.5, 0}))

		require.Equal(t, 1, n)
		assert.False(t, swapped)
		assert.InDelta(t, 0.5, c.Penetration, 1e-5)
		assertVec(t, AxisY, c.Normal, 1e-6)
		assertVec(t, mgl32.Vec3{0, 1, 0}, c.Position, 1e-6)
	})

	t.Run("sphere_near_corner", func(t *testing.T) {
		center := mgl32.Vec3{1.5, 1.5, 1.5}
		c, n, _ := collideOne(t, crate, IdentityPose(), NewSphere(1), At(center))

		require.Equal(t, 1, n)
		d := center.Sub(mgl32.Vec3{1, 1, 1}).Len()
		assert.InDelta(t, 1-d, c.Penetration, 1e-5)
		assertVec(t, mgl32.Vec3{1, 1, 1}.Normalize(), c.Normal, 1e-5)
	})

	t.Run("sphere_out_of_reach", func(t *testing.T) {
		_, n, _ := collideOne(t, crate, IdentityPose(), NewSphere(1), At(mgl32.Vec3{0, 2.1, 0}))
		assert.Zero(t, n)
	})

	t.Run("center_inside_box", func(t *testing.T) {
		c, n, _ := collideOne(t, crate, IdentityPose(), NewSphere(0.5), At(mgl32.Vec3{0.1, 0.8, 0}))

		require.Equal(t, 1, n)
		assertVec(t, AxisY, c.Normal, 1e-6)
		assert.InDelta(t, 0.7, c.Penetration, 1e-5)
		assertVec(t, mgl32.Vec3{0.1, 1, 0}, c.Position, 1e-6)
	})

	t.Run("rotated_box", func(t *testing.T) {
		plank := NewBox(mgl32.Vec3{4, 1, 1})
		pose := Pose{Orientation: mgl32.QuatRotate(math32.Pi/2, AxisZ)}
		c, n, _ := collideOne(t, plank, pose, NewSphere(1), At(mgl32.Vec3{0, 2.5, 0}))

		require.Equal(t, 1, n)
		assert.InDelta(t, 0.5, c.Penetration, 1e-4)
		assertVec(t, AxisY, c.Normal, 1e-4)
		assertVec(t, mgl32.Vec3{0, 2, 0}, c.Position, 1e-4)
	})
}

func TestCollide_UnhandledPairs(t *testing.T) {
	tests := []struct {
		name string
		a, b *Shape
	}{
		{"plane_plane", NewPlane(AxisY, 0), NewPlane(AxisX, 0)},
		{"box_box", NewBox(mgl32.Vec3{2, 2, 2}), NewBox(mgl32.Vec3{2, 2, 2})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n, swapped := collideOne(t, tt.a, IdentityPose(), tt.b, IdentityPose())
			assert.Zero(t, n)
			assert.False(t, swapped)
		})
	}
}

func TestCollide_EmptyDestination(t *testing.T) {
	n, _ := Collide(nil, NewSphere(1), IdentityPose(), NewSphere(1), IdentityPose())
	assert.Zero(t, n)
}

// Reversing the argument order must describe the same manifold once the
// swapped flag is taken into account.
func TestCollide_Symmetry(t *testing.T) {
	tilt := mgl32.QuatRotate(0.3, mgl32.Vec3{1, 0, 1}.Normalize())

	tests := []struct {
		name   string
		a      *Shape
		pa     Pose
		b      *Shape
		pb     Pose
		expect int
	}{
		{"plane_sphere", NewPlane(AxisY, 0), IdentityPose(), NewSphere(1), At(mgl32.Vec3{0, 0.7, 0}), 1},
		{"plane_box", NewPlane(AxisY, 0), IdentityPose(), NewBox(mgl32.Vec3{1, 1, 1}), Pose{Position: mgl32.Vec3{0, 0.4, 0}, Orientation: tilt}, 1},
		{"sphere_sphere", NewSphere(1), At(mgl32.Vec3{0, 0, 0}), NewSphere(0.75), At(mgl32.Vec3{0.5, 1, 0.2}), 1},
		{"box_sphere", NewBox(mgl32.Vec3{2, 1, 2}), Pose{Orientation: tilt}, NewSphere(0.5), At(mgl32.Vec3{0.3, 0.8, 0.1}), 1},
		{"sphere_sphere_apart", NewSphere(1), IdentityPose(), NewSphere(1), At(mgl32.Vec3{5, 0, 0}), 0},
	}

	// forward returns the manifold with its normal pointing from the
	// first argument toward the second.
	forward := func(a *Shape, pa Pose, b *Shape, pb Pose) (Contact, int) {
		c, n, swapped := collideOne(t, a, pa, b, pb)
		if swapped {
			c.Normal = c.Normal.Mul(-1)
		}
		return c, n
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab, nab := forward(tt.a, tt.pa, tt.b, tt.pb)
			ba, nba := forward(tt.b, tt.pb, tt.a, tt.pa)

			require.Equal(t, tt.expect, nab)
			require.Equal(t, nab, nba)
			if nab == 0 {
				return
			}
			assert.InDelta(t, ab.Penetration, ba.Penetration, 1e-5)
			assertVec(t, ab.Normal.Mul(-1), ba.Normal, 1e-5)
			assertVec(t, ab.Position, ba.Position, 1e-5)
		})
	}
}
