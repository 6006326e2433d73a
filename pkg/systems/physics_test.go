package systems

import (
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-viscosity/pkg/event"
	"github.com/opd-ai/go-viscosity/pkg/physics"
	"github.com/opd-ai/go-viscosity/pkg/world"
)

func fallingBody(t *testing.T, w *world.World) world.BodyID {
	t.Helper()
	id, err := w.CreateBody()
	require.NoError(t, err)
	require.NoError(t, w.SetType(id, world.Dynamic))
	require.NoError(t, w.SetShape(id, physics.NewSphere(0.5)))
	require.NoError(t, w.SetPosition(id, mgl32.Vec3{0, 10, 0}))
	return id
}

func TestPhysicsSystem_FixedStep(t *testing.T) {
	w := world.New(nil)
	sys := NewPhysicsSystem(w, 0.25)

	sys.Update(0.625)
	assert.Equal(t, 2, sys.Steps())
	assert.Equal(t, uint64(2), w.StepCount())

	sys.Update(0.125)
	assert.Equal(t, 3, sys.Steps(), "leftover time carries into the next update")

	sys.Update(0.1)
	assert.Equal(t, 3, sys.Steps())
	assert.NoError(t, sys.Err())
}

func TestPhysicsSystem_MaxSubSteps(t *testing.T) {
	w := world.New(nil)
	sys := NewPhysicsSystem(w, 0.25)
	sys.SetMaxSubSteps(2)

	sys.Update(1)
	assert.Equal(t, 2, sys.Steps())

	sys.Update(0)
	assert.Equal(t, 2, sys.Steps(), "excess frame time is dropped")

	sys.SetMaxSubSteps(0)
	sys.Update(1)
	assert.Equal(t, 3, sys.Steps())
}

func TestPhysicsSystem_SyncsTransforms(t *testing.T) {
	w := world.New(nil)
	id := fallingBody(t, w)
	body := NewBody(id)

	sys := NewPhysicsSystem(w, 0.01)
	sys.Add(&body.BasicEntity, &body.TransformComponent)
	assert.Equal(t, mgl32.Vec3{0, 10, 0}, body.Position, "synced on add")
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, body.Scale)

	for i := 0; i < 10; i++ {
		sys.Update(0.01)
	}
	pos, _ := w.Position(id)
	assert.Equal(t, pos, body.Position)
	assert.Less(t, body.Position[1], float32(10))
}

func TestPhysicsSystem_InEcsWorld(t *testing.T) {
	w := world.New(nil)
	sys := NewPhysicsSystem(w, 0.01)

	var ew ecs.World
	ew.AddSystemInterface(sys, new(Transformable), new(NotPhysical))

	body := NewBody(fallingBody(t, w))
	ew.AddEntity(body)
	assert.Equal(t, 1, sys.Len())

	driver := Driver{World: &ew, Physics: sys}
	for i := 0; i < 5; i++ {
		require.NoError(t, driver.Step(0.01))
	}
	assert.Equal(t, 5, sys.Steps())
	assert.Less(t, body.Position[1], float32(10))

	ew.RemoveEntity(body.BasicEntity)
	assert.Zero(t, sys.Len())
	assert.False(t, w.Valid(body.Body), "removing the entity destroys its body")
}

func TestPhysicsSystem_PrioritizedFirst(t *testing.T) {
	assert.Equal(t, PhysicsPriority, NewPhysicsSystem(world.New(nil), 0.01).Priority())
}

func TestPhysicsSystem_ExternalDestroy(t *testing.T) {
	w := world.New(nil)
	w.SetEventBus(event.NewEventBus())
	sys := NewPhysicsSystem(w, 0.01)
	defer sys.Close()

	a := NewBody(fallingBody(t, w))
	b := NewBody(fallingBody(t, w))
	sys.Add(&a.BasicEntity, &a.TransformComponent)
	sys.Add(&b.BasicEntity, &b.TransformComponent)

	require.NoError(t, w.DestroyBody(a.Body))
	assert.Equal(t, 1, sys.Len())

	sys.Update(0.01)
	assert.NoError(t, sys.Err())

	sys.Close()
	assert.False(t, w.EventBus().HasSubscribers(event.BodyDestroyed))
}

func TestPhysicsSystem_Errors(t *testing.T) {
	w := world.New(nil)
	sys := NewPhysicsSystem(w, 0.01)
	w.Destroy()

	sys.Update(0.01)
	assert.ErrorIs(t, sys.Err(), world.ErrWorldDestroyed)

	var ew ecs.World
	ew.AddSystem(sys)
	assert.ErrorIs(t, Driver{World: &ew, Physics: sys}.Step(0.01), world.ErrWorldDestroyed)

	bad := NewPhysicsSystem(world.New(nil), 0)
	bad.Update(1)
	assert.ErrorIs(t, bad.Err(), ErrInvalidStep)
}
