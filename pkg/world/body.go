// pkg/world/body.go
package world

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/opd-ai/go-viscosity/pkg/physics"
)

var (
	// ErrInvalidBody is returned for handles that are stale, destroyed or
	// were never issued by the world.
	ErrInvalidBody = errors.New("invalid body")
	// ErrWorldDestroyed is returned by every call on a destroyed world.
	ErrWorldDestroyed = errors.New("world destroyed")
	// ErrInvalidBodyType is returned when SetType is asked for a type a
	// live body cannot have.
	ErrInvalidBodyType = errors.New("invalid body type")
	// ErrNonFinite is returned when a setter or force call is given a NaN
	// or infinite component.
	ErrNonFinite = errors.New("non-finite value")
)

// BodyID is a handle to a body. The low 32 bits hold the slot index and
// the high 32 bits the slot generation, so a handle stops resolving once
// its body is destroyed even if the slot is reused.
type BodyID uint64

// NoBody is never issued by a world.
const NoBody BodyID = 0

func makeBodyID(index, gen uint32) BodyID {
	return BodyID(uint64(gen)<<32 | uint64(index))
}

// Index returns the storage slot of the handle.
func (id BodyID) Index() int { return int(uint32(id)) }

// Generation returns the slot generation the handle was issued for.
func (id BodyID) Generation() uint32 { return uint32(id >> 32) }

func (id BodyID) String() string {
	if id == NoBody {
		return "body(none)"
	}
	return fmt.Sprintf("body(%d#%d)", id.Index(), id.Generation())
}

// BodyType selects how the pipeline treats a body. Types above Static are
// simulated.
type BodyType int

const (
	Deleted BodyType = iota
	Static
	Dynamic
	Kinematic
)

func (t BodyType) String() string {
	switch t {
	case Deleted:
		return "deleted"
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	}
	return fmt.Sprintf("BodyType(%d)", int(t))
}

// simulated reports whether the integrator advances bodies of this type.
func (t BodyType) simulated() bool { return t > Static }

// bodyArena stores bodies as parallel slices indexed by slot. Every slice
// has the same length, which is the arena capacity. Slots at or above used
// have never been handed out.
type bodyArena struct {
	kind   []BodyType
	gen    []uint32
	pos    []mgl32.Vec3
	vel    []mgl32.Vec3
	rot    []mgl32.Quat
	angVel []mgl32.Vec3
	// accumulated velocity deltas, drained at the next integration
	accVel    []mgl32.Vec3
	accAngVel []mgl32.Vec3
	aabb      []physics.AABB
	shape     []*physics.Shape

	free []uint32
	used int
	live int
}

func newBodyArena(capacity int) bodyArena {
	var a bodyArena
	a.resize(capacity)
	return a
}

func (a *bodyArena) capacity() int { return len(a.kind) }

// resize reallocates every column at the new capacity and copies the
// existing rows across.
func (a *bodyArena) resize(capacity int) {
	a.kind = grow(a.kind, capacity)
	a.gen = grow(a.gen, capacity)
	a.pos = grow(a.pos, capacity)
	a.vel = grow(a.vel, capacity)
	a.rot = grow(a.rot, capacity)
	a.angVel = grow(a.angVel, capacity)
	a.accVel = grow(a.accVel, capacity)
	a.accAngVel = grow(a.accAngVel, capacity)
	a.aabb = grow(a.aabb, capacity)
	a.shape = grow(a.shape, capacity)
	a.free = append(make([]uint32, 0, capacity), a.free...)
}

func grow[T any](s []T, n int) []T {
	out := make([]T, n)
	copy(out, s)
	return out
}

// alloc returns a free slot, reusing the most recently freed one before
// extending. grew is true when the arena had to double.
func (a *bodyArena) alloc() (index uint32, grew bool) {
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if a.used == a.capacity() {
			a.resize(a.capacity() * 2)
			grew = true
		}
		index = uint32(a.used)
		a.used++
	}

	if a.gen[index] == 0 {
		a.gen[index] = 1
	}
	a.kind[index] = Static
	a.pos[index] = mgl32.Vec3{}
	a.vel[index] = mgl32.Vec3{}
	a.rot[index] = mgl32.QuatIdent()
	a.angVel[index] = mgl32.Vec3{}
	a.accVel[index] = mgl32.Vec3{}
	a.accAngVel[index] = mgl32.Vec3{}
	a.aabb[index] = physics.AABB{}
	a.shape[index] = nil
	a.live++
	return index, grew
}

func (a *bodyArena) release(index uint32) {
	a.kind[index] = Deleted
	a.shape[index] = nil
	a.gen[index]++
	if a.gen[index] == 0 {
		a.gen[index] = 1
	}
	a.free = append(a.free, index)
	a.live--
}

// lookup resolves a handle to its slot.
func (a *bodyArena) lookup(id BodyID) (int, bool) {
	i := id.Index()
	if id == NoBody || i >= a.used {
		return 0, false
	}
	if a.kind[i] == Deleted || a.gen[i] != id.Generation() {
		return 0, false
	}
	return i, true
}

func (a *bodyArena) id(i int) BodyID {
	return makeBodyID(uint32(i), a.gen[i])
}

func (a *bodyArena) pose(i int) physics.Pose {
	return physics.Pose{Position: a.pos[i], Orientation: a.rot[i]}
}

// refreshAABB recomputes the world bounds of slot i from its shape.
func (a *bodyArena) refreshAABB(i int) {
	if s := a.shape[i]; s != nil {
		a.aabb[i] = s.AABB(a.rot[i]).Translate(a.pos[i])
	} else {
		a.aabb[i] = physics.AABB{}
	}
}
