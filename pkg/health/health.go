// Package health runs diagnostic checks over a simulation world and
// aggregates the results into a report that the CLI prints after a run.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/chewxy/math32"

	"github.com/opd-ai/go-viscosity/pkg/physics"
	"github.com/opd-ai/go-viscosity/pkg/world"
)

// Status values used in reports.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Check is a single named diagnostic.
type Check interface {
	// Name returns the unique name of this check
	Name() string
	// Check returns an error if the checked state is unhealthy
	Check(ctx context.Context) error
}

// Report is the aggregated result of every registered check.
type Report struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool { return r.Status == StatusHealthy }

// WriteJSON encodes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode health report: %w", err)
	}
	return nil
}

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Checker holds registered checks.
type Checker struct {
	checks map[string]Check
	mu     sync.RWMutex
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
	}
}

// NewWorldChecker creates a checker with the standard world diagnostics.
func NewWorldChecker(w *world.World, maxPenetration float32) *Checker {
	c := NewChecker()
	c.AddCheck(NewFiniteStateCheck(w))
	c.AddCheck(NewArenaCheck(w))
	c.AddCheck(NewPenetrationCheck(w, maxPenetration))
	return c
}

// AddCheck registers a check, replacing any check with the same name.
func (c *Checker) AddCheck(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[check.Name()] = check
}

// RemoveCheck removes a check by name.
func (c *Checker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Run executes every check. The report is healthy only if all pass.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report := Report{
		Status: StatusHealthy,
		Checks: make(map[string]ComponentHealth, len(c.checks)),
	}

	for name, check := range c.checks {
		err := ctx.Err()
		if err == nil {
			err = check.Check(ctx)
		}
		if err != nil {
			report.Status = StatusUnhealthy
			report.Checks[name] = ComponentHealth{
				Status:  StatusUnhealthy,
				Message: err.Error(),
			}
			continue
		}
		report.Checks[name] = ComponentHealth{Status: StatusHealthy}
	}

	return report
}

// FiniteStateCheck fails when any body has a NaN or infinite position,
// orientation or velocity.
type FiniteStateCheck struct {
	world *world.World
}

// NewFiniteStateCheck creates a finite state check for w.
func NewFiniteStateCheck(w *world.World) *FiniteStateCheck {
	return &FiniteStateCheck{world: w}
}

// Name returns the name of this check.
func (f *FiniteStateCheck) Name() string {
	return "finite_state"
}

// Check scans every live body.
func (f *FiniteStateCheck) Check(ctx context.Context) error {
	if f.world.Destroyed() {
		return world.ErrWorldDestroyed
	}
	for id := range f.world.Bodies() {
		pos, _ := f.world.Position(id)
		rot, _ := f.world.Orientation(id)
		vel, _ := f.world.LinearVelocity(id)
		ang, _ := f.world.AngularVelocity(id)
		switch {
		case !physics.IsFinite(pos):
			return fmt.Errorf("%v has non-finite position %v", id, pos)
		case !physics.IsFinite(rot.V) || math32.IsNaN(rot.W) || math32.IsInf(rot.W, 0):
			return fmt.Errorf("%v has non-finite orientation %v", id, rot)
		case !physics.IsFinite(vel):
			return fmt.Errorf("%v has non-finite velocity %v", id, vel)
		case !physics.IsFinite(ang):
			return fmt.Errorf("%v has non-finite angular velocity %v", id, ang)
		}
	}
	return nil
}

// ArenaCheck fails when world storage bookkeeping is inconsistent.
type ArenaCheck struct {
	world *world.World
}

// NewArenaCheck creates an arena check for w.
func NewArenaCheck(w *world.World) *ArenaCheck {
	return &ArenaCheck{world: w}
}

// Name returns the name of this check.
func (a *ArenaCheck) Name() string {
	return "arena"
}

// Check verifies world storage.
func (a *ArenaCheck) Check(ctx context.Context) error {
	return a.world.Verify()
}

// PenetrationCheck fails when the deepest contact of the last step exceeds
// a tolerance, which usually means bodies are tunnelling or the time step
// is too large.
type PenetrationCheck struct {
	world     *world.World
	tolerance float32
}

// NewPenetrationCheck creates a penetration check for w.
func NewPenetrationCheck(w *world.World, tolerance float32) *PenetrationCheck {
	return &PenetrationCheck{world: w, tolerance: tolerance}
}

// Name returns the name of this check.
func (p *PenetrationCheck) Name() string {
	return "penetration"
}

// Check compares the last step's maximum penetration with the tolerance.
func (p *PenetrationCheck) Check(ctx context.Context) error {
	if p.world.Destroyed() {
		return world.ErrWorldDestroyed
	}
	if depth := p.world.Stats().MaxPenetration; depth > p.tolerance {
		return fmt.Errorf("max penetration %.4g exceeds tolerance %.4g", depth, p.tolerance)
	}
	return nil
}

// MemoryCheck fails when heap usage exceeds a limit. Large scenes grow
// the body and joint arenas without bound, so long runs report it.
type MemoryCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryCheck creates a memory check. A nil getMemoryUsage reads the
// runtime's heap allocation.
func NewMemoryCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryCheck {
	if getMemoryUsage == nil {
		getMemoryUsage = heapAllocMB
	}
	return &MemoryCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this check.
func (m *MemoryCheck) Name() string {
	return "memory"
}

// Check compares current usage with the limit.
func (m *MemoryCheck) Check(ctx context.Context) error {
	if currentMB := m.getMemoryUsage(); currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

func heapAllocMB() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Alloc / 1024 / 1024)
}
