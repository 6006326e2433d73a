// pkg/scene/runner.go
package scene

import (
	"context"
	"fmt"
	"time"

	"github.com/opd-ai/go-viscosity/pkg/logging"
	"github.com/opd-ai/go-viscosity/pkg/world"
)

// Stepper advances a simulation by one fixed step.
type Stepper interface {
	Step(dt float32) error
}

// Frame describes the state after one step.
type Frame struct {
	Step  int
	Time  float32
	Stats world.Stats
}

// Observer is called after selected steps. Returning an error stops the
// run.
type Observer func(ctx context.Context, sc *Scene, f Frame) error

type observer struct {
	every int
	fn    Observer
}

// Result summarises a run.
type Result struct {
	Steps         int           `json:"steps"`
	SimulatedTime float32       `json:"simulatedTime"`
	Elapsed       time.Duration `json:"elapsed"`
	Final         world.Stats   `json:"final"`
}

// Runner steps a scene at a fixed time step.
type Runner struct {
	scene     *Scene
	stepper   Stepper
	dt        float32
	logger    *logging.Logger
	observers []observer
}

// NewRunner creates a runner that steps sc.World by dt. A nil logger
// silences the run.
func NewRunner(sc *Scene, dt float32, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Runner{
		scene:   sc,
		stepper: sc.World,
		dt:      dt,
		logger:  logger.With("scene", sc.Name),
	}
}

// SetStepper replaces the world as the thing advanced each step. The
// stepper must still advance the scene's world.
func (r *Runner) SetStepper(s Stepper) {
	if s == nil {
		s = r.scene.World
	}
	r.stepper = s
}

// Observe registers fn to run after every n-th step and after the last
// one. n < 1 means only after the last step.
func (r *Runner) Observe(every int, fn Observer) {
	r.observers = append(r.observers, observer{every: every, fn: fn})
}

// Run advances the scene by steps fixed steps. The context is checked
// between steps; a cancelled run returns the partial result with the
// context error. Log records carry the run ID found in ctx, or a new one.
func (r *Runner) Run(ctx context.Context, steps int) (Result, error) {
	if logging.RunID(ctx) == "" {
		ctx = logging.WithRunID(ctx, logging.NewRunID())
	}
	w := r.scene.World
	w.SetLogger(r.logger)
	w.SetContext(ctx)

	var res Result
	start := time.Now()
	r.logger.Info(ctx, "run started", "steps", steps, "dt", r.dt, "bodies", w.BodyCount())

	for step := 1; step <= steps; step++ {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			r.logger.Warn(ctx, "run cancelled", "step", res.Steps, "reason", err.Error())
			return res, fmt.Errorf("run cancelled after %d steps: %w", res.Steps, err)
		}
		if err := r.stepper.Step(r.dt); err != nil {
			res.Elapsed = time.Since(start)
			r.logger.Error(ctx, "step failed", err, "step", step)
			return res, fmt.Errorf("step %d: %w", step, err)
		}

		res.Steps = step
		res.SimulatedTime += r.dt
		res.Final = w.Stats()

		frame := Frame{Step: step, Time: res.SimulatedTime, Stats: res.Final}
		for _, o := range r.observers {
			if step != steps && (o.every < 1 || step%o.every != 0) {
				continue
			}
			if err := o.fn(ctx, r.scene, frame); err != nil {
				res.Elapsed = time.Since(start)
				return res, fmt.Errorf("observer at step %d: %w", step, err)
			}
		}
	}

	res.Elapsed = time.Since(start)
	r.logger.Info(ctx, "run finished",
		"steps", res.Steps,
		"simulated_time", res.SimulatedTime,
		"elapsed", res.Elapsed.String(),
		"contacts", res.Final.Contacts)
	return res, nil
}
