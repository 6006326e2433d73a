// cmd/visco/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/EngoEngine/ecs"
	"github.com/muesli/termenv"

	"github.com/opd-ai/go-viscosity/pkg/config"
	"github.com/opd-ai/go-viscosity/pkg/health"
	"github.com/opd-ai/go-viscosity/pkg/logging"
	"github.com/opd-ai/go-viscosity/pkg/render"
	"github.com/opd-ai/go-viscosity/pkg/scene"
	"github.com/opd-ai/go-viscosity/pkg/systems"
)

// Renderer modes accepted by -render.
const (
	renderNone     = "none"
	renderTerminal = "terminal"
	renderLog      = "log"
)

// memoryLimitMB bounds heap usage in the post-run health report.
const memoryLimitMB = 1024

// errUnhealthy is returned when the post-run health report fails.
var errUnhealthy = errors.New("world is unhealthy")

type options struct {
	scenarioPath   string
	steps          int
	dt             float32
	render         string
	ecs            bool
	maxPenetration float32

	out    io.Writer
	logger *logging.Logger
}

func (o options) validate() error {
	var errs []error
	switch o.render {
	case renderNone, renderTerminal, renderLog:
	default:
		errs = append(errs, fmt.Errorf("unknown renderer %q", o.render))
	}
	if o.steps < 0 {
		errs = append(errs, fmt.Errorf("steps must be non-negative, got %d", o.steps))
	}
	if o.dt < 0 {
		errs = append(errs, fmt.Errorf("dt must be non-negative, got %g", o.dt))
	}
	return errors.Join(errs...)
}

// loadScenario reads the scenario file, falling back to the default
// scenario when it does not exist, then applies environment and flag
// overrides to a copy.
func loadScenario(ctx context.Context, o options) (*config.Scenario, error) {
	var base *config.Scenario
	if _, err := os.Stat(o.scenarioPath); os.IsNotExist(err) {
		o.logger.Info(ctx, "Scenario file not found, using default scenario",
			"scenario_path", o.scenarioPath,
		)
		base = config.DefaultScenario()
	} else {
		base, err = config.LoadScenario(o.scenarioPath)
		if err != nil {
			return nil, err
		}
	}

	s, err := base.Clone()
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnvOverrides(s); err != nil {
		return nil, logging.WrapError(err, "failed to apply environment overrides to %s", o.scenarioPath)
	}
	if o.steps > 0 {
		s.Steps = o.steps
	}
	if o.dt > 0 {
		s.TimeStep = o.dt
	}
	if err := s.Validate(); err != nil {
		return nil, logging.WrapError(err, "invalid scenario %s", o.scenarioPath)
	}
	return s, nil
}

func runOnce(ctx context.Context, o options) error {
	s, err := loadScenario(ctx, o)
	if err != nil {
		return err
	}
	return runScenario(ctx, s, o)
}

func runScenario(ctx context.Context, s *config.Scenario, o options) error {
	sc, err := scene.Build(s)
	if err != nil {
		return err
	}
	defer sc.Close()

	runner := scene.NewRunner(sc, s.TimeStep, o.logger)

	if o.ecs {
		driver := newECSDriver(sc, s.TimeStep)
		defer driver.Physics.Close()
		runner.SetStepper(driver)
	}

	switch o.render {
	case renderTerminal:
		r := render.NewTerminalRenderer(o.out, s.Render)
		r.SetClearScreen(r.Profile() != termenv.Ascii)
		runner.Observe(s.Render.Every, render.Observer(r))
	case renderLog:
		runner.Observe(s.Render.Every, render.Observer(render.NewNullRenderer(o.logger)))
	}

	res, err := runner.Run(ctx, s.Steps)
	if err != nil {
		return err
	}

	if err := printStates(o.out, sc.Snapshot()); err != nil {
		return err
	}
	fmt.Fprintf(o.out, "\n%d steps, %.3fs simulated, %s elapsed\n\n", res.Steps, res.SimulatedTime, res.Elapsed)

	checker := health.NewWorldChecker(sc.World, o.maxPenetration)
	if o.maxPenetration == 0 {
		checker.RemoveCheck("penetration")
	}
	checker.AddCheck(health.NewMemoryCheck(memoryLimitMB, nil))
	report := checker.Run(ctx)
	if err := report.WriteJSON(o.out); err != nil {
		return err
	}
	if !report.Healthy() {
		return errUnhealthy
	}
	return nil
}

// newECSDriver places every named body in an ecs world stepped by a
// physics system.
func newECSDriver(sc *scene.Scene, dt float32) systems.Driver {
	var ew ecs.World
	sys := systems.NewPhysicsSystem(sc.World, dt)
	ew.AddSystemInterface(sys, new(systems.Transformable), new(systems.NotPhysical))
	for _, name := range sc.Names() {
		id, _ := sc.Body(name)
		ew.AddEntity(systems.NewBody(id))
	}
	return systems.Driver{World: &ew, Physics: sys}
}

func printStates(out io.Writer, states []scene.BodyState) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tPOSITION\tORIENTATION\tVELOCITY")
	for _, st := range states {
		fmt.Fprintf(tw, "%s\t%s\t(%.3f, %.3f, %.3f)\t(%.3f; %.3f, %.3f, %.3f)\t(%.3f, %.3f, %.3f)\n",
			st.Name, st.Type,
			st.Position[0], st.Position[1], st.Position[2],
			st.Orientation.W, st.Orientation.V[0], st.Orientation.V[1], st.Orientation.V[2],
			st.LinearVelocity[0], st.LinearVelocity[1], st.LinearVelocity[2])
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to print body states: %w", err)
	}
	return nil
}
