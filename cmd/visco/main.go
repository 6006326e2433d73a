// cmd/visco/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/go-viscosity/pkg/config"
	"github.com/opd-ai/go-viscosity/pkg/logging"
)

var version = "dev"

func main() {
	logger := logging.NewLogger()

	scenarioPath := flag.String("scenario", "scenario.yaml", "Path to scenario file (.json, .yaml, .yml or .toml)")
	steps := flag.Int("steps", 0, "Number of steps to run (overrides scenario)")
	dt := flag.Float64("dt", 0, "Fixed time step in seconds (overrides scenario)")
	renderMode := flag.String("render", "none", "Renderer: 'none', 'terminal' or 'log'")
	useECS := flag.Bool("ecs", false, "Step the world through the ECS physics system")
	watch := flag.Bool("watch", false, "Re-run whenever the scenario file changes")
	createDefault := flag.Bool("default", false, "Write the default scenario to -scenario and exit")
	maxPenetration := flag.Float64("max-penetration", 0.1, "Penetration tolerance for the health report (0 disables the check)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("visco", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, "")

	if *createDefault {
		if err := config.SaveScenario(config.DefaultScenario(), *scenarioPath); err != nil {
			logger.Error(ctx, "Failed to create default scenario", err,
				"scenario_path", *scenarioPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default scenario file",
			"scenario_path", *scenarioPath,
		)
		return
	}

	opts := options{
		scenarioPath:   *scenarioPath,
		steps:          *steps,
		dt:             float32(*dt),
		render:         *renderMode,
		ecs:            *useECS,
		maxPenetration: float32(*maxPenetration),
		out:            os.Stdout,
		logger:         logger,
	}
	if err := opts.validate(); err != nil {
		logger.Error(ctx, "Invalid flags", err)
		os.Exit(2)
	}

	var err error
	if *watch {
		err = watchAndRun(ctx, opts)
	} else {
		err = runOnce(ctx, opts)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "Simulation failed", err,
			"scenario_path", *scenarioPath,
		)
		os.Exit(1)
	}
}
