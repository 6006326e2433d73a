// cmd/visco/watch.go
package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/opd-ai/go-viscosity/pkg/logging"
)

// watchAndRun runs the scenario and starts over each time the file is
// written. A run in progress is cancelled when the file changes.
func watchAndRun(ctx context.Context, o options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files, so watch the directory.
	target := filepath.Clean(o.scenarioPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	o.logger.Info(ctx, "Watching scenario file", "scenario_path", target)

	for {
		runCtx, cancel := context.WithCancel(logging.WithRunID(ctx, logging.NewRunID()))
		done := make(chan error, 1)
		go func(ch chan<- error) { ch <- runOnce(runCtx, o) }(done)
		stopRun := func() {
			cancel()
			if done != nil {
				<-done
				done = nil
			}
		}

		changed := false
		for !changed {
			select {
			case <-ctx.Done():
				stopRun()
				return ctx.Err()

			case err := <-done:
				if err != nil && !errors.Is(err, context.Canceled) {
					o.logger.Error(runCtx, "Run failed", err)
				}
				done = nil

			case ev, ok := <-watcher.Events:
				if !ok {
					stopRun()
					return nil
				}
				if isScenarioChange(ev, target) {
					o.logger.Info(ctx, "Scenario changed, restarting", "op", ev.Op.String())
					changed = true
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					stopRun()
					return nil
				}
				o.logger.Warn(ctx, "File watcher error", "error", err.Error())
			}
		}

		stopRun()
	}
}

func isScenarioChange(ev fsnotify.Event, target string) bool {
	if filepath.Clean(ev.Name) != target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
