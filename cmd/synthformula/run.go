package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/LegoTypes/synthformula/engine"
)

// RunCmd drives a sensor set through repeated update cycles on a fixed
// interval, printing every sensor's value each cycle — a standalone demo
// driver of the begin_cycle/update/end_cycle protocol (§4.8, §6) with no
// Host catalog or DataSource attached, since that integration is named out
// of scope.
type RunCmd struct {
	Path     string        `arg:"" help:"Path to a sensor set YAML file." type:"existingfile"`
	Interval time.Duration `default:"5s" help:"Time between evaluation cycles."`
	Cycles   int           `default:"0" help:"Number of cycles to run before exiting. 0 runs until interrupted."`
	Watch    bool          `help:"Reload automatically when the sensor set file changes on disk."`
}

func (c *RunCmd) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Open(c.Path, nil, nil, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	if c.Watch {
		errs, err := e.WatchConfig(ctx)
		if err != nil {
			return err
		}
		go func() {
			for err := range errs {
				logger.Error("config watch error", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for cycle := 1; c.Cycles == 0 || cycle <= c.Cycles; cycle++ {
		results, err := e.Update(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("cycle failed", "cycle", cycle, "error", err)
		} else {
			for _, r := range results {
				fmt.Printf("%-20s %s\n", r.Key, r.Value)
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
