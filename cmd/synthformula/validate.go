package main

import (
	"fmt"
	"log/slog"

	"github.com/LegoTypes/synthformula/internal/config"
	"github.com/LegoTypes/synthformula/internal/orchestrator"
	"github.com/LegoTypes/synthformula/internal/storage"
)

// ValidateCmd loads a sensor set, checks its set-level invariants, and
// compiles every formula without running a cycle — the load-time half of
// §4.3/§4.5 with no Host or DataSource collaborator attached.
type ValidateCmd struct {
	Path string `arg:"" help:"Path to a sensor set YAML file." type:"existingfile"`
}

func (c *ValidateCmd) Run(logger *slog.Logger) error {
	store := storage.NewStore(c.Path)
	set, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading %s: %w", c.Path, err)
	}

	if err := config.Validate(set); err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}

	o, err := orchestrator.New(set, nil, nil, orchestrator.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}

	var tripped []string
	for _, key := range set.Keys() {
		if cat, ok := o.BreakerCategory(key); ok {
			tripped = append(tripped, fmt.Sprintf("%s: %s", key, cat))
		}
	}
	if len(tripped) > 0 {
		for _, line := range tripped {
			fmt.Println(line)
		}
		return fmt.Errorf("%d of %d sensors failed to load", len(tripped), len(set.Sensors))
	}

	fmt.Printf("%s: %d sensors OK\n", c.Path, len(set.Sensors))
	return nil
}
