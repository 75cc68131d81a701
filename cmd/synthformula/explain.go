package main

import (
	"fmt"
	"log/slog"

	"github.com/LegoTypes/synthformula/engine"
)

// ExplainCmd prints the binding plan for one sensor: every free name its
// main formula (and, with --attributes, its attribute formulas) resolves
// to, and the strategy used, the way `jsonata --ast` inspects a compiled
// expression (§4.3, §7 diagnostic payload).
type ExplainCmd struct {
	Path       string `arg:"" help:"Path to a sensor set YAML file." type:"existingfile"`
	Sensor     string `arg:"" help:"Sensor key to explain."`
	Attributes bool   `help:"Also print the attribute sub-DAG's binding plans."`
}

func (c *ExplainCmd) Run(logger *slog.Logger) error {
	e, err := engine.Open(c.Path, nil, nil, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	exp, err := e.Explain(c.Sensor)
	if err != nil {
		return err
	}

	fmt.Printf("sensor %q", exp.Key)
	if exp.ExternalID != "" {
		fmt.Printf(" (external_id=%s)", exp.ExternalID)
	}
	fmt.Println()
	printFormula(exp.Main)

	if c.Attributes {
		for _, attr := range exp.Attributes {
			printFormula(attr)
		}
	}

	if se, tripped := e.SensorError(c.Sensor); tripped {
		fmt.Printf("  Error: %s in %q", se.Kind, se.Formula)
		if se.Position >= 0 {
			fmt.Printf(" at position %d", se.Position)
		}
		if len(se.Unresolved) > 0 {
			fmt.Printf(", unresolved: %v", se.Unresolved)
		}
		fmt.Println()
	}
	return nil
}

func printFormula(f engine.FormulaExplanation) {
	fmt.Printf("  %s: %s\n", f.Name, f.Text)
	for _, r := range f.Resolved {
		if r.Strategy == "missing" {
			continue
		}
		fmt.Printf("    %-20s %s\n", r.Name, r.Strategy)
	}
	for _, name := range f.Unresolved {
		fmt.Printf("    %-20s UNRESOLVED\n", name)
	}
}
