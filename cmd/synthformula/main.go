// Command synthformula exercises the formula evaluation engine end to end
// outside of any Host-platform integration: loading a YAML sensor set,
// validating it, running it through evaluation cycles, and explaining one
// sensor's binding plan, the way `crank`'s subcommands each wrap a single
// concern in crossplane-crossplane/cmd/crank.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

var cli struct {
	Verbose bool `help:"Enable debug-level logging." short:"v"`

	Run      RunCmd      `cmd:"" help:"Run evaluation cycles against a sensor set file."`
	Validate ValidateCmd `cmd:"" help:"Load and validate a sensor set file without evaluating it."`
	Explain  ExplainCmd  `cmd:"" help:"Print the binding plan for one sensor."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("synthformula"),
		kong.Description("Formula-driven synthetic sensor engine."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	err := ctx.Run(logger)
	ctx.FatalIfErrorf(err)
}
