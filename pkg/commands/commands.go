// Package commands provides the CLI command packages of the lottery binary.
//
// There are two ways to use commands from this package:
//
// 1. Via the Commands factory (recommended for most use cases):
//
//	cmds := commands.New(lggr)
//	root := cmds.Lottery(lottery.Deps{})
//
// 2. Via direct package imports (for advanced DI/testing):
//
//	import "github.com/lotterykit/lottery/pkg/commands/lottery"
//
//	root := lottery.NewCommand(lottery.Config{
//	    Logger: lggr,
//	    Deps:   lottery.Deps{...}, // inject fakes for testing
//	})
package commands

import (
	"github.com/spf13/cobra"

	"github.com/lotterykit/lottery/pkg/commands/lottery"
	"github.com/lotterykit/lottery/pkg/logger"
)

// Commands provides a factory for creating CLI commands with shared configuration.
// This allows setting the logger once and reusing it across all commands.
type Commands struct {
	lggr logger.Logger
}

// New creates a new Commands factory with the given logger.
// A nil logger defers to a production logger built at the configured log level.
func New(lggr logger.Logger) *Commands {
	return &Commands{lggr: lggr}
}

// Lottery creates the lottery root command with its deploy, play and serve subcommands.
//
// Usage:
//
//	cmds := commands.New(nil)
//	if err := cmds.Lottery(lottery.Deps{}).ExecuteContext(ctx); err != nil {
//	    ...
//	}
func (c *Commands) Lottery(deps lottery.Deps) *cobra.Command {
	return lottery.NewCommand(lottery.Config{
		Logger: c.lggr,
		Deps:   deps,
	})
}
