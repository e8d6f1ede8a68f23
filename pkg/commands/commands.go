// Package commands provides the CLI commands of lottery-deploy.
//
// There are two ways to use commands from this package:
//
// 1. Via the Commands factory (recommended for most use cases):
//
//	cmds := commands.New(lggr)
//	root, err := cmds.Root(level)
//	if err != nil {
//	    return err
//	}
//	root.ExecuteContext(ctx)
//
// 2. Via direct package imports (for advanced DI/testing):
//
//	import "github.com/smartcontractkit/lottery-deployments/pkg/commands/deploy"
//
//	cmd, err := deploy.NewCommand(deploy.Config{
//	    Logger: lggr,
//	    Deps:   deploy.Deps{...},  // inject fakes for testing
//	})
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartcontractkit/lottery-deployments/pkg/commands/deploy"
	"github.com/smartcontractkit/lottery-deployments/pkg/commands/flags"
	"github.com/smartcontractkit/lottery-deployments/pkg/commands/networks"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// Commands provides a factory for creating CLI commands with shared configuration.
// This allows setting the logger once and reusing it across all commands.
type Commands struct {
	lggr logger.Logger
}

// New creates a new Commands factory with the given logger.
// The logger will be shared across all commands created by this factory.
func New(lggr logger.Logger) *Commands {
	return &Commands{lggr: lggr}
}

// Deploy creates the deploy command.
func (c *Commands) Deploy() (*cobra.Command, error) {
	return deploy.NewCommand(deploy.Config{Logger: c.lggr})
}

// Networks creates the networks command.
func (c *Commands) Networks() (*cobra.Command, error) {
	return networks.NewCommand(networks.Config{Logger: c.lggr})
}

// Root creates the lottery-deploy root command with every subcommand. The --log-level flag sets
// level, which must be the level of the factory's logger.
func (c *Commands) Root(level zap.AtomicLevel) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:          "lottery-deploy",
		Short:        "Deploy the VRF lottery and publish its artifacts",
		SilenceUsage: true,
	}
	flags.LogLevel(root, level)

	deployCmd, err := c.Deploy()
	if err != nil {
		return nil, fmt.Errorf("failed to create deploy command: %w", err)
	}

	networksCmd, err := c.Networks()
	if err != nil {
		return nil, fmt.Errorf("failed to create networks command: %w", err)
	}

	root.AddCommand(deployCmd, networksCmd)

	return root, nil
}
