// Package flags provides reusable flag helpers for CLI commands.
//
// This package should only contain flags that are shared by multiple commands to keep naming
// and behavior consistent across the CLI. Command-specific flags are defined in the command file.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustStringSlice returns the string slice value, ignoring the error.
// Safe to use with registered flags where GetStringSlice cannot fail.
func MustStringSlice(s []string, _ error) []string { return s }

// Network adds the --network/-n flag selecting the network to deploy to. It defaults to the
// in-process development network.
// Retrieve the value with cmd.Flags().GetString("network").
func Network(cmd *cobra.Command) {
	cmd.Flags().StringP("network", "n", network.InProcessNetwork, "Network to deploy to")
}

// NetworksFile adds the repeatable --networks-file flag. Each file is merged on top of the
// embedded default networks, in order.
// Retrieve the value with cmd.Flags().GetStringSlice("networks-file").
//
// Usage:
//
//	flags.NetworksFile(cmd)
//	// later in RunE:
//	files, _ := cmd.Flags().GetStringSlice("networks-file")
func NetworksFile(cmd *cobra.Command) {
	cmd.Flags().StringSlice("networks-file", nil, "Network manifest file (YAML or TOML), may be repeated")
}

// LogLevel adds the persistent --log-level flag. Parsing the flag sets level, so it applies to
// every logger built on it before any subcommand runs.
func LogLevel(cmd *cobra.Command, level zap.AtomicLevel) {
	cmd.PersistentFlags().Var(&levelValue{level: level}, "log-level", "Log level (debug, info, warn, error)")
}

var _ pflag.Value = (*levelValue)(nil)

// levelValue is a pflag.Value backed by a zap.AtomicLevel.
type levelValue struct {
	level zap.AtomicLevel
}

func (v *levelValue) String() string {
	if v.level == (zap.AtomicLevel{}) {
		return zapcore.InfoLevel.String()
	}

	return v.level.Level().String()
}

func (v *levelValue) Set(s string) error {
	lvl, err := logger.ParseLevel(s)
	if err != nil {
		return err
	}
	v.level.SetLevel(lvl)

	return nil
}

func (*levelValue) Type() string {
	return "level"
}
