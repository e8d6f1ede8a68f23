// Command lottery-deploy deploys the VRF lottery to a network, verifies it and publishes its
// front-end artifacts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smartcontractkit/lottery-deployments/pkg/commands"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	lggr, err := newLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create logger: %v\n", err)
		return err
	}
	defer func() { _ = lggr.Sync() }()

	root, err := commands.New(lggr).Root(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}

	// Interrupting cancels the run between transactions.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return root.ExecuteContext(ctx)
}

// newLogger creates the CLI logger. LOG_FORMAT=json switches from the console encoding to JSON
// lines.
func newLogger(level zap.AtomicLevel) (logger.Logger, error) {
	return logger.NewWith(func(cfg *zap.Config) {
		if os.Getenv("LOG_FORMAT") == "json" {
			cfg.Level = level
			return
		}

		*cfg = zap.NewDevelopmentConfig()
		cfg.Level = level
		cfg.DisableStacktrace = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	})
}
