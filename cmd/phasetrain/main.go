// Package main implements the phasetrain CLI.
//
// phasetrain trains an additive ensemble of Kolmogorov-Arnold addends on the
// random-matrix determinant benchmark, using per-record synchronized workers:
//
//  1. Generate training and validation matrices (seeded, reproducible)
//  2. Optionally pretrain disjoint addend pairs in parallel
//  3. Run synchronized epochs until the validation correlation passes the
//     termination threshold
//  4. Checkpoint parameters after every epoch (bbolt)
//
// Usage:
//
//	phasetrain train --workers 8 --shards 64 --matrix-size 4
//	phasetrain train --checkpoint runs.db --resume <run-id>
//	phasetrain checkpoints --checkpoint runs.db [run-id]
//	phasetrain config > phasetrain.yaml
//	phasetrain version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kolkov/phasetrain/internal/config"
)

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "phasetrain",
		Short: "Per-record synchronized ensemble trainer",
		Long: `phasetrain trains a sum of Kolmogorov-Arnold addends with one worker
goroutine per block of addends. Every training record is a synchronized round:
workers publish partial sums, the supervisor broadcasts the residual, and
every addend updates with the residual of the full model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newTrainCmd(a),
		newCheckpointsCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads the configuration and builds the logger.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	zc := zap.NewProductionConfig()
	zc.Encoding = cfg.Logging.Format
	if cfg.Logging.Format == "console" {
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	a.logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
