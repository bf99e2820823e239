package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kolkov/phasetrain/internal/config"
	"github.com/kolkov/phasetrain/internal/train/checkpoint"
	"github.com/kolkov/phasetrain/internal/train/dataset"
	"github.com/kolkov/phasetrain/internal/train/kan"
	"github.com/kolkov/phasetrain/internal/train/metric"
	"github.com/kolkov/phasetrain/internal/train/shard"
	"github.com/kolkov/phasetrain/internal/train/trainer"
)

// trainFlags are the command-line overrides of the train command.
type trainFlags struct {
	workers           int
	shards            int
	mu                float64
	termination       float64
	maxEpochs         int
	pretrainPasses    int
	records           int
	validationRecords int
	matrixSize        int
	seed              int64
	checkpoint        string
	resume            string
	metricsAddr       string
}

func newTrainCmd(a *app) *cobra.Command {
	var f trainFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Generate the determinant dataset and train",
		Long: `Generates seeded training and validation sets of random matrices,
builds the addend arena and trains until the validation Pearson correlation
exceeds the termination threshold or the epoch limit is reached.

With --checkpoint every epoch is saved; --resume continues the latest epoch of
an earlier run (pretraining is skipped).`,
		Example: `  phasetrain train --workers 8 --shards 64 --matrix-size 4
  phasetrain train --config phasetrain.yaml --checkpoint runs.db
  phasetrain train --checkpoint runs.db --resume 6f1c0d3e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, a.cfg)
			return a.runTrain(cmd, f.resume)
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&f.workers, "workers", 0, "Synchronized workers (must divide --shards)")
	fl.IntVar(&f.shards, "shards", 0, "Number of addends")
	fl.Float64Var(&f.mu, "mu", 0, "Learning rate")
	fl.Float64Var(&f.termination, "termination", 0, "Stop once validation Pearson exceeds this")
	fl.IntVar(&f.maxEpochs, "max-epochs", 0, "Maximum synchronized epochs")
	fl.IntVar(&f.pretrainPasses, "pretrain-passes", 0, "Pretraining passes per addend pair (0 skips)")
	fl.IntVar(&f.records, "records", 0, "Training records")
	fl.IntVar(&f.validationRecords, "validation-records", 0, "Validation records")
	fl.IntVar(&f.matrixSize, "matrix-size", 0, "Matrix size m (m*m features)")
	fl.Int64Var(&f.seed, "seed", 0, "Seed for data, initialization and pairing")
	fl.StringVar(&f.checkpoint, "checkpoint", "", "Checkpoint database path")
	fl.StringVar(&f.resume, "resume", "", "Resume the latest epoch of this run id")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// apply copies every flag the user set onto cfg.
func (f *trainFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("workers") {
		cfg.Training.Workers = f.workers
	}
	if set("shards") {
		cfg.Model.Shards = f.shards
	}
	if set("mu") {
		cfg.Training.Mu = f.mu
	}
	if set("termination") {
		cfg.Training.Termination = f.termination
	}
	if set("max-epochs") {
		cfg.Training.MaxEpochs = f.maxEpochs
	}
	if set("pretrain-passes") {
		cfg.Training.PretrainPasses = f.pretrainPasses
	}
	if set("records") {
		cfg.Dataset.Records = f.records
	}
	if set("validation-records") {
		cfg.Dataset.ValidationRecords = f.validationRecords
	}
	if set("matrix-size") {
		cfg.Dataset.MatrixSize = f.matrixSize
	}
	if set("seed") {
		cfg.Dataset.Seed = f.seed
		cfg.Model.Seed = f.seed
		cfg.Training.PretrainSeed = f.seed
	}
	if set("checkpoint") {
		cfg.Checkpoint.Path = f.checkpoint
	}
	if set("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func (a *app) runTrain(cmd *cobra.Command, resume string) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	if resume != "" && cfg.Checkpoint.Path == "" {
		return errors.New("--resume needs a checkpoint database (--checkpoint)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if cfg.Metrics.Addr != "" {
		shutdown := a.serveMetrics(cfg.Metrics.Addr)
		defer shutdown()
	}

	trainSet, validationSet, bounds, err := a.generate(ctx, cfg)
	if err != nil {
		return err
	}

	layout := cfg.Layout()
	arena, err := kan.New(layout, kan.Limits{
		FeatureMin: bounds.FeatureMin,
		FeatureMax: bounds.FeatureMax,
		TargetMin:  bounds.TargetMin,
		TargetMax:  bounds.TargetMax,
	}, cfg.Model.Seed)
	if err != nil {
		return fmt.Errorf("failed to build model: %w", err)
	}

	tc := cfg.TrainerConfig()
	opts := []trainer.Option{
		trainer.WithLogger(a.logger),
		trainer.WithReporter(metric.Validator{Range: bounds.TargetRange()}),
	}

	runID := checkpoint.NewRunID()
	if cfg.Checkpoint.Path != "" {
		store, err := checkpoint.Open(cfg.Checkpoint.Path, checkpoint.WithLogger(a.logger))
		if err != nil {
			return err
		}
		defer store.Close()

		info := checkpoint.ModelInfo{
			Shards:      layout.Shards,
			Features:    layout.Features,
			InnerPoints: arena.Layout().InnerPoints,
			OuterPoints: arena.Layout().OuterPoints,
		}
		if resume != "" {
			if runID, err = uuid.Parse(resume); err != nil {
				return fmt.Errorf("invalid run id %q: %w", resume, err)
			}
			c, err := store.Restore(runID, arena, info)
			if err != nil {
				return err
			}
			tc.PretrainPasses = 0
			opts = append(opts, trainer.WithFirstEpoch(c.Epoch))
			a.logger.Info("resuming run", zap.String("run_id", runID.String()), zap.Int("epoch", c.Epoch))
		}
		opts = append(opts, trainer.WithEpochHook(store.EpochHook(runID, arena, info)))
	}

	tr, err := trainer.New(tc, arena, opts...)
	if err != nil {
		return err
	}

	a.logger.Info("run started", zap.String("run_id", runID.String()))
	res, err := tr.Train(ctx, trainSet, validationSet)
	if res != nil {
		report(cmd, runID, res)
	}
	return err
}

// generate builds both datasets and scans the training bounds.
func (a *app) generate(ctx context.Context, cfg *config.Config) (train, validation shard.Dataset, bounds dataset.Bounds, err error) {
	start := time.Now()
	trainSpec, validationSpec := cfg.DatasetSpecs()

	trainTable, err := dataset.Generate(ctx, trainSpec)
	if err != nil {
		return nil, nil, bounds, fmt.Errorf("failed to generate training set: %w", err)
	}
	validationTable, err := dataset.Generate(ctx, validationSpec)
	if err != nil {
		return nil, nil, bounds, fmt.Errorf("failed to generate validation set: %w", err)
	}
	bounds, err = dataset.Scan(trainTable)
	if err != nil {
		return nil, nil, bounds, err
	}

	a.logger.Info("dataset generated",
		zap.Int("records", trainTable.Len()),
		zap.Int("validation_records", validationTable.Len()),
		zap.Int("features", trainTable.Dim()),
		zap.Float64("target_min", bounds.TargetMin),
		zap.Float64("target_max", bounds.TargetMax),
		zap.Duration("duration", time.Since(start)),
	)
	return trainTable, validationTable, bounds, nil
}

// serveMetrics exposes /metrics in the background and returns its shutdown.
func (a *app) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func report(cmd *cobra.Command, runID uuid.UUID, res *trainer.Result) {
	out := cmd.OutOrStdout()
	last := res.Last()
	fmt.Fprintf(out, "run_id: %s\n", runID)
	if res.Pretrained {
		fmt.Fprintf(out, "pretraining: %s\n", res.PretrainDuration.Round(time.Millisecond))
	}
	for _, e := range res.Epochs {
		pearson := fmt.Sprintf("%6.3f", e.Report.Pearson)
		if !e.MetricValid {
			pearson = "   n/a"
		}
		fmt.Fprintf(out, "epoch %3d  pearson %s  rrmse %6.3f  %s\n",
			e.Epoch, pearson, e.Report.RelativeRMSE, e.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "epochs: %d  terminated: %t  final pearson: %.3f\n",
		len(res.Epochs), res.Terminated, last.Report.Pearson)
}
