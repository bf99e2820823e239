package trainer

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kolkov/phasetrain/internal/train/metric"
	"github.com/kolkov/phasetrain/internal/train/partition"
	"github.com/kolkov/phasetrain/internal/train/shard"
)

var (
	tracerOnce sync.Once
	tracer     trace.Tracer
)

// getTracer returns the package tracer, created on first use so a global
// provider installed at startup is picked up.
func getTracer() trace.Tracer {
	tracerOnce.Do(func() {
		tracer = otel.Tracer("github.com/kolkov/phasetrain/internal/train/trainer")
	})
	return tracer
}

// Trainer trains one model. A Trainer is not safe for concurrent Train calls;
// the model belongs to it for the duration of a call.
type Trainer struct {
	cfg    Config
	model  shard.Model
	blocks []partition.Block

	// muEffective is Mu divided by the shard count.
	muEffective float64

	logger     *zap.Logger
	reporter   metric.Reporter
	hook       EpochHook
	observer   Observer
	firstEpoch int
}

// EpochResult describes one synchronized epoch.
type EpochResult struct {
	// Epoch is 1-based and continues across resumed runs.
	Epoch int

	// Rounds is the number of records trained.
	Rounds uint64

	// Report holds the validation scores.
	Report metric.Report

	// MetricValid is false when the correlation was undefined. Such an epoch
	// never terminates training.
	MetricValid bool

	Duration time.Duration
}

// Result summarizes a Train call.
type Result struct {
	// Epochs lists every completed epoch in order.
	Epochs []EpochResult

	// Terminated is true when a valid validation Pearson exceeded
	// Termination, including on the last allowed epoch. False means the run
	// used every epoch without crossing it.
	Terminated bool

	// Pretrained is true when the pretraining stage ran.
	Pretrained bool

	PretrainDuration time.Duration
}

// Last returns the final epoch, or a zero EpochResult when none completed.
func (r *Result) Last() EpochResult {
	if len(r.Epochs) == 0 {
		return EpochResult{}
	}
	return r.Epochs[len(r.Epochs)-1]
}

// New validates cfg against model and returns a Trainer. All configuration
// errors are *ConfigError.
func New(cfg Config, model shard.Model, opts ...Option) (*Trainer, error) {
	if model == nil {
		return nil, configError("model", "pass a shard.Model", "model is nil")
	}
	s := model.Len()
	if err := cfg.check(s); err != nil {
		return nil, err
	}
	blocks, err := partition.Blocks(s, cfg.Workers)
	if err != nil {
		return nil, configError("workers", "choose a worker count that divides the shard count", "%v", err)
	}

	t := &Trainer{
		cfg:         cfg,
		model:       model,
		blocks:      blocks,
		muEffective: cfg.Mu / float64(s),
		logger:      zap.NewNop(),
		reporter:    metric.Validator{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Config returns the effective configuration.
func (t *Trainer) Config() Config {
	return t.cfg
}

// Train runs pretraining (when configured) and then synchronized epochs until
// the validation correlation passes the threshold, MaxEpochs is reached, ctx
// is canceled between epochs, or the epoch hook fails.
//
// The returned Result holds every completed epoch, also when err is non-nil.
func (t *Trainer) Train(ctx context.Context, train, validation shard.Dataset) (*Result, error) {
	if err := checkData(t.model, train, validation); err != nil {
		return nil, err
	}

	ctx, span := getTracer().Start(ctx, "trainer.Train",
		trace.WithAttributes(
			attribute.Int("shards", t.model.Len()),
			attribute.Int("workers", t.cfg.Workers),
			attribute.Int("records", train.Len()),
			attribute.Int("validation_records", validation.Len()),
		),
	)
	defer span.End()

	res := &Result{}
	t.logger.Info("training started",
		zap.Int("shards", t.model.Len()),
		zap.Int("workers", t.cfg.Workers),
		zap.Int("records", train.Len()),
		zap.Float64("mu", t.cfg.Mu),
		zap.Float64("termination", t.cfg.Termination),
	)

	if t.cfg.PretrainPasses > 0 {
		start := time.Now()
		if err := t.Pretrain(ctx, train); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pretraining failed")
			return res, err
		}
		res.Pretrained = true
		res.PretrainDuration = time.Since(start)
	}

	targets := make([]float64, validation.Len())
	for i := range targets {
		targets[i] = validation.Target(i)
	}
	predicted := make([]float64, validation.Len())

	for e := 1; e <= t.cfg.MaxEpochs; e++ {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "canceled")
			return res, err
		}

		er := t.epoch(ctx, t.firstEpoch+e, train, validation, predicted, targets)
		res.Epochs = append(res.Epochs, er)

		if t.hook != nil {
			if err := t.hook(ctx, er); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "epoch hook failed")
				return res, err
			}
		}

		if er.MetricValid && er.Report.Pearson > t.cfg.Termination {
			res.Terminated = true
			t.logger.Info("termination threshold reached",
				zap.Int("epoch", er.Epoch),
				zap.Float64("pearson", er.Report.Pearson),
				zap.Float64("threshold", t.cfg.Termination),
			)
			break
		}
	}

	last := res.Last()
	span.SetAttributes(
		attribute.Int("epochs", len(res.Epochs)),
		attribute.Bool("terminated", res.Terminated),
		attribute.Float64("pearson", last.Report.Pearson),
	)
	span.SetStatus(codes.Ok, "training finished")
	t.logger.Info("training finished",
		zap.Int("epochs", len(res.Epochs)),
		zap.Bool("terminated", res.Terminated),
		zap.Float64("pearson", last.Report.Pearson),
		zap.Float64("rrmse", last.Report.RelativeRMSE),
	)
	return res, nil
}
