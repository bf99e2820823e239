package trainer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kolkov/phasetrain/internal/train/metric"
	"github.com/kolkov/phasetrain/internal/train/progress"
	"github.com/kolkov/phasetrain/internal/train/shard"
)

// epoch runs one synchronized pass over train followed by validation.
func (t *Trainer) epoch(ctx context.Context, n int, train, validation shard.Dataset, predicted, targets []float64) EpochResult {
	_, span := getTracer().Start(ctx, "trainer.Epoch",
		trace.WithAttributes(attribute.Int("epoch", n)),
	)
	defer span.End()

	start := time.Now()
	rounds := t.synchronize(train)
	er := EpochResult{Epoch: n, Rounds: rounds}

	t.validate(validation, predicted)
	report, err := t.reporter.Report(predicted, targets)
	er.Report = report
	er.MetricValid = err == nil
	er.Duration = time.Since(start)

	epochsTotal.Inc()
	epochDuration.Observe(er.Duration.Seconds())

	if err != nil {
		invalidMetricsTotal.Inc()
		span.RecordError(err)
		t.logger.Warn("validation metric undefined",
			zap.Int("epoch", n),
			zap.Float64("rmse", report.RMSE),
			zap.Error(err),
		)
		if !errors.Is(err, metric.ErrUndefinedCorrelation) {
			span.SetStatus(codes.Error, "validation failed")
		}
	} else {
		validationPearson.Set(report.Pearson)
		validationRRMSE.Set(report.RelativeRMSE)
	}

	span.SetAttributes(
		attribute.Int64("rounds", int64(rounds)), //nolint:gosec // G115: bounded by dataset length.
		attribute.Float64("pearson", report.Pearson),
		attribute.Float64("rrmse", report.RelativeRMSE),
		attribute.Bool("metric_valid", er.MetricValid),
	)
	t.logger.Info("epoch finished",
		zap.Int("epoch", n),
		zap.Float64("pearson", report.Pearson),
		zap.Float64("rrmse", report.RelativeRMSE),
		zap.Bool("metric_valid", er.MetricValid),
		zap.Duration("duration", er.Duration),
	)
	return er
}

// synchronize is the supervisor side of one epoch: DISPATCH, one
// WAIT_ARRIVALS / AGGREGATE / BROADCAST round per record, then JOIN. It
// returns the number of rounds.
func (t *Trainer) synchronize(train shard.Dataset) uint64 {
	st := newSyncState(len(t.blocks))
	sampler := progress.NewSampler(progress.Config{
		Enabled: t.cfg.ProgressEvery > 0,
		Rate:    t.cfg.ProgressEvery,
	})

	var wg sync.WaitGroup
	for _, b := range t.blocks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			work(st, t.model, b, train, t.cfg.PinThreads)
		}()
	}

	n := train.Len()
	for r := 0; r < n; r++ {
		st.barrier.AwaitAll()

		var sum float64
		for i := range st.partial {
			sum += st.partial[i].value
		}
		st.residual = (train.Target(r) - sum) * t.muEffective
		if t.observer != nil {
			t.observer(r, st.residual)
		}

		st.barrier.Release()

		if sampler.ShouldReport() {
			roundsTotal.Add(float64(sampler.Rate()))
			t.logger.Debug("progress",
				zap.Int("record", r+1),
				zap.Int("records", n),
				zap.Float64("residual", st.residual),
			)
		}
	}

	wg.Wait()
	roundsTotal.Add(float64(sampler.Pending()))
	return sampler.Stats().Total
}

// validate fills predicted with the model output for every validation
// record. It only calls Evaluate, so model state is unchanged.
func (t *Trainer) validate(validation shard.Dataset, predicted []float64) {
	for i := range predicted {
		predicted[i] = shard.Sum(t.model, validation.Features(i))
	}
}
