package trainer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/phasetrain/internal/train/partition"
	"github.com/kolkov/phasetrain/internal/train/shard"
)

// Pretrain runs PretrainPasses scans of train over disjoint shard pairs.
//
// Each pair trains as if it were the whole model: residual is
// (target - pair output) * Mu/S and only the pair's two shards are updated.
// Pairs run in parallel up to PretrainConcurrency with no synchronization
// between them; ctx is checked before each pair starts.
func (t *Trainer) Pretrain(ctx context.Context, train shard.Dataset) error {
	if t.cfg.PretrainPasses == 0 {
		return nil
	}
	if train == nil || train.Len() == 0 {
		return configError("train", "provide at least one training record", "training set is empty")
	}
	pairs, err := partition.Pairs(t.model.Len(), t.cfg.PretrainSeed)
	if err != nil {
		return configError("pretrain_passes", "use an even shard count or disable pretraining", "%v", err)
	}

	ctx, span := getTracer().Start(ctx, "trainer.Pretrain",
		trace.WithAttributes(
			attribute.Int("pairs", len(pairs)),
			attribute.Int("passes", t.cfg.PretrainPasses),
			attribute.Int("concurrency", t.cfg.PretrainConcurrency),
		),
	)
	defer span.End()

	t.logger.Info("pretraining started",
		zap.Int("pairs", len(pairs)),
		zap.Int("passes", t.cfg.PretrainPasses),
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.PretrainConcurrency)
	for _, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t.trainPair(p, train)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pretraining interrupted")
		return err
	}

	elapsed := time.Since(start)
	pretrainDuration.Observe(elapsed.Seconds())
	span.SetStatus(codes.Ok, "pretraining finished")
	t.logger.Info("pretraining finished", zap.Duration("duration", elapsed))
	return nil
}

// trainPair runs every pretraining pass for one pair.
func (t *Trainer) trainPair(p partition.Pair, train shard.Dataset) {
	m := t.model
	n := train.Len()
	for pass := 0; pass < t.cfg.PretrainPasses; pass++ {
		for r := 0; r < n; r++ {
			x := train.Features(r)
			y := m.Compute(p.First, x) + m.Compute(p.Second, x)
			residual := (train.Target(r) - y) * t.muEffective
			m.Update(p.First, residual)
			m.Update(p.Second, residual)
		}
	}
}
