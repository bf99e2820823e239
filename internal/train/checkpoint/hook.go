package checkpoint

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kolkov/phasetrain/internal/train/shard"
	"github.com/kolkov/phasetrain/internal/train/trainer"
)

// EpochHook returns a trainer hook that saves model's parameters under runID
// after every epoch.
func (s *Store) EpochHook(runID uuid.UUID, model shard.Snapshotter, info ModelInfo) trainer.EpochHook {
	return func(_ context.Context, e trainer.EpochResult) error {
		return s.Save(Checkpoint{
			RunID:        runID,
			Epoch:        e.Epoch,
			Pearson:      e.Report.Pearson,
			RelativeRMSE: e.Report.RelativeRMSE,
			MetricValid:  e.MetricValid,
			Model:        info,
			Params:       model.Params(),
		})
	}
}

// Restore loads the latest checkpoint of runID into model and returns it.
// info describes model; a checkpoint of another shape is rejected with
// ErrModelMismatch before model is touched.
func (s *Store) Restore(runID uuid.UUID, model shard.Snapshotter, info ModelInfo) (Checkpoint, error) {
	c, err := s.Latest(runID)
	if err != nil {
		return c, err
	}
	if c.Model != info {
		return c, errors.Wrapf(ErrModelMismatch, "run %s was trained with %+v, configuration gives %+v", runID, c.Model, info)
	}
	if err := model.SetParams(c.Params); err != nil {
		return c, errors.Wrapf(err, "restoring run %s", runID)
	}
	return c, nil
}
