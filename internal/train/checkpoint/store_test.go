package checkpoint

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap/zaptest"

	"github.com/kolkov/phasetrain/internal/train/metric"
	"github.com/kolkov/phasetrain/internal/train/trainer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "ckpt.db"), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

// params is a minimal shard.Snapshotter.
type params struct {
	p []float64
}

func (m *params) Params() []float64 { return append([]float64(nil), m.p...) }
func (m *params) SetParams(p []float64) error {
	m.p = append(m.p[:0], p...)
	return nil
}

func TestStore_SaveLatest(t *testing.T) {
	s := openTestStore(t)
	run := NewRunID()

	for epoch := 1; epoch <= 12; epoch++ {
		require.NoError(t, s.Save(Checkpoint{
			RunID:       run,
			Epoch:       epoch,
			Pearson:     float64(epoch) / 100,
			MetricValid: true,
			Params:      []float64{float64(epoch), -1},
		}))
	}

	c, err := s.Latest(run)
	require.NoError(t, err)
	assert.Equal(t, 12, c.Epoch, "keys sort numerically")
	assert.Equal(t, Format, c.Format)
	assert.Equal(t, run, c.RunID)
	assert.Equal(t, []float64{12, -1}, c.Params)
	assert.True(t, s.Now().Equal(c.SavedAt))
}

func TestStore_List(t *testing.T) {
	s := openTestStore(t)
	run := NewRunID()
	for _, epoch := range []int{3, 1, 2} {
		require.NoError(t, s.Save(Checkpoint{RunID: run, Epoch: epoch, Params: []float64{1}}))
	}

	list, err := s.List(run)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, c := range list {
		assert.Equal(t, i+1, c.Epoch)
		assert.Nil(t, c.Params)
	}
}

func TestStore_Runs(t *testing.T) {
	s := openTestStore(t)
	a, b := NewRunID(), NewRunID()
	require.NoError(t, s.Save(Checkpoint{RunID: a, Epoch: 1}))
	require.NoError(t, s.Save(Checkpoint{RunID: a, Epoch: 2}))
	require.NoError(t, s.Save(Checkpoint{RunID: b, Epoch: 7}))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[uuid.UUID]Run{}
	for _, r := range runs {
		byID[r.ID] = r
	}
	assert.Equal(t, Run{ID: a, Epochs: 2, Latest: 2}, byID[a])
	assert.Equal(t, Run{ID: b, Epochs: 1, Latest: 7}, byID[b])
}

func TestStore_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Latest(NewRunID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.List(NewRunID())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Save(Checkpoint{Epoch: 1}), "run id is required")
}

func TestStore_UndefinedMetric(t *testing.T) {
	s := openTestStore(t)
	run := NewRunID()
	require.NoError(t, s.Save(Checkpoint{RunID: run, Epoch: 1, Pearson: math.NaN(), MetricValid: true}))

	c, err := s.Latest(run)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Pearson)
	assert.False(t, c.MetricValid)
}

func TestStore_RejectsOtherMajorFormat(t *testing.T) {
	s := openTestStore(t)
	run := NewRunID()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucket([]byte(run.String()))
		if err != nil {
			return err
		}
		return b.Put(epochKey(1), []byte(`{"format":"v2.0.0","epoch":1}`))
	})
	require.NoError(t, err)

	_, err = s.Latest(run)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.db")
	run := NewRunID()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(Checkpoint{RunID: run, Epoch: 4, Params: []float64{0.5}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	m := &params{}
	c, err := s.Restore(run, m, ModelInfo{})
	require.NoError(t, err)
	assert.Equal(t, 4, c.Epoch)
	assert.Equal(t, []float64{0.5}, m.p)
}

func TestStore_RestoreRejectsOtherShape(t *testing.T) {
	s := openTestStore(t)
	run := NewRunID()
	saved := ModelInfo{Shards: 4, Features: 2, InnerPoints: 5, OuterPoints: 22}
	require.NoError(t, s.Save(Checkpoint{RunID: run, Epoch: 1, Model: saved, Params: []float64{1}}))

	m := &params{p: []float64{7}}
	other := saved
	other.Shards = 8
	_, err := s.Restore(run, m, other)
	assert.ErrorIs(t, err, ErrModelMismatch)
	assert.Contains(t, err.Error(), "was trained with")
	assert.Equal(t, []float64{7}, m.p, "model untouched")
}

func TestStore_RejectsNonFiniteParams(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			run := NewRunID()

			err := s.Save(Checkpoint{RunID: run, Epoch: 2, Params: []float64{0.5, tt.value}})
			assert.ErrorIs(t, err, ErrNonFinite)
			assert.Contains(t, err.Error(), "parameter 1")

			_, err = s.Latest(run)
			assert.ErrorIs(t, err, ErrNotFound, "nothing written")
		})
	}
}

func TestStore_InfiniteRRMSE(t *testing.T) {
	s := openTestStore(t)
	run := NewRunID()
	require.NoError(t, s.Save(Checkpoint{RunID: run, Epoch: 1, RelativeRMSE: math.Inf(1), MetricValid: true}))

	c, err := s.Latest(run)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.RelativeRMSE)
	assert.False(t, c.MetricValid)
}

func TestStore_EpochHook(t *testing.T) {
	s := openTestStore(t)
	run := NewRunID()
	m := &params{p: []float64{1, 2, 3}}
	info := ModelInfo{Shards: 1, Features: 1, InnerPoints: 2, OuterPoints: 1}

	hook := s.EpochHook(run, m, info)
	require.NoError(t, hook(context.Background(), trainer.EpochResult{
		Epoch:       5,
		Report:      metric.Report{Pearson: 0.8, RelativeRMSE: 0.1},
		MetricValid: true,
	}))

	c, err := s.Latest(run)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Epoch)
	assert.Equal(t, 0.8, c.Pearson)
	assert.Equal(t, 0.1, c.RelativeRMSE)
	assert.Equal(t, info, c.Model)
	assert.Equal(t, []float64{1, 2, 3}, c.Params)
}
