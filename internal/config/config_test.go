package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	tc := cfg.TrainerConfig()
	assert.Equal(t, 16, tc.Workers)
	assert.Equal(t, 0.2, tc.Mu)
	assert.Equal(t, 0.97, tc.Termination)

	l := cfg.Layout()
	assert.Equal(t, 16, l.Features)
	assert.Equal(t, 64, l.Shards)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phasetrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
training:
  workers: 4
  mu: 0.1
model:
  shards: 8
dataset:
  matrix_size: 3
checkpoint:
  path: /tmp/ckpt.db
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Training.Workers)
	assert.Equal(t, 0.1, cfg.Training.Mu)
	assert.Equal(t, 8, cfg.Model.Shards)
	assert.Equal(t, 3, cfg.Dataset.MatrixSize)
	assert.Equal(t, "/tmp/ckpt.db", cfg.Checkpoint.Path)

	// Unset keys keep their defaults.
	assert.Equal(t, 0.97, cfg.Training.Termination)
	assert.Equal(t, 100_000, cfg.Dataset.Records)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training: [1, 2"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Model, cfg.Model)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PHASETRAIN_WORKERS", "8")
	t.Setenv("PHASETRAIN_SHARDS", "32")
	t.Setenv("PHASETRAIN_MU", "0.05")
	t.Setenv("PHASETRAIN_SEED", "99")
	t.Setenv("PHASETRAIN_CHECKPOINT", "run.db")
	t.Setenv("PHASETRAIN_METRICS_ADDR", ":9090")
	t.Setenv("PHASETRAIN_LOG_LEVEL", "debug")
	t.Setenv("PHASETRAIN_MAX_EPOCHS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Training.Workers)
	assert.Equal(t, 32, cfg.Model.Shards)
	assert.Equal(t, 0.05, cfg.Training.Mu)
	assert.Equal(t, int64(99), cfg.Model.Seed)
	assert.Equal(t, int64(99), cfg.Dataset.Seed)
	assert.Equal(t, int64(99), cfg.Training.PretrainSeed)
	assert.Equal(t, "run.db", cfg.Checkpoint.Path)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 16, cfg.Training.MaxEpochs, "unparsable value is ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Training.Workers = 0 }},
		{"negative mu", func(c *Config) { c.Training.Mu = -1 }},
		{"termination above one", func(c *Config) { c.Training.Termination = 1.5 }},
		{"one inner point", func(c *Config) { c.Model.InnerPoints = 1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"indivisible shards", func(c *Config) { c.Model.Shards = 60 }},
		{"odd shards with pretraining", func(c *Config) {
			c.Training.Workers = 1
			c.Model.Shards = 63
		}},
		{"inverted range", func(c *Config) { c.Dataset.Min = 5; c.Dataset.Max = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_OddShardsWithoutPretraining(t *testing.T) {
	cfg := Default()
	cfg.Training.Workers = 1
	cfg.Training.PretrainPasses = 0
	cfg.Model.Shards = 63
	assert.NoError(t, cfg.Validate())
}

func TestDatasetSpecs(t *testing.T) {
	cfg := Default()
	train, validation := cfg.DatasetSpecs()
	assert.Equal(t, 100_000, train.Records)
	assert.Equal(t, 20_000, validation.Records)
	assert.Equal(t, uint32(0), train.Set)
	assert.Equal(t, uint32(1), validation.Set)
	assert.Equal(t, train.Seed, validation.Seed)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cfg.yaml")
	cfg := Default()
	cfg.Training.Workers = 2
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
