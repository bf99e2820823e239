// Package config loads the phasetrain configuration: built-in defaults, then
// an optional YAML file, then PHASETRAIN_* environment variables. Command-line
// flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kolkov/phasetrain/internal/train/dataset"
	"github.com/kolkov/phasetrain/internal/train/kan"
	"github.com/kolkov/phasetrain/internal/train/trainer"
)

// Config holds all phasetrain settings.
type Config struct {
	Training   TrainingConfig   `yaml:"training"`
	Model      ModelConfig      `yaml:"model"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// TrainingConfig maps onto trainer.Config.
type TrainingConfig struct {
	Workers             int     `yaml:"workers" validate:"gte=1"`
	Mu                  float64 `yaml:"mu" validate:"gt=0"`
	Termination         float64 `yaml:"termination" validate:"gte=-1,lte=1"`
	MaxEpochs           int     `yaml:"max_epochs" validate:"gte=1"`
	PretrainPasses      int     `yaml:"pretrain_passes" validate:"gte=0"`
	PretrainSeed        int64   `yaml:"pretrain_seed"`
	PretrainConcurrency int     `yaml:"pretrain_concurrency" validate:"gte=0"`
	PinThreads          bool    `yaml:"pin_threads"`
	ProgressEvery       uint64  `yaml:"progress_every"`
}

// ModelConfig shapes the KAN arena.
type ModelConfig struct {
	Shards      int   `yaml:"shards" validate:"gte=1"`
	InnerPoints int   `yaml:"inner_points" validate:"gte=2"`
	OuterPoints int   `yaml:"outer_points" validate:"gte=2"`
	Seed        int64 `yaml:"seed"`
}

// DatasetConfig describes the generated determinant sets.
type DatasetConfig struct {
	Records           int     `yaml:"records" validate:"gte=1"`
	ValidationRecords int     `yaml:"validation_records" validate:"gte=1"`
	MatrixSize        int     `yaml:"matrix_size" validate:"gte=1,lte=16"`
	Min               float64 `yaml:"min"`
	Max               float64 `yaml:"max"`
	Seed              int64   `yaml:"seed"`
}

// CheckpointConfig locates the checkpoint database. An empty path disables
// checkpoints.
type CheckpointConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

// Default returns the 4x4 determinant benchmark settings.
func Default() *Config {
	return &Config{
		Training: TrainingConfig{
			Workers:        16,
			Mu:             0.2,
			Termination:    0.97,
			MaxEpochs:      16,
			PretrainPasses: 2,
			ProgressEvery:  100_000,
		},
		Model: ModelConfig{
			Shards:      64,
			InnerPoints: kan.DefaultInnerPoints,
			OuterPoints: kan.DefaultOuterPoints,
			Seed:        1,
		},
		Dataset: DatasetConfig{
			Records:           100_000,
			ValidationRecords: 20_000,
			MatrixSize:        4,
			Min:               0,
			Max:               10,
			Seed:              1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// YAML returns the configuration encoded as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// applyEnvOverrides applies PHASETRAIN_* environment variables. Values that
// do not parse are ignored.
func (c *Config) applyEnvOverrides() {
	if v, ok := envInt("PHASETRAIN_WORKERS"); ok {
		c.Training.Workers = v
	}
	if v, ok := envInt("PHASETRAIN_MAX_EPOCHS"); ok {
		c.Training.MaxEpochs = v
	}
	if v, ok := envInt("PHASETRAIN_SHARDS"); ok {
		c.Model.Shards = v
	}
	if s := os.Getenv("PHASETRAIN_MU"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			c.Training.Mu = v
		}
	}
	if s := os.Getenv("PHASETRAIN_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			c.Model.Seed = v
			c.Dataset.Seed = v
			c.Training.PretrainSeed = v
		}
	}
	if path := os.Getenv("PHASETRAIN_CHECKPOINT"); path != "" {
		c.Checkpoint.Path = path
	}
	if addr := os.Getenv("PHASETRAIN_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
	if level := os.Getenv("PHASETRAIN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func envInt(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate checks field constraints and the cross-field rules the trainer
// enforces, so a bad file fails before any data is generated.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Model.Shards%c.Training.Workers != 0 {
		return fmt.Errorf("invalid config: %d shards cannot be split across %d workers",
			c.Model.Shards, c.Training.Workers)
	}
	if c.Training.PretrainPasses > 0 && c.Model.Shards%2 != 0 {
		return fmt.Errorf("invalid config: pretraining needs an even shard count, got %d", c.Model.Shards)
	}
	if c.Dataset.Max < c.Dataset.Min {
		return fmt.Errorf("invalid config: dataset range [%g, %g] is empty", c.Dataset.Min, c.Dataset.Max)
	}
	return nil
}

// TrainerConfig returns the trainer settings.
func (c *Config) TrainerConfig() trainer.Config {
	t := c.Training
	return trainer.Config{
		Workers:             t.Workers,
		Mu:                  t.Mu,
		Termination:         t.Termination,
		MaxEpochs:           t.MaxEpochs,
		PretrainPasses:      t.PretrainPasses,
		PretrainSeed:        t.PretrainSeed,
		PretrainConcurrency: t.PretrainConcurrency,
		PinThreads:          t.PinThreads,
		ProgressEvery:       t.ProgressEvery,
	}
}

// DatasetSpecs returns the training and validation generation specs. Both
// share the seed and differ by set.
func (c *Config) DatasetSpecs() (train, validation dataset.Spec) {
	d := c.Dataset
	train = dataset.Spec{
		Records:    d.Records,
		MatrixSize: d.MatrixSize,
		Min:        d.Min,
		Max:        d.Max,
		Seed:       d.Seed,
	}
	validation = train
	validation.Records = d.ValidationRecords
	validation.Set = 1
	return train, validation
}

// Layout returns the arena layout for the configured dataset.
func (c *Config) Layout() kan.Layout {
	return kan.Layout{
		Shards:      c.Model.Shards,
		Features:    c.Dataset.MatrixSize * c.Dataset.MatrixSize,
		InnerPoints: c.Model.InnerPoints,
		OuterPoints: c.Model.OuterPoints,
	}
}
