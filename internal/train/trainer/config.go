package trainer

import (
	"math"
	"runtime"

	"github.com/kolkov/phasetrain/internal/train/shard"
)

// Config controls a Trainer. It is copied by New and never changes afterwards.
type Config struct {
	// Workers is the number of synchronized workers. It must divide the
	// shard count.
	Workers int

	// Mu is the learning rate. The broadcast residual is scaled by Mu/S.
	Mu float64

	// Termination stops training once the validation Pearson correlation is
	// strictly greater than this value.
	Termination float64

	// MaxEpochs bounds the synchronized stage.
	MaxEpochs int

	// PretrainPasses is the number of dataset scans per shard pair. Zero
	// skips pretraining; otherwise the shard count must be even.
	PretrainPasses int

	// PretrainSeed selects the shard pairing.
	PretrainSeed int64

	// PretrainConcurrency bounds the pairs trained at once. Zero uses
	// GOMAXPROCS.
	PretrainConcurrency int

	// PinThreads locks every worker to its own OS thread.
	PinThreads bool

	// ProgressEvery emits a debug progress line and flushes the round
	// counter every ProgressEvery records. Zero disables progress reporting.
	ProgressEvery uint64
}

// DefaultConfig returns the settings of the 5x5 determinant benchmark.
func DefaultConfig() Config {
	return Config{
		Workers:        16,
		Mu:             0.1,
		Termination:    0.91,
		MaxEpochs:      16,
		PretrainPasses: 2,
		ProgressEvery:  100_000,
	}
}

// check validates cfg against a model of s shards and fills defaults.
func (cfg *Config) check(s int) error {
	switch {
	case s < 1:
		return configError("model", "build the model with at least one shard",
			"model has %d shards", s)
	case cfg.Workers < 1:
		return configError("workers", "use at least one worker",
			"%d workers", cfg.Workers)
	case s%cfg.Workers != 0:
		return configError("workers", "choose a worker count that divides the shard count",
			"%d shards cannot be split evenly across %d workers", s, cfg.Workers)
	case cfg.MaxEpochs < 1:
		return configError("max_epochs", "train for at least one epoch",
			"%d epochs", cfg.MaxEpochs)
	case !(cfg.Mu > 0) || math.IsInf(cfg.Mu, 0):
		return configError("mu", "use a small positive learning rate such as 0.1",
			"learning rate %g", cfg.Mu)
	case math.IsNaN(cfg.Termination):
		return configError("termination", "use a correlation threshold in [-1, 1]",
			"threshold is NaN")
	case cfg.PretrainPasses < 0:
		return configError("pretrain_passes", "use 0 to skip pretraining",
			"%d passes", cfg.PretrainPasses)
	case cfg.PretrainPasses > 0 && s%2 != 0:
		return configError("pretrain_passes", "use an even shard count or disable pretraining",
			"pretraining pairs shards, but the model has %d", s)
	}
	if cfg.PretrainConcurrency < 1 {
		cfg.PretrainConcurrency = runtime.GOMAXPROCS(0)
	}
	return nil
}

// dimensioned is implemented by models that know their input dimension.
type dimensioned interface {
	Dim() int
}

// checkData validates the datasets passed to Train.
func checkData(model shard.Model, train, validation shard.Dataset) error {
	switch {
	case train == nil || train.Len() == 0:
		return configError("train", "provide at least one training record", "training set is empty")
	case validation == nil || validation.Len() == 0:
		return configError("validation", "provide at least one validation record", "validation set is empty")
	case train.Dim() != validation.Dim():
		return configError("validation", "generate both sets with the same feature layout",
			"validation dimension %d differs from training dimension %d", validation.Dim(), train.Dim())
	}
	if d, ok := model.(dimensioned); ok && d.Dim() != train.Dim() {
		return configError("train", "build the model for the dataset's feature count",
			"model expects %d features, dataset has %d", d.Dim(), train.Dim())
	}
	return nil
}
