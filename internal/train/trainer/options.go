package trainer

import (
	"context"

	"go.uber.org/zap"

	"github.com/kolkov/phasetrain/internal/train/metric"
)

// Option configures a Trainer.
type Option func(*Trainer)

// EpochHook runs on the supervisor goroutine after each validated epoch.
// A non-nil error stops training and is returned from Train.
type EpochHook func(ctx context.Context, epoch EpochResult) error

// Observer sees every broadcast residual, on the supervisor goroutine,
// before the barrier is released. It must be fast: all workers are spinning.
type Observer func(record int, residual float64)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithReporter replaces the default validation reporter.
func WithReporter(r metric.Reporter) Option {
	return func(t *Trainer) {
		if r != nil {
			t.reporter = r
		}
	}
}

// WithEpochHook installs a hook called after each epoch.
func WithEpochHook(h EpochHook) Option {
	return func(t *Trainer) {
		t.hook = h
	}
}

// WithObserver installs a residual observer.
func WithObserver(o Observer) Option {
	return func(t *Trainer) {
		t.observer = o
	}
}

// WithFirstEpoch numbers epochs from n+1, for runs resumed from a checkpoint
// taken after epoch n. MaxEpochs still counts epochs of this run.
func WithFirstEpoch(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.firstEpoch = n
		}
	}
}
