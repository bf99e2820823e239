package trainer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "phasetrain"
	metricsSubsystem = "trainer"
)

var (
	roundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "rounds_total",
		Help:      "Synchronized rounds completed, flushed every ProgressEvery records",
	})

	epochsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "epochs_total",
		Help:      "Synchronized epochs completed",
	})

	epochDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "epoch_duration_seconds",
		Help:      "Epoch duration including validation",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	pretrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "pretrain_duration_seconds",
		Help:      "Pretraining stage duration",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	validationPearson = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "validation_pearson",
		Help:      "Pearson correlation of the last valid epoch",
	})

	validationRRMSE = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "validation_rrmse",
		Help:      "Relative RMSE of the last valid epoch",
	})

	invalidMetricsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "invalid_metrics_total",
		Help:      "Epochs whose validation correlation was undefined",
	})
)
