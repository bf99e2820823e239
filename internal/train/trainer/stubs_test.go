package trainer

import (
	"github.com/kolkov/phasetrain/internal/train/metric"
	"github.com/kolkov/phasetrain/internal/train/shard"
)

// frozenModel never changes its output (always zero) and records every
// update signal per shard.
type frozenModel struct {
	signals [][]float64
}

func newFrozenModel(shards int) *frozenModel {
	return &frozenModel{signals: make([][]float64, shards)}
}

func (m *frozenModel) Len() int { return len(m.signals) }
func (m *frozenModel) Compute(int, []float64) float64 { return 0 }
func (m *frozenModel) Evaluate(int, []float64) float64 { return 0 }
func (m *frozenModel) Update(i int, signal float64) {
	m.signals[i] = append(m.signals[i], signal)
}

// biasModel shards output a learned constant that moves by the signal.
type biasModel struct {
	bias []float64
}

func (m *biasModel) Len() int { return len(m.bias) }
func (m *biasModel) Compute(i int, _ []float64) float64 { return m.bias[i] }
func (m *biasModel) Evaluate(i int, _ []float64) float64 { return m.bias[i] }
func (m *biasModel) Update(i int, signal float64) { m.bias[i] += signal }
func (m *biasModel) Params() []float64 { return append([]float64(nil), m.bias...) }

// scriptedReporter returns a fixed Pearson value per call.
type scriptedReporter struct {
	pearson []float64
	calls   int
}

func (r *scriptedReporter) Report(predicted, target []float64) (metric.Report, error) {
	p := r.pearson[min(r.calls, len(r.pearson)-1)]
	r.calls++
	return metric.Report{Pearson: p, RMSE: metric.RMSE(predicted, target)}, nil
}

// constTable builds a one-feature dataset whose features are all zero.
func constTable(targets ...float64) *shard.Table {
	t, err := shard.NewTable(1, make([]float64, len(targets)), targets)
	if err != nil {
		panic(err)
	}
	return t
}
