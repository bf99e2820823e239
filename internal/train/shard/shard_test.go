package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constShard struct {
	value   float64
	updates []float64
}

func (c *constShard) Compute(_ []float64) float64 { return c.value }
func (c *constShard) Update(signal float64)       { c.updates = append(c.updates, signal) }

type evalShard struct {
	constShard
	evaluated int
}

func (e *evalShard) Evaluate(_ []float64) float64 {
	e.evaluated++
	return -e.value
}

func TestSet_Delegates(t *testing.T) {
	a := &constShard{value: 1.5}
	b := &evalShard{constShard: constShard{value: 2}}
	s := Set{a, b}

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1.5, s.Compute(0, nil))
	assert.Equal(t, 2.0, s.Compute(1, nil))

	s.Update(0, 0.25)
	assert.Equal(t, []float64{0.25}, a.updates)

	assert.Equal(t, 1.5, s.Evaluate(0, nil), "falls back to Compute")
	assert.Equal(t, -2.0, s.Evaluate(1, nil), "uses Evaluator")
	assert.Equal(t, 1, b.evaluated)
}

func TestSum(t *testing.T) {
	s := Set{&constShard{value: 1}, &constShard{value: 2}, &constShard{value: -0.5}}
	assert.Equal(t, 2.5, Sum(s, []float64{0}))
}

func TestTable(t *testing.T) {
	tab, err := NewTable(2, []float64{1, 2, 3, 4, 5, 6}, []float64{10, 20, 30})
	require.NoError(t, err)

	assert.Equal(t, 3, tab.Len())
	assert.Equal(t, 2, tab.Dim())
	assert.Equal(t, []float64{3, 4}, tab.Features(1))
	assert.Equal(t, 30.0, tab.Target(2))
	assert.Equal(t, []float64{10, 20, 30}, tab.Targets())

	// Appending to a row must not clobber the next one.
	row := tab.Features(0)
	_ = append(row, 99)
	assert.Equal(t, []float64{3, 4}, tab.Features(1))
}

func TestNewTable_Errors(t *testing.T) {
	_, err := NewTable(0, nil, nil)
	assert.ErrorIs(t, err, ErrShape)

	_, err = NewTable(3, []float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrShape)
}

func BenchmarkTableFeatures(b *testing.B) {
	tab, _ := NewTable(25, make([]float64, 25*1000), make([]float64, 1000))
	b.ReportAllocs()
	var sink float64
	for i := 0; i < b.N; i++ {
		sink += tab.Features(i % 1000)[0]
	}
	_ = sink
}
