// Package shard defines the contracts between the training core and the
// model it trains.
//
// The core never looks inside a shard. It only needs:
//   - Compute: the shard's contribution for one record, caching whatever the
//     paired Update needs.
//   - Update: a parameter step proportional to the broadcast residual, using
//     the cache left by the preceding Compute.
//   - Evaluate: the contribution without touching any state, for validation.
//
// Shards are addressed by index inside one Model (an arena), and a worker owns
// a contiguous index range for the whole synchronized stage. Model
// implementations must therefore allow concurrent calls for distinct shard
// indices without locking, and nothing else.
package shard

// Shard is one unit of the ensemble model.
//
// Compute and Update come in pairs: Update(signal) applies to the record of
// the last Compute call. Implementations are not safe for concurrent use.
type Shard interface {
	Compute(x []float64) float64
	Update(signal float64)
}

// Evaluator is implemented by shards that can produce a contribution without
// caching anything or adapting to the input.
type Evaluator interface {
	Evaluate(x []float64) float64
}

// Model is an indexed collection of shards.
//
// Thread Safety: calls for different shard indices may run concurrently.
// Calls for the same index must be serialized by the caller.
type Model interface {
	// Len returns the number of shards.
	Len() int

	// Compute returns shard i's contribution for x and caches the state its
	// next Update needs.
	Compute(i int, x []float64) float64

	// Update applies a step proportional to signal to shard i.
	Update(i int, signal float64)

	// Evaluate returns shard i's contribution for x without mutating state.
	Evaluate(i int, x []float64) float64
}

// Snapshotter is implemented by models whose parameters can be copied out
// and restored, for checkpoints and determinism checks.
type Snapshotter interface {
	// Params returns a copy of every parameter in a stable order.
	Params() []float64

	// SetParams restores parameters produced by Params.
	SetParams(p []float64) error
}

// Set adapts a slice of independent Shard values into a Model.
type Set []Shard

// Len implements Model.
func (s Set) Len() int {
	return len(s)
}

// Compute implements Model.
func (s Set) Compute(i int, x []float64) float64 {
	return s[i].Compute(x)
}

// Update implements Model.
func (s Set) Update(i int, signal float64) {
	s[i].Update(signal)
}

// Evaluate implements Model. Shards that do not implement Evaluator fall back
// to Compute.
func (s Set) Evaluate(i int, x []float64) float64 {
	if e, ok := s[i].(Evaluator); ok {
		return e.Evaluate(x)
	}
	return s[i].Compute(x)
}

// Sum returns the aggregate model output for x: the sum of Evaluate over all
// shards in index order.
func Sum(m Model, x []float64) float64 {
	var total float64
	for i, n := 0, m.Len(); i < n; i++ {
		total += m.Evaluate(i, x)
	}
	return total
}
