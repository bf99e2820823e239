// Package kan implements Kolmogorov-Arnold addends as shard.Model.
//
// Each shard computes
//
//	outer( inner_0(x_0) + inner_1(x_1) + ... + inner_{F-1}(x_{F-1}) )
//
// where every inner_j and the outer function are piecewise-linear univariate
// functions given by k equally spaced points over [lo, hi].
//
// Storage is one Arena for the whole ensemble: function values, function
// ranges and the per-function cache of the last evaluated segment live in
// flat slices indexed by shard. A shard is never a separate heap object, so a
// worker walking its block touches contiguous memory.
//
// Update rule (Newton-Kaczmarz step for one record, signal d):
//
//	g := outer'(lastInner)
//	inner_j: spread d*g over the two points of the last segment (all j)
//	outer:   spread d   over the two points of the last segment
//
// Compute widens a function's range when an argument falls outside it, so
// training data never falls off the grid. Evaluate clamps instead and writes
// nothing, so validation can run over the same arena without side effects.
//
// Thread Safety: calls for different shards may run concurrently; calls for
// the same shard must be serialized. Nothing is locked.
package kan
