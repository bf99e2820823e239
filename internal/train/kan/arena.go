package kan

import (
	"errors"
	"fmt"

	"github.com/kolkov/phasetrain/internal/train/rng"
	"github.com/kolkov/phasetrain/internal/train/shard"
)

// ErrLayout is returned for an invalid arena layout or limits.
var ErrLayout = errors.New("invalid kan layout")

// Defaults used when a Layout leaves the point counts at zero.
const (
	DefaultInnerPoints = 5
	DefaultOuterPoints = 22
)

// Layout fixes the shape of an arena.
type Layout struct {
	// Shards is the number of addends.
	Shards int

	// Features is the input dimension.
	Features int

	// InnerPoints is the point count of every inner function (>= 2).
	InnerPoints int

	// OuterPoints is the point count of every outer function (>= 2).
	OuterPoints int
}

// Limits describes the training data, used to place the initial functions.
type Limits struct {
	FeatureMin []float64
	FeatureMax []float64
	TargetMin  float64
	TargetMax  float64
}

// Arena stores every shard of the ensemble in flat slices.
//
// Per shard (F features, I inner points, O outer points):
//   - values: F*I inner points followed by O outer points
//   - bounds: (lo, hi) for each of the F inner functions, then the outer one
//   - seg/rel: last evaluated segment index and offset per function
type Arena struct {
	layout Layout

	valuesPerShard int
	funcsPerShard  int

	values []float64
	bounds []float64

	seg []int32
	rel []float64
}

var _ shard.Model = (*Arena)(nil)
var _ shard.Snapshotter = (*Arena)(nil)

// New allocates an arena and initializes every function from seed.
//
// Inner function j spans [FeatureMin[j], FeatureMax[j]] and starts with values
// uniform in the target range divided by Shards*Features. The outer function
// spans the target range divided by Shards and starts as the identity on it,
// so its initial slope is 1. The same (layout, limits, seed) always produces
// the same parameters.
func New(layout Layout, limits Limits, seed int64) (*Arena, error) {
	if layout.InnerPoints == 0 {
		layout.InnerPoints = DefaultInnerPoints
	}
	if layout.OuterPoints == 0 {
		layout.OuterPoints = DefaultOuterPoints
	}
	if err := validate(layout, limits); err != nil {
		return nil, err
	}

	f := layout.Features
	a := &Arena{
		layout:         layout,
		valuesPerShard: f*layout.InnerPoints + layout.OuterPoints,
		funcsPerShard:  f + 1,
	}
	nFuncs := layout.Shards * a.funcsPerShard
	a.values = make([]float64, layout.Shards*a.valuesPerShard)
	a.bounds = make([]float64, 2*nFuncs)
	a.seg = make([]int32, nFuncs)
	a.rel = make([]float64, nFuncs)

	s := float64(layout.Shards)
	outerLo, outerHi := limits.TargetMin/s, limits.TargetMax/s
	innerLo, innerHi := outerLo/float64(f), outerHi/float64(f)

	src := rng.New(seed)
	for i := 0; i < layout.Shards; i++ {
		//nolint:gosec // G115: shard indices are non-negative and small.
		iter := uint32(i)
		vals := a.shardValues(i)
		fn := i * a.funcsPerShard

		for j := 0; j < f; j++ {
			lo, hi := widen(limits.FeatureMin[j], limits.FeatureMax[j])
			a.bounds[2*(fn+j)] = lo
			a.bounds[2*(fn+j)+1] = hi
		}
		lo, hi := widen(outerLo, outerHi)
		a.bounds[2*(fn+f)] = lo
		a.bounds[2*(fn+f)+1] = hi

		inner := f * layout.InnerPoints
		for k := 0; k < inner; k++ {
			vals[k] = src.Uniform(rng.StreamInit, iter, uint64(k), innerLo, innerHi)
		}
		// The outer function starts as the identity over its range.
		last := float64(layout.OuterPoints - 1)
		for k := inner; k < len(vals); k++ {
			vals[k] = outerLo + (outerHi-outerLo)*float64(k-inner)/last
		}
	}
	return a, nil
}

func validate(layout Layout, limits Limits) error {
	switch {
	case layout.Shards < 1:
		return fmt.Errorf("%w: %d shards", ErrLayout, layout.Shards)
	case layout.Features < 1:
		return fmt.Errorf("%w: %d features", ErrLayout, layout.Features)
	case layout.InnerPoints < 2 || layout.OuterPoints < 2:
		return fmt.Errorf("%w: need at least 2 points per function (inner %d, outer %d)",
			ErrLayout, layout.InnerPoints, layout.OuterPoints)
	case len(limits.FeatureMin) != layout.Features || len(limits.FeatureMax) != layout.Features:
		return fmt.Errorf("%w: limits cover %d/%d features, layout has %d",
			ErrLayout, len(limits.FeatureMin), len(limits.FeatureMax), layout.Features)
	case limits.TargetMax < limits.TargetMin:
		return fmt.Errorf("%w: target range [%g, %g]", ErrLayout, limits.TargetMin, limits.TargetMax)
	}
	return nil
}

// widen returns a non-empty range around [lo, hi].
func widen(lo, hi float64) (float64, float64) {
	if hi > lo {
		return lo, hi
	}
	return lo - 0.5, lo + 0.5
}

// Layout returns the arena layout with defaults applied.
func (a *Arena) Layout() Layout {
	return a.layout
}

// Dim returns the input dimension every shard expects.
func (a *Arena) Dim() int {
	return a.layout.Features
}

// Len implements shard.Model.
func (a *Arena) Len() int {
	return a.layout.Shards
}

func (a *Arena) shardValues(i int) []float64 {
	off := i * a.valuesPerShard
	return a.values[off : off+a.valuesPerShard]
}

// Compute implements shard.Model.
//
// Performance: O(Features), 0 allocs.
func (a *Arena) Compute(i int, x []float64) float64 {
	vals := a.shardValues(i)
	fn := i * a.funcsPerShard
	f := a.layout.Features
	ip := a.layout.InnerPoints

	var sum float64
	for j := 0; j < f; j++ {
		sum += a.computeFn(fn+j, vals[j*ip:(j+1)*ip], x[j])
	}
	return a.computeFn(fn+f, vals[f*ip:], sum)
}

// Update implements shard.Model. It applies to the record of the last
// Compute call for shard i.
//
// Performance: O(Features), 0 allocs.
func (a *Arena) Update(i int, signal float64) {
	vals := a.shardValues(i)
	fn := i * a.funcsPerShard
	f := a.layout.Features
	ip := a.layout.InnerPoints

	outer := vals[f*ip:]
	g := a.slope(fn+f, outer)
	for j := 0; j < f; j++ {
		a.applyFn(fn+j, vals[j*ip:(j+1)*ip], signal*g)
	}
	a.applyFn(fn+f, outer, signal)
}

// Evaluate implements shard.Model.
func (a *Arena) Evaluate(i int, x []float64) float64 {
	vals := a.shardValues(i)
	fn := i * a.funcsPerShard
	f := a.layout.Features
	ip := a.layout.InnerPoints

	var sum float64
	for j := 0; j < f; j++ {
		sum += a.evalFn(fn+j, vals[j*ip:(j+1)*ip], x[j])
	}
	return a.evalFn(fn+f, vals[f*ip:], sum)
}

// computeFn evaluates function fn at x, widening its range to include x and
// caching the segment for applyFn.
func (a *Arena) computeFn(fn int, pts []float64, x float64) float64 {
	lo, hi := a.bounds[2*fn], a.bounds[2*fn+1]
	if x < lo {
		lo = x
		a.bounds[2*fn] = lo
	} else if x > hi {
		hi = x
		a.bounds[2*fn+1] = hi
	}
	idx, rel := locate(x, lo, hi, len(pts))
	//nolint:gosec // G115: idx < point count.
	a.seg[fn] = int32(idx)
	a.rel[fn] = rel
	return pts[idx] + (pts[idx+1]-pts[idx])*rel
}

// evalFn evaluates function fn at x clamped to its range. Nothing is written.
func (a *Arena) evalFn(fn int, pts []float64, x float64) float64 {
	lo, hi := a.bounds[2*fn], a.bounds[2*fn+1]
	if x < lo {
		x = lo
	} else if x > hi {
		x = hi
	}
	idx, rel := locate(x, lo, hi, len(pts))
	return pts[idx] + (pts[idx+1]-pts[idx])*rel
}

// applyFn spreads delta over the two points of the cached segment of fn.
func (a *Arena) applyFn(fn int, pts []float64, delta float64) {
	idx := a.seg[fn]
	rel := a.rel[fn]
	pts[idx] += delta * (1 - rel)
	pts[idx+1] += delta * rel
}

// slope returns the derivative of fn on its cached segment.
func (a *Arena) slope(fn int, pts []float64) float64 {
	lo, hi := a.bounds[2*fn], a.bounds[2*fn+1]
	step := (hi - lo) / float64(len(pts)-1)
	idx := a.seg[fn]
	return (pts[idx+1] - pts[idx]) / step
}

// locate returns the segment index and the offset inside it for x in
// [lo, hi] on a grid of k points.
func locate(x, lo, hi float64, k int) (int, float64) {
	step := (hi - lo) / float64(k-1)
	pos := (x - lo) / step
	idx := int(pos)
	if idx < 0 {
		return 0, 0
	}
	if idx >= k-1 {
		idx = k - 2
	}
	rel := pos - float64(idx)
	if rel > 1 {
		rel = 1
	}
	return idx, rel
}

// Params implements shard.Snapshotter: function values followed by function
// ranges.
func (a *Arena) Params() []float64 {
	p := make([]float64, 0, len(a.values)+len(a.bounds))
	p = append(p, a.values...)
	return append(p, a.bounds...)
}

// SetParams implements shard.Snapshotter. Segment caches are cleared.
func (a *Arena) SetParams(p []float64) error {
	if len(p) != len(a.values)+len(a.bounds) {
		return fmt.Errorf("%w: %d params, arena holds %d", ErrLayout, len(p), len(a.values)+len(a.bounds))
	}
	copy(a.values, p[:len(a.values)])
	copy(a.bounds, p[len(a.values):])
	clear(a.seg)
	clear(a.rel)
	return nil
}
