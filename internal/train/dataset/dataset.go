// Package dataset generates the random-matrix determinant benchmark.
//
// Each record is an m x m matrix with entries uniform in [Min, Max],
// flattened row-major into m*m features, and its determinant as the target.
// Determinants of random matrices are a hard target for additive models, which
// makes the set a useful stress test for the trainer.
//
// Entries come from apophenia keyed by (seed, set, record, feature), so a
// record does not depend on how generation was split across goroutines.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kolkov/phasetrain/internal/train/rng"
	"github.com/kolkov/phasetrain/internal/train/shard"
)

// ErrSpec is returned for an invalid generation spec.
var ErrSpec = errors.New("invalid dataset spec")

// ErrEmpty is returned by Bounds for a dataset without records.
var ErrEmpty = errors.New("empty dataset")

// Spec describes one generated set.
type Spec struct {
	// Records is the number of matrices.
	Records int

	// MatrixSize is m; every record has m*m features.
	MatrixSize int

	// Min and Max bound the matrix entries.
	Min, Max float64

	// Seed selects the random sequence.
	Seed int64

	// Set separates sets drawn from the same seed (training 0, validation 1).
	Set uint32

	// Workers bounds generation parallelism. Zero uses GOMAXPROCS.
	Workers int
}

// chunk is the number of records a goroutine generates between context
// checks.
const chunk = 1024

// Generate builds the set described by spec.
func Generate(ctx context.Context, spec Spec) (*shard.Table, error) {
	if spec.Records < 1 || spec.MatrixSize < 1 || spec.Max < spec.Min {
		return nil, fmt.Errorf("%w: %d records of %dx%d in [%g, %g]",
			ErrSpec, spec.Records, spec.MatrixSize, spec.MatrixSize, spec.Min, spec.Max)
	}
	workers := spec.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	dim := spec.MatrixSize * spec.MatrixSize
	features := make([]float64, spec.Records*dim)
	targets := make([]float64, spec.Records)
	base := rng.New(spec.Seed)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < spec.Records; lo += chunk {
		hi := min(lo+chunk, spec.Records)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Sources hold scratch state; each chunk draws from its own.
			src := base.Fork()
			lu := make([]float64, dim)
			for r := lo; r < hi; r++ {
				row := features[r*dim : (r+1)*dim]
				for k := range row {
					id := uint64(r)*uint64(dim) + uint64(k) //nolint:gosec // G115: indices are non-negative.
					row[k] = src.Uniform(rng.StreamData, spec.Set, id, spec.Min, spec.Max)
				}
				copy(lu, row)
				targets[r] = Determinant(lu, spec.MatrixSize)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shard.NewTable(dim, features, targets)
}

// Determinant returns det(a) for the n x n row-major matrix a, using LU
// decomposition with partial pivoting. a is overwritten.
func Determinant(a []float64, n int) float64 {
	det := 1.0
	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(a[col*n+col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a[r*n+col]); v > best {
				pivot, best = r, v
			}
		}
		if best == 0 {
			return 0
		}
		if pivot != col {
			for k := 0; k < n; k++ {
				a[col*n+k], a[pivot*n+k] = a[pivot*n+k], a[col*n+k]
			}
			det = -det
		}
		p := a[col*n+col]
		det *= p
		for r := col + 1; r < n; r++ {
			f := a[r*n+col] / p
			if f == 0 {
				continue
			}
			for k := col + 1; k < n; k++ {
				a[r*n+k] -= f * a[col*n+k]
			}
		}
	}
	return det
}

// Bounds is the per-feature and target range of a dataset.
type Bounds struct {
	FeatureMin []float64
	FeatureMax []float64
	TargetMin  float64
	TargetMax  float64
}

// TargetRange returns TargetMax - TargetMin.
func (b Bounds) TargetRange() float64 {
	return b.TargetMax - b.TargetMin
}

// Scan computes the Bounds of ds in one pass.
func Scan(ds shard.Dataset) (Bounds, error) {
	if ds.Len() == 0 {
		return Bounds{}, ErrEmpty
	}
	dim := ds.Dim()
	b := Bounds{
		FeatureMin: make([]float64, dim),
		FeatureMax: make([]float64, dim),
		TargetMin:  math.Inf(1),
		TargetMax:  math.Inf(-1),
	}
	for j := 0; j < dim; j++ {
		b.FeatureMin[j] = math.Inf(1)
		b.FeatureMax[j] = math.Inf(-1)
	}
	for i := 0; i < ds.Len(); i++ {
		for j, v := range ds.Features(i) {
			b.FeatureMin[j] = math.Min(b.FeatureMin[j], v)
			b.FeatureMax[j] = math.Max(b.FeatureMax[j], v)
		}
		t := ds.Target(i)
		b.TargetMin = math.Min(b.TargetMin, t)
		b.TargetMax = math.Max(b.TargetMax, t)
	}
	return b, nil
}
