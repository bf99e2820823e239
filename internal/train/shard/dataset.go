package shard

import (
	"errors"
	"fmt"
)

// ErrShape is returned when feature and target slices do not describe the same
// number of records.
var ErrShape = errors.New("dataset shape mismatch")

// Dataset is a read-only, index-addressable sequence of records.
//
// Every record has Dim features and one scalar target. A dataset must not
// change while an epoch is running; it is read concurrently by all workers
// without synchronization.
type Dataset interface {
	Len() int
	Dim() int
	Features(i int) []float64
	Target(i int) float64
}

// Table is a Dataset stored row-major in two contiguous slices.
//
// Features returns a sub-slice of the backing array, so reading a record never
// allocates. Callers must treat the returned slice as read-only.
type Table struct {
	dim      int
	features []float64
	targets  []float64
}

// NewTable wraps row-major features (len == len(targets)*dim) and targets
// without copying.
func NewTable(dim int, features, targets []float64) (*Table, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: dimension %d", ErrShape, dim)
	}
	if len(features) != len(targets)*dim {
		return nil, fmt.Errorf("%w: %d features for %d records of dimension %d",
			ErrShape, len(features), len(targets), dim)
	}
	return &Table{dim: dim, features: features, targets: targets}, nil
}

// Len implements Dataset.
func (t *Table) Len() int {
	return len(t.targets)
}

// Dim implements Dataset.
func (t *Table) Dim() int {
	return t.dim
}

// Features implements Dataset.
func (t *Table) Features(i int) []float64 {
	off := i * t.dim
	return t.features[off : off+t.dim : off+t.dim]
}

// Target implements Dataset.
func (t *Table) Target(i int) float64 {
	return t.targets[i]
}

// Targets returns the target column. The slice is shared with the table.
func (t *Table) Targets() []float64 {
	return t.targets
}
