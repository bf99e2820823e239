// Package rng provides reproducible, index-addressable random values.
//
// Values come from an apophenia counter-based sequence: the value for a given
// (stream, iteration, id) triple is a pure function of the seed, so values can
// be drawn in any order and still come out the same. Parallel callers fork one
// Source per goroutine.
// Dataset generation fans out over row ranges and the KAN arena initializes
// shards independently; both rely on this.
package rng

import (
	"github.com/molecula/apophenia"
)

// Stream selects an independent family of values for the same seed.
type Stream uint8

const (
	// StreamData draws dataset features.
	StreamData Stream = iota
	// StreamInit draws initial model parameters.
	StreamInit
	// StreamShuffle draws permutation keys.
	StreamShuffle
)

// Source is a seeded random source whose values depend only on their
// coordinates, never on call order.
//
// Thread Safety: a Source is NOT safe for concurrent use. The apophenia
// sequence encrypts through scratch buffers it owns. Goroutines that draw in
// parallel each take their own copy from Fork; every copy returns the same
// values.
type Source struct {
	seq    apophenia.Sequence
	seed   int64
	family uint32
}

// New creates a source for seed.
func New(seed int64) *Source {
	return &Source{
		seq:  apophenia.NewSequence(seed),
		seed: seed,
		//nolint:gosec // G115: the low 32 bits select the offset family.
		family: uint32(seed),
	}
}

// Fork returns an independent source for the same seed. Fork itself may be
// called concurrently.
func (s *Source) Fork() *Source {
	return New(s.seed)
}

// Uint64 returns the 64 random bits at (stream, iter, id).
func (s *Source) Uint64(stream Stream, iter uint32, id uint64) uint64 {
	class := apophenia.SequenceUser1
	if stream != StreamData {
		class = apophenia.SequenceUser2
	}
	// The stream is folded into the iteration so the two user classes give
	// three disjoint families.
	offset := apophenia.OffsetFor(class, s.family, iter<<2|uint32(stream), id)
	return s.seq.BitsAt(offset).Lo
}

// Float64 returns a value uniform in [0, 1) at (stream, iter, id).
func (s *Source) Float64(stream Stream, iter uint32, id uint64) float64 {
	return float64(s.Uint64(stream, iter, id)>>11) / (1 << 53)
}

// Uniform returns a value uniform in [lo, hi) at (stream, iter, id).
func (s *Source) Uniform(stream Stream, iter uint32, id uint64, lo, hi float64) float64 {
	return lo + (hi-lo)*s.Float64(stream, iter, id)
}
