// Package partition splits an ordered shard collection between workers.
//
// The synchronized stage gives every worker one contiguous block of shard
// indices; the pretraining stage groups shards into disjoint pairs. Both are
// computed once before any goroutine starts and never change afterwards.
package partition

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kolkov/phasetrain/internal/train/rng"
)

var (
	// ErrNoWorkers is returned for a worker count below one.
	ErrNoWorkers = errors.New("worker count must be at least 1")

	// ErrNoShards is returned for an empty shard collection.
	ErrNoShards = errors.New("shard count must be at least 1")

	// ErrNotDivisible is returned when the shard count is not a multiple of
	// the worker count.
	ErrNotDivisible = errors.New("shard count is not divisible by worker count")

	// ErrOddShards is returned when shards cannot be paired exhaustively.
	ErrOddShards = errors.New("shard count must be even to form pairs")
)

// Block is the half-open shard index range [Lo, Hi) owned by one worker.
type Block struct {
	Worker int
	Lo     int
	Hi     int
}

// Len returns the number of shards in the block.
func (b Block) Len() int {
	return b.Hi - b.Lo
}

// Contains reports whether shard index i belongs to the block.
func (b Block) Contains(i int) bool {
	return i >= b.Lo && i < b.Hi
}

// Blocks assigns shards [0, shards) to workers as equal contiguous blocks:
// worker i owns [i*shards/workers, (i+1)*shards/workers).
func Blocks(shards, workers int) ([]Block, error) {
	if workers < 1 {
		return nil, ErrNoWorkers
	}
	if shards < 1 {
		return nil, ErrNoShards
	}
	if shards%workers != 0 {
		return nil, fmt.Errorf("%w: %d shards, %d workers", ErrNotDivisible, shards, workers)
	}

	size := shards / workers
	blocks := make([]Block, workers)
	for i := range blocks {
		blocks[i] = Block{Worker: i, Lo: i * size, Hi: (i + 1) * size}
	}
	return blocks, nil
}

// Pair is two distinct shard indices trained together during pretraining.
type Pair struct {
	First  int
	Second int
}

// Pairs groups shards [0, shards) into shards/2 disjoint pairs.
//
// The shards are shuffled with a seeded permutation first, so pairs are random
// but reproducible: the same (shards, seed) always yields the same pairs.
func Pairs(shards int, seed int64) ([]Pair, error) {
	if shards < 1 {
		return nil, ErrNoShards
	}
	if shards%2 != 0 {
		return nil, fmt.Errorf("%w: %d shards", ErrOddShards, shards)
	}

	order := shuffle(shards, seed)
	pairs := make([]Pair, shards/2)
	for i := range pairs {
		pairs[i] = Pair{First: order[2*i], Second: order[2*i+1]}
	}
	return pairs, nil
}

// shuffle returns a seeded permutation of [0, n): indices are sorted by a
// random key drawn per index, ties broken by index.
func shuffle(n int, seed int64) []int {
	src := rng.New(seed)
	keys := make([]uint64, n)
	order := make([]int, n)
	for i := range order {
		order[i] = i
		//nolint:gosec // G115: i is non-negative.
		keys[i] = src.Uint64(rng.StreamShuffle, 0, uint64(i))
	}
	sort.Slice(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		if ka != kb {
			return ka < kb
		}
		return order[a] < order[b]
	})
	return order
}
