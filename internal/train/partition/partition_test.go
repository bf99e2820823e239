package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocks_ExhaustiveAndDisjoint(t *testing.T) {
	for workers := 1; workers <= 16; workers++ {
		for _, mult := range []int{1, 2, 3, 13} {
			shards := workers * mult
			blocks, err := Blocks(shards, workers)
			require.NoError(t, err)
			require.Len(t, blocks, workers)

			owner := make([]int, shards)
			for i := range owner {
				owner[i] = -1
			}
			for w, b := range blocks {
				assert.Equal(t, w, b.Worker)
				assert.Equal(t, mult, b.Len())
				for i := b.Lo; i < b.Hi; i++ {
					require.Equal(t, -1, owner[i], "shard %d owned twice (S=%d n=%d)", i, shards, workers)
					owner[i] = w
				}
			}
			for i, w := range owner {
				require.NotEqual(t, -1, w, "shard %d unowned (S=%d n=%d)", i, shards, workers)
			}
		}
	}
}

func TestBlocks_Contiguous(t *testing.T) {
	blocks, err := Blocks(8, 4)
	require.NoError(t, err)
	assert.Equal(t, []Block{
		{Worker: 0, Lo: 0, Hi: 2},
		{Worker: 1, Lo: 2, Hi: 4},
		{Worker: 2, Lo: 4, Hi: 6},
		{Worker: 3, Lo: 6, Hi: 8},
	}, blocks)
	assert.True(t, blocks[1].Contains(3))
	assert.False(t, blocks[1].Contains(4))
}

func TestBlocks_Errors(t *testing.T) {
	tests := []struct {
		name    string
		shards  int
		workers int
		want    error
	}{
		{"zero workers", 8, 0, ErrNoWorkers},
		{"negative workers", 8, -1, ErrNoWorkers},
		{"zero shards", 0, 4, ErrNoShards},
		{"not divisible", 10, 4, ErrNotDivisible},
		{"more workers than shards", 2, 4, ErrNotDivisible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Blocks(tt.shards, tt.workers)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPairs_ExhaustiveAndDisjoint(t *testing.T) {
	for _, shards := range []int{2, 4, 8, 64, 208} {
		pairs, err := Pairs(shards, 11)
		require.NoError(t, err)
		require.Len(t, pairs, shards/2)

		seen := make([]bool, shards)
		for _, p := range pairs {
			assert.NotEqual(t, p.First, p.Second)
			for _, i := range []int{p.First, p.Second} {
				require.False(t, seen[i], "shard %d paired twice", i)
				seen[i] = true
			}
		}
		for i, ok := range seen {
			assert.True(t, ok, "shard %d unpaired", i)
		}
	}
}

func TestPairs_Reproducible(t *testing.T) {
	a, err := Pairs(64, 5)
	require.NoError(t, err)
	b, err := Pairs(64, 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Pairs(64, 6)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different seeds should shuffle differently")
}

func TestPairs_Errors(t *testing.T) {
	_, err := Pairs(7, 1)
	assert.ErrorIs(t, err, ErrOddShards)
	_, err = Pairs(0, 1)
	assert.ErrorIs(t, err, ErrNoShards)
}
