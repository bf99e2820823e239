package trainer

import (
	"runtime"

	"github.com/kolkov/phasetrain/internal/train/barrier"
	"github.com/kolkov/phasetrain/internal/train/partition"
	"github.com/kolkov/phasetrain/internal/train/shard"
)

// cacheLineSize keeps neighboring partial slots off each other's cache line.
const cacheLineSize = 64

// slot holds one worker's published partial sum.
type slot struct {
	value float64
	_     [cacheLineSize - 8]byte
}

// syncState is the per-epoch rendezvous state. It is created at DISPATCH,
// captured by the worker closures, and dropped after JOIN.
//
// partial[i] is written only by worker i before it arrives and read only by
// the supervisor after AwaitAll. residual is written only by the supervisor
// before Release and read only by workers after Arrive returns. The barrier's
// atomics order both; the fields themselves are plain memory.
type syncState struct {
	barrier  *barrier.Barrier
	partial  []slot
	_        [cacheLineSize]byte
	residual float64
}

func newSyncState(workers int) *syncState {
	return &syncState{
		barrier: barrier.New(workers),
		partial: make([]slot, workers),
	}
}

// work is the worker loop for one block over one epoch.
//
// Performance: 0 allocs per record; the only shared writes are the worker's
// own slot and the barrier's arrival counter.
func work(st *syncState, model shard.Model, b partition.Block, ds shard.Dataset, pin bool) {
	if pin {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	out := &st.partial[b.Worker]
	n := ds.Len()
	for r := 0; r < n; r++ {
		x := ds.Features(r)
		var partial float64
		for s := b.Lo; s < b.Hi; s++ {
			partial += model.Compute(s, x)
		}
		out.value = partial

		st.barrier.Arrive(uint64(r)) //nolint:gosec // G115: r is non-negative.

		residual := st.residual
		for s := b.Lo; s < b.Hi; s++ {
			model.Update(s, residual)
		}
	}
}
