package barrier

import (
	"runtime"
	"sync/atomic"
)

// cacheLine is the assumed cache line size for padding hot counters apart.
const cacheLine = 64

// Barrier is a reusable two-phase spin rendezvous for a fixed number of
// participants and one coordinator.
//
// Layout: the participant count, the arrival counter and the phase counter
// each live on their own cache line. Participants hammer arrived once per
// round and spin-read phase; keeping them apart stops the arrival writes from
// invalidating the line every spinning participant is reading.
//
// Thread Safety: Arrive may be called concurrently by participants.
// AwaitAll and Release must only be called by the single coordinator.
type Barrier struct {
	n int32
	_ [cacheLine - 4]byte

	arrived atomic.Int32
	_       [cacheLine - 4]byte

	phase atomic.Uint64
	_     [cacheLine - 8]byte
}

// New creates a barrier for n participants (the coordinator is not counted).
//
// Panics if n < 1. Participant counts are configuration and must be validated
// before any goroutine is started.
func New(n int) *Barrier {
	if n < 1 {
		panic("barrier: participant count must be positive")
	}
	//nolint:gosec // G115: worker counts are far below 2^31.
	return &Barrier{n: int32(n)}
}

// Arrive records the caller's arrival for the round whose phase is expected
// and spins until the coordinator has released that round.
//
// expected must equal the barrier phase at the time of the call; for the
// training stage this is the record index. Calling Arrive twice for the same
// round, or with a stale phase, breaks the arrival count invariant.
//
// Performance: one atomic add plus a spin on a read-mostly line, 0 allocs.
func (b *Barrier) Arrive(expected uint64) {
	b.arrived.Add(1)
	SpinUntil(func() bool { return b.phase.Load() != expected })
}

// AwaitAll spins until every participant has arrived for the current round.
//
// Coordinator only. After AwaitAll returns, every write a participant made
// before its Arrive is visible to the caller.
func (b *Barrier) AwaitAll() {
	SpinUntil(func() bool { return b.arrived.Load() >= b.n })
}

// Release resets the arrival counter and advances the phase, unblocking all
// participants waiting in Arrive for the current round.
//
// Coordinator only, and only after AwaitAll returned for this round. The
// counter is reset before the phase advances: no participant can arrive for
// the next round until it observes the new phase, so the reset can never
// swallow an arrival.
func (b *Barrier) Release() {
	b.arrived.Store(0)
	b.phase.Add(1)
}

// Phase returns the number of released rounds.
func (b *Barrier) Phase() uint64 {
	return b.phase.Load()
}

// Arrived returns the number of participants that arrived for the current
// round and have not been released yet.
func (b *Barrier) Arrived() int {
	return int(b.arrived.Load())
}

// Participants returns the participant count the barrier was built for.
func (b *Barrier) Participants() int {
	return int(b.n)
}

// SpinUntil busy-waits until cond returns true, yielding the processor between
// checks.
//
// Arrive and AwaitAll wait through it. cond does not escape, so the closures
// they pass stay on the stack.
func SpinUntil(cond func() bool) {
	for !cond() {
		runtime.Gosched()
	}
}
