// Package barrier implements the phase barrier that serializes one round of
// the synchronized training stage.
//
// A round has three steps:
//
//  1. Every participant finishes its "before" work and calls Arrive.
//  2. The coordinator observes all arrivals (AwaitAll), runs the serial step
//     and calls Release.
//  3. Every participant returns from Arrive and runs its "after" work.
//
// The barrier holds exactly two shared words:
//   - arrived: incremented once per round by each participant, reset by the
//     coordinator inside Release.
//   - phase: incremented once per round by the coordinator, never by
//     participants.
//
// A participant remembers the phase it expects to see released (for the
// training stage this is simply the record index). While phase equals that
// value the participant has arrived but has not been released yet.
//
// Ordering:
//
//	participant:  write partial  ->  arrived.Add(1)  ->  spin(phase != k)  ->  read residual
//	coordinator:  spin(arrived == n)  ->  read partials, write residual  ->  arrived=0, phase++
//
// Go's sync/atomic operations are sequentially consistent, so plain writes made
// before arrived.Add are visible to the coordinator once it loads arrived == n,
// and plain writes made by the coordinator before phase++ are visible to every
// participant once it loads the new phase.
//
// Waiting is a busy spin that yields the processor between checks. Rounds
// are expected to be very short (a few floating point operations per shard),
// so a spin costs less than a park/unpark through the scheduler.
//
// Liveness: the barrier assumes every participant keeps arriving. A missing
// participant stalls the coordinator forever, and a missing coordinator stalls
// every participant. There is no timeout and no detection.
//
// Performance requirements:
//   - Arrive / AwaitAll / Release: zero allocations.
//   - Uncontended round trip: well under 1µs with one goroutine per core.
package barrier
