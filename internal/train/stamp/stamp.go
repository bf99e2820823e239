// Package stamp implements 64-bit logical timestamps for ordering events
// across the participants of a phase barrier.
//
// A Stamp encodes who recorded an event and when, in logical time:
//   - Top 16 bits: Participant ID (0-65535)
//   - Bottom 48 bits: Tick value (0-281T)
//
// Ticks come from one shared Clock, so comparing the tick parts of two stamps
// orders the events they mark even when different participants recorded them.
// The barrier tests use stamps to prove that no participant leaves a round
// before the coordinator released it.
package stamp

import (
	"strconv"
	"sync/atomic"
)

// Stamp is a 64-bit logical timestamp encoding participant ID and tick.
// Layout: [Participant:16][Tick:48]
//
// Example: 0x0005000000001234 represents participant 5 at tick 0x1234.
type Stamp uint64

const (
	// ParticipantBits is the number of bits allocated for the participant ID.
	ParticipantBits = 16

	// TickBits is the number of bits allocated for the tick value.
	TickBits = 48

	// TickMask is the bitmask for extracting the tick value.
	TickMask = (1 << TickBits) - 1

	// Coordinator is the participant ID reserved for the coordinator.
	Coordinator = 0xFFFF
)

// New creates a stamp from a participant ID and tick value.
// Ticks beyond 48 bits are truncated.
//
//go:nosplit
func New(participant uint16, tick uint64) Stamp {
	return Stamp(uint64(participant)<<TickBits | (tick & TickMask))
}

// Decode extracts the participant ID and tick value from a stamp.
//
//go:nosplit
func (s Stamp) Decode() (participant uint16, tick uint64) {
	//nolint:gosec // G115: intentional truncation to the top 16 bits.
	participant = uint16(s >> TickBits)
	tick = uint64(s) & TickMask
	return
}

// Tick returns the tick part of the stamp.
//
//go:nosplit
func (s Stamp) Tick() uint64 {
	return uint64(s) & TickMask
}

// Before reports whether s was recorded strictly before other on the shared
// clock. Participant IDs do not take part in the comparison.
//
//go:nosplit
func (s Stamp) Before(other Stamp) bool {
	return s.Tick() < other.Tick()
}

// String returns "tick@participant", with "c" standing in for the
// coordinator.
func (s Stamp) String() string {
	p, tick := s.Decode()
	who := strconv.FormatUint(uint64(p), 10)
	if p == Coordinator {
		who = "c"
	}
	return strconv.FormatUint(tick, 10) + "@" + who
}

// Clock is a shared monotonically increasing logical clock.
//
// The zero value is ready to use and starts at tick 0; the first Now returns
// tick 1.
//
// Thread Safety: Now is safe for concurrent use.
type Clock struct {
	ticks atomic.Uint64
}

// Now advances the clock and returns a stamp for participant at the new tick.
// Two calls never return the same tick.
func (c *Clock) Now(participant uint16) Stamp {
	return New(participant, c.ticks.Add(1))
}

// Ticks returns the number of stamps issued so far.
func (c *Clock) Ticks() uint64 {
	return c.ticks.Load()
}
