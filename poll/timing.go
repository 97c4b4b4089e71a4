package poll

import (
	"math"
	"time"
)

// Clock describes a wrapping device timestamp counter.
type Clock struct {
	// Max is the largest raw value before the counter wraps to zero.
	Max uint32
	// Divisor converts raw ticks to microseconds.
	Divisor uint32
}

// VaderClock is the 3 MHz, 32-bit counter of the Vader 4 Pro.
var VaderClock = Clock{Max: math.MaxUint32, Divisor: 3}

// Delta returns the microseconds between two raw timestamps, accounting for
// a single wrap when cur < prev.
func (c Clock) Delta(prev, cur uint32) uint64 {
	div := uint64(max(c.Divisor, 1))
	if prev > cur {
		return (uint64(c.Max) - uint64(prev) + uint64(cur) + 1) / div
	}
	return uint64(cur-prev) / div
}

// Timing turns successive device timestamps into per-cycle elapsed time.
// A zero device delta (or the first report) falls back to the wall clock.
type Timing struct {
	Clock Clock
	// MaxFallbackDelta clamps the wall-clock fallback; zero disables clamping.
	MaxFallbackDelta time.Duration

	previous    uint32
	initialized bool
	total       uint64
}

// Advance consumes one timestamp and the wall-clock time since the previous
// cycle. It returns the elapsed seconds for this cycle and the running total
// in microseconds.
func (t *Timing) Advance(stamp uint32, wall time.Duration) (elapsed float64, totalMicros uint64) {
	var delta uint64
	if t.initialized {
		delta = t.Clock.Delta(t.previous, stamp)
	}
	t.previous = stamp
	t.initialized = true

	if delta != 0 {
		t.total += delta
		return 0.000001 * float64(delta), t.total
	}

	if wall < 0 {
		wall = 0
	}
	if t.MaxFallbackDelta > 0 && wall > t.MaxFallbackDelta {
		wall = t.MaxFallbackDelta
	}
	t.total += uint64(wall.Microseconds())
	return wall.Seconds(), t.total
}

// Synced reports whether a previous timestamp is known.
func (t *Timing) Synced() bool { return t.initialized }

// Reset forgets the previous timestamp, keeping the running total.
func (t *Timing) Reset() { t.initialized = false }
