// Package haptic decides when a device's force-feedback and lightbar output
// has to be written.
package haptic

import (
	"time"

	"github.com/Alia5/padbridge/pad"
)

// KeepAliveInterval is how long unchanged non-zero rumble may run before it is
// re-sent. Pads stop their motors on their own if not refreshed.
const KeepAliveInterval = 4000 * time.Millisecond

// Machine tracks the rumble standby timer of one device. It is owned by the
// device's polling goroutine and is not safe for concurrent use.
type Machine struct {
	running bool
	start   time.Time
}

// Prepare reports whether current differs from previous (or is explicitly
// dirty) and whether an output write is due at now.
func (m *Machine) Prepare(current, previous pad.Haptic, now time.Time) (dirty, shouldWrite bool) {
	rumbleSet := current.RumbleSet()

	if current.Dirty || !current.SameOutput(previous) {
		if rumbleSet {
			m.restart(now)
		} else {
			m.reset()
		}
		return true, true
	}

	if !rumbleSet {
		m.reset()
		return false, false
	}
	if !m.running {
		m.restart(now)
		return false, false
	}
	if now.Sub(m.start) >= KeepAliveInterval {
		m.restart(now)
		return false, true
	}
	return false, false
}

// StandbyElapsed returns how long the current rumble has gone without a write,
// or zero when no rumble is running.
func (m *Machine) StandbyElapsed(now time.Time) time.Duration {
	if !m.running {
		return 0
	}
	return now.Sub(m.start)
}

func (m *Machine) restart(now time.Time) {
	m.running = true
	m.start = now
}

func (m *Machine) reset() {
	m.running = false
	m.start = time.Time{}
}
