package haptic_test

import (
	"testing"
	"time"

	"github.com/Alia5/padbridge/haptic"
	"github.com/Alia5/padbridge/pad"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestPrepare(t *testing.T) {
	rumble := pad.Haptic{RumbleHeavy: 100}
	tests := []struct {
		name      string
		current   pad.Haptic
		previous  pad.Haptic
		wantDirty bool
		wantWrite bool
	}{
		{name: "unchanged silent", current: pad.Haptic{}, previous: pad.Haptic{}},
		{name: "explicit dirty", current: pad.Haptic{Dirty: true}, previous: pad.Haptic{}, wantDirty: true, wantWrite: true},
		{name: "rumble started", current: rumble, previous: pad.Haptic{}, wantDirty: true, wantWrite: true},
		{name: "rumble stopped", current: pad.Haptic{}, previous: rumble, wantDirty: true, wantWrite: true},
		{name: "lightbar changed", current: pad.Haptic{Lightbar: pad.Color{B: 64}}, previous: pad.Haptic{}, wantDirty: true, wantWrite: true},
		{name: "rumble unchanged first cycle", current: rumble, previous: rumble},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m haptic.Machine
			dirty, write := m.Prepare(tt.current, tt.previous, t0)
			assert.Equal(t, tt.wantDirty, dirty)
			assert.Equal(t, tt.wantWrite, write)
		})
	}
}

func TestKeepAlive(t *testing.T) {
	var m haptic.Machine
	rumble := pad.Haptic{RumbleLight: 1}

	_, write := m.Prepare(rumble, pad.Haptic{}, t0)
	assert.True(t, write)

	_, write = m.Prepare(rumble, rumble, t0.Add(3999*time.Millisecond))
	assert.False(t, write)
	assert.Equal(t, 3999*time.Millisecond, m.StandbyElapsed(t0.Add(3999*time.Millisecond)))

	dirty, write := m.Prepare(rumble, rumble, t0.Add(4000*time.Millisecond))
	assert.False(t, dirty)
	assert.True(t, write)

	// Timer restarted by the keep-alive write.
	_, write = m.Prepare(rumble, rumble, t0.Add(7999*time.Millisecond))
	assert.False(t, write)
	_, write = m.Prepare(rumble, rumble, t0.Add(8000*time.Millisecond))
	assert.True(t, write)
}

func TestKeepAliveNeverFiresWithoutRumble(t *testing.T) {
	var m haptic.Machine
	lit := pad.Haptic{Lightbar: pad.Color{R: 255}}
	_, write := m.Prepare(lit, pad.Haptic{}, t0)
	assert.True(t, write)
	for i := 1; i <= 10; i++ {
		_, write = m.Prepare(lit, lit, t0.Add(time.Duration(i)*haptic.KeepAliveInterval))
		assert.False(t, write)
	}
	assert.Zero(t, m.StandbyElapsed(t0.Add(time.Hour)))
}

func TestChangeRestartsStandby(t *testing.T) {
	var m haptic.Machine
	a := pad.Haptic{RumbleHeavy: 10}
	b := pad.Haptic{RumbleHeavy: 20}
	m.Prepare(a, pad.Haptic{}, t0)
	m.Prepare(b, a, t0.Add(3*time.Second))

	_, write := m.Prepare(b, b, t0.Add(6*time.Second))
	assert.False(t, write)
	_, write = m.Prepare(b, b, t0.Add(7*time.Second))
	assert.True(t, write)
}

func TestPrepareDoesNotAllocate(t *testing.T) {
	var m haptic.Machine
	h := pad.Haptic{RumbleHeavy: 1}
	allocs := testing.AllocsPerRun(100, func() { m.Prepare(h, h, t0) })
	assert.Zero(t, allocs)
}
