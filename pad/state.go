// Package pad holds the controller-independent input and output state shared by
// codecs, the polling loop, the action dispatcher and the virtual pad driver.
package pad

import (
	"time"

	"github.com/Alia5/padbridge/fusion"
)

// Analog stick centre value.
const StickCenter uint8 = 128

// State is the canonical snapshot of one controller for one polling cycle.
// The polling loop publishes value copies; consumers must not expect later
// cycles to mutate a received State.
type State struct {
	Cross, Circle, Square, Triangle bool
	L1, R1, L3, R3                  bool
	Share, Options, PS              bool

	DpadUp, DpadDown, DpadLeft, DpadRight bool

	// Back paddles and extra face buttons.
	SideL, SideR bool
	BLP, BRP     bool
	FnL, FnR     bool
	Capture      bool

	LX, LY uint8
	RX, RY uint8
	L2, R2 uint8

	GyroYaw, GyroPitch, GyroRoll int16
	AccelX, AccelY, AccelZ       int16

	Battery uint8

	PacketCounter     uint32
	ReportTimestamp   time.Time
	DeviceTimestamp   uint16
	ElapsedTime       float64
	TotalMicroseconds uint64

	Idle        bool
	Orientation fusion.Orientation
}

// Neutral returns a state with centred sticks and nothing pressed.
func Neutral() State {
	return State{LX: StickCenter, LY: StickCenter, RX: StickCenter, RY: StickCenter}
}

// L2Pressed reports whether the left trigger counts as a digital press.
func (s *State) L2Pressed() bool { return s.L2 > 0 }

// R2Pressed reports whether the right trigger counts as a digital press.
func (s *State) R2Pressed() bool { return s.R2 > 0 }

// AnyButton reports whether any digital input (triggers included) is active.
func (s *State) AnyButton() bool {
	for c := Control(1); c < controlCount; c++ {
		if s.Pressed(c) {
			return true
		}
	}
	return false
}

// SticksNear reports whether both sticks are within dz of centre.
func (s *State) SticksNear(dz uint8) bool {
	return near(s.LX, dz) && near(s.LY, dz) && near(s.RX, dz) && near(s.RY, dz)
}

func near(v, dz uint8) bool {
	d := int(v) - int(StickCenter)
	if d < 0 {
		d = -d
	}
	return d <= int(dz)
}
