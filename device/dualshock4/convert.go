package dualshock4

import (
	"github.com/Alia5/padbridge/fusion"
	"github.com/Alia5/padbridge/pad"
)

var buttonBits = [...]struct {
	c   pad.Control
	bit uint16
}{
	{pad.Cross, ButtonCross},
	{pad.Circle, ButtonCircle},
	{pad.Square, ButtonSquare},
	{pad.Triangle, ButtonTriangle},
	{pad.L1, ButtonL1},
	{pad.R1, ButtonR1},
	{pad.L2, ButtonL2},
	{pad.R2, ButtonR2},
	{pad.Share, ButtonShare},
	{pad.Options, ButtonOptions},
	{pad.L3, ButtonL3},
	{pad.R3, ButtonR3},
	{pad.PS, ButtonPS},
	{pad.Capture, ButtonTouchpadClick},
}

// FromPad converts a canonical state into the message sent to the virtual
// pad. Back paddles and function keys have no DS4 counterpart and are dropped.
func FromPad(s *pad.State) InputState {
	out := InputState{
		LX: centered(s.LX), LY: centered(s.LY),
		RX: centered(s.RX), RY: centered(s.RY),
		L2: s.L2, R2: s.R2,

		GyroX: s.GyroPitch,
		GyroY: s.GyroYaw,
		GyroZ: s.GyroRoll,
	}
	for _, b := range buttonBits {
		if s.Pressed(b.c) {
			out.Buttons |= b.bit
		}
	}
	if s.DpadUp {
		out.DPad |= DPadUp
	}
	if s.DpadDown {
		out.DPad |= DPadDown
	}
	if s.DpadLeft {
		out.DPad |= DPadLeft
	}
	if s.DpadRight {
		out.DPad |= DPadRight
	}

	if s.AccelX == 0 && s.AccelY == 0 && s.AccelZ == 0 {
		out.AccelX, out.AccelY, out.AccelZ = DefaultAccelXRaw, DefaultAccelYRaw, DefaultAccelZRaw
	} else {
		out.AccelX = accel(s.AccelX)
		out.AccelY = accel(s.AccelY)
		out.AccelZ = accel(s.AccelZ)
	}
	return out
}

// Pad state gyro already uses 16 counts per °/s; accel needs rescaling from
// counts per g.
func accel(v int16) int16 {
	return AccelGToRaw(float64(v) / fusion.DefaultAccelCountsPerG)
}

func centered(v uint8) int8 { return int8(int16(v) - int16(pad.StickCenter)) }

// Haptic converts feedback from the virtual pad into the physical output.
// The DS4 large motor drives the heavy rumble.
func (f *OutputState) Haptic() pad.Haptic {
	return pad.Haptic{
		RumbleHeavy: f.RumbleLarge,
		RumbleLight: f.RumbleSmall,
		Lightbar:    pad.Color{R: f.LedRed, G: f.LedGreen, B: f.LedBlue},
	}
}
