package pad

// Color is an RGB lightbar colour.
type Color struct {
	R, G, B uint8
}

// Lerp blends from a towards b by ratio in [0,1].
func (a Color) Lerp(b Color, ratio float64) Color {
	if ratio <= 0 {
		return a
	}
	if ratio >= 1 {
		return b
	}
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*ratio + 0.5)
	}
	return Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B)}
}

// Haptic is the desired force-feedback and lightbar output of a device.
type Haptic struct {
	RumbleHeavy uint8
	RumbleLight uint8
	Lightbar    Color

	// Dirty forces a write even when the output equals the last one sent.
	Dirty bool
}

// RumbleSet reports whether either motor is running.
func (h Haptic) RumbleSet() bool {
	return h.RumbleHeavy != 0 || h.RumbleLight != 0
}

// SameOutput compares the device-visible fields, ignoring Dirty.
func (h Haptic) SameOutput(o Haptic) bool {
	return h.RumbleHeavy == o.RumbleHeavy &&
		h.RumbleLight == o.RumbleLight &&
		h.Lightbar == o.Lightbar
}
