package dualshock4

// Sony's USB identity, used when no override is configured.
const (
	DefaultVID uint16 = 0x054C
	DefaultPID uint16 = 0x05C4
)

const (
	ButtonSquare   uint16 = 0x0010
	ButtonCross    uint16 = 0x0020
	ButtonCircle   uint16 = 0x0040
	ButtonTriangle uint16 = 0x0080
	ButtonL1       uint16 = 0x0100
	ButtonR1       uint16 = 0x0200
	ButtonL2       uint16 = 0x0400
	ButtonR2       uint16 = 0x0800
	ButtonShare    uint16 = 0x1000
	ButtonOptions  uint16 = 0x2000
	ButtonL3       uint16 = 0x4000
	ButtonR3       uint16 = 0x8000

	ButtonPS            uint16 = 0x0001
	ButtonTouchpadClick uint16 = 0x0002
)

// DPad bits of InputState.DPad.
const (
	DPadUp    uint8 = 0x01
	DPadDown  uint8 = 0x02
	DPadLeft  uint8 = 0x04
	DPadRight uint8 = 0x08
)

// Fixed-point scales of the motion fields.
const (
	// 0.0625 °/s resolution, about +-2048 °/s range.
	GyroCountsPerDps = 16.0
	// about 0.002 m/s² resolution, about +-6.5 g range.
	AccelCountsPerMS2 = 512.0

	StandardGravityMS2 = 9.81
)

// Accelerometer reading of a pad lying flat.
const (
	DefaultAccelXRaw int16 = 0
	DefaultAccelYRaw int16 = 0
	DefaultAccelZRaw int16 = -5023 // -9.81 * 512
)
