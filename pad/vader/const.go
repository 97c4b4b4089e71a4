package vader

// Flydigi Vader 4 Pro in its DInput/"extended" USB mode.
const (
	DefaultVID = 0x04B4
	DefaultPID = 0x2412
)

const ReportSize = 32

const (
	ReportIDInput  = 0x02
	ReportIDOutput = 0x05

	// InputMarker sits at offset 1 of every extended input report.
	InputMarker = 0xFE
)

const (
	InOffsetReportID  = 0
	InOffsetMarker    = 1
	InOffsetTimestamp = 2 // uint32 LE, 3 MHz ticks
	InOffsetLX        = 6
	InOffsetLY        = 7
	InOffsetRX        = 8
	InOffsetRY        = 9
	InOffsetL2        = 10
	InOffsetR2        = 11
	InOffsetButtons   = 12 // uint16 LE
	InOffsetHat       = 14 // low nibble hat, high nibble paddles
	InOffsetBattery   = 15
	InOffsetGyro      = 16 // pitch, yaw, roll int16 LE
	InOffsetAccel     = 22 // x, y, z int16 LE

	// Bytes past this offset are reserved and not preserved by EncodeInput.
	InputPayloadEnd = 28
)

// Button bits in the uint16 at InOffsetButtons.
const (
	ButtonA      uint16 = 1 << 0
	ButtonB      uint16 = 1 << 1
	ButtonX      uint16 = 1 << 2
	ButtonY      uint16 = 1 << 3
	ButtonLB     uint16 = 1 << 4
	ButtonRB     uint16 = 1 << 5
	ButtonLS     uint16 = 1 << 6
	ButtonRS     uint16 = 1 << 7
	ButtonSelect uint16 = 1 << 8
	ButtonStart  uint16 = 1 << 9
	ButtonHome   uint16 = 1 << 10
	ButtonC      uint16 = 1 << 11
	ButtonZ      uint16 = 1 << 12
	ButtonFn     uint16 = 1 << 13
)

// Paddle bits in the high nibble of the hat byte.
const (
	PaddleM1 uint8 = 0x10
	PaddleM2 uint8 = 0x20
	PaddleM3 uint8 = 0x40
	PaddleM4 uint8 = 0x80
)

const (
	HatUp        = 0
	HatUpRight   = 1
	HatRight     = 2
	HatDownRight = 3
	HatDown      = 4
	HatDownLeft  = 5
	HatLeft      = 6
	HatUpLeft    = 7
	HatNeutral   = 8
	HatMask      = 0x0F
)

// Output report commands at offset 1.
const (
	OutCmdRumble   = 0x0F
	OutCmdLightbar = 0xE0
	OutCmdStop     = 0x10
)

const (
	// TimestampDivisor converts raw timestamp ticks to microseconds.
	TimestampDivisor = 3

	// BatteryMax is the highest level reported in the battery byte.
	BatteryMax = 100
)
