// Package vader decodes and encodes the fixed-size USB reports of the
// Flydigi Vader 4 Pro.
package vader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Alia5/padbridge/pad"
)

var (
	// ErrUnrecognizedReportType means the buffer is not an extended input
	// report. Callers keep their previous state for the cycle.
	ErrUnrecognizedReportType = errors.New("unrecognized report type")
	ErrShortReport            = errors.New("short report")
)

// Input is the decoded content of one input report.
type Input struct {
	Timestamp uint32

	LX, LY, RX, RY uint8
	L2, R2         uint8

	Buttons uint16
	Hat     uint8 // hat position, HatNeutral when released
	Paddles uint8 // PaddleM* bits
	Battery uint8

	GyroPitch, GyroYaw, GyroRoll int16
	AccelX, AccelY, AccelZ       int16
}

// DecodeInput parses an input report. It never modifies b.
func DecodeInput(b []byte) (Input, error) {
	if len(b) < ReportSize {
		return Input{}, fmt.Errorf("%w: %d bytes", ErrShortReport, len(b))
	}
	if b[InOffsetReportID] != ReportIDInput {
		return Input{}, fmt.Errorf("%w: report id 0x%02x", ErrUnrecognizedReportType, b[InOffsetReportID])
	}
	if b[InOffsetMarker] != InputMarker {
		return Input{}, fmt.Errorf("%w: marker 0x%02x", ErrUnrecognizedReportType, b[InOffsetMarker])
	}
	le := binary.LittleEndian
	return Input{
		Timestamp: le.Uint32(b[InOffsetTimestamp:]),
		LX:        b[InOffsetLX],
		LY:        b[InOffsetLY],
		RX:        b[InOffsetRX],
		RY:        b[InOffsetRY],
		L2:        b[InOffsetL2],
		R2:        b[InOffsetR2],
		Buttons:   le.Uint16(b[InOffsetButtons:]),
		Hat:       b[InOffsetHat] & HatMask,
		Paddles:   b[InOffsetHat] &^ HatMask,
		Battery:   b[InOffsetBattery],
		GyroPitch: int16(le.Uint16(b[InOffsetGyro:])),
		GyroYaw:   int16(le.Uint16(b[InOffsetGyro+2:])),
		GyroRoll:  int16(le.Uint16(b[InOffsetGyro+4:])),
		AccelX:    int16(le.Uint16(b[InOffsetAccel:])),
		AccelY:    int16(le.Uint16(b[InOffsetAccel+2:])),
		AccelZ:    int16(le.Uint16(b[InOffsetAccel+4:])),
	}, nil
}

// EncodeInput builds the input report for in. Reserved bytes are zero.
func EncodeInput(in Input) []byte {
	b := make([]byte, ReportSize)
	le := binary.LittleEndian
	b[InOffsetReportID] = ReportIDInput
	b[InOffsetMarker] = InputMarker
	le.PutUint32(b[InOffsetTimestamp:], in.Timestamp)
	b[InOffsetLX] = in.LX
	b[InOffsetLY] = in.LY
	b[InOffsetRX] = in.RX
	b[InOffsetRY] = in.RY
	b[InOffsetL2] = in.L2
	b[InOffsetR2] = in.R2
	le.PutUint16(b[InOffsetButtons:], in.Buttons)
	b[InOffsetHat] = in.Hat&HatMask | in.Paddles&^HatMask
	b[InOffsetBattery] = in.Battery
	le.PutUint16(b[InOffsetGyro:], uint16(in.GyroPitch))
	le.PutUint16(b[InOffsetGyro+2:], uint16(in.GyroYaw))
	le.PutUint16(b[InOffsetGyro+4:], uint16(in.GyroRoll))
	le.PutUint16(b[InOffsetAccel:], uint16(in.AccelX))
	le.PutUint16(b[InOffsetAccel+2:], uint16(in.AccelY))
	le.PutUint16(b[InOffsetAccel+4:], uint16(in.AccelZ))
	return b
}

// Apply copies the decoded controls into s. Timing, counters and motion are
// owned by the polling loop and left untouched.
func (in Input) Apply(s *pad.State) {
	s.DpadUp = in.Hat == HatUp || in.Hat == HatUpRight || in.Hat == HatUpLeft
	s.DpadRight = in.Hat == HatRight || in.Hat == HatUpRight || in.Hat == HatDownRight
	s.DpadDown = in.Hat == HatDown || in.Hat == HatDownRight || in.Hat == HatDownLeft
	s.DpadLeft = in.Hat == HatLeft || in.Hat == HatUpLeft || in.Hat == HatDownLeft

	s.LX, s.LY = in.LX, in.LY
	s.RX, s.RY = in.RX, in.RY
	s.L2, s.R2 = in.L2, in.R2

	s.Cross = in.Buttons&ButtonA != 0
	s.Circle = in.Buttons&ButtonB != 0
	s.Square = in.Buttons&ButtonX != 0
	s.Triangle = in.Buttons&ButtonY != 0
	s.L1 = in.Buttons&ButtonLB != 0
	s.R1 = in.Buttons&ButtonRB != 0
	s.L3 = in.Buttons&ButtonLS != 0
	s.R3 = in.Buttons&ButtonRS != 0
	s.Share = in.Buttons&ButtonSelect != 0
	s.Options = in.Buttons&ButtonStart != 0
	s.PS = in.Buttons&ButtonHome != 0
	s.FnL = in.Buttons&ButtonC != 0
	s.FnR = in.Buttons&ButtonZ != 0
	s.Capture = in.Buttons&ButtonFn != 0

	s.SideL = in.Paddles&PaddleM4 != 0
	s.SideR = in.Paddles&PaddleM3 != 0
	s.BLP = in.Paddles&PaddleM2 != 0
	s.BRP = in.Paddles&PaddleM1 != 0

	s.Battery = min(in.Battery, BatteryMax)
}

// Motion returns the gyro and accel readings in the fusion sign convention:
// yaw, pitch and accel X are mirrored on this pad.
func (in Input) Motion() (yaw, pitch, roll, ax, ay, az int16) {
	return neg(in.GyroYaw), neg(in.GyroPitch), in.GyroRoll, neg(in.AccelX), in.AccelY, in.AccelZ
}

func neg(v int16) int16 {
	if v == -32768 {
		return 32767
	}
	return -v
}

// DeviceTimestamp folds the raw timestamp into the 16-bit DS4 counter.
func DeviceTimestamp(stamp uint32) uint16 {
	return uint16((stamp / 16) % 65535)
}
