// Package dualshock4 holds the VIIPER wire messages of a virtual DualShock 4
// and the conversion from the canonical pad state.
package dualshock4

import (
	"encoding/binary"
	"io"
)

const (
	InputSize  = 31
	OutputSize = 7
)

// InputState is one client-to-device message. Sticks are signed around 0;
// gyro and accel use the fixed-point scales GyroCountsPerDps and
// AccelCountsPerMS2.
type InputState struct {
	LX, LY  int8
	RX, RY  int8
	Buttons uint16
	DPad    uint8
	L2, R2  uint8

	Touch1X, Touch1Y uint16
	Touch1Active     bool
	Touch2X, Touch2Y uint16
	Touch2Active     bool

	GyroX, GyroY, GyroZ    int16
	AccelX, AccelY, AccelZ int16
}

func (s *InputState) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, InputSize))
}

// AppendBinary appends the wire form of s to b.
func (s *InputState) AppendBinary(b []byte) ([]byte, error) {
	le := binary.LittleEndian
	b = append(b, uint8(s.LX), uint8(s.LY), uint8(s.RX), uint8(s.RY))
	b = le.AppendUint16(b, s.Buttons)
	b = append(b, s.DPad, s.L2, s.R2)
	b = le.AppendUint16(b, s.Touch1X)
	b = le.AppendUint16(b, s.Touch1Y)
	b = append(b, boolByte(s.Touch1Active))
	b = le.AppendUint16(b, s.Touch2X)
	b = le.AppendUint16(b, s.Touch2Y)
	b = append(b, boolByte(s.Touch2Active))
	for _, v := range [...]int16{s.GyroX, s.GyroY, s.GyroZ, s.AccelX, s.AccelY, s.AccelZ} {
		b = le.AppendUint16(b, uint16(v))
	}
	return b, nil
}

func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputSize {
		return io.ErrUnexpectedEOF
	}
	le := binary.LittleEndian
	i16 := func(off int) int16 { return int16(le.Uint16(data[off:])) }
	*s = InputState{
		LX: int8(data[0]), LY: int8(data[1]), RX: int8(data[2]), RY: int8(data[3]),
		Buttons: le.Uint16(data[4:]),
		DPad:    data[6],
		L2:      data[7],
		R2:      data[8],

		Touch1X: le.Uint16(data[9:]), Touch1Y: le.Uint16(data[11:]), Touch1Active: data[13] != 0,
		Touch2X: le.Uint16(data[14:]), Touch2Y: le.Uint16(data[16:]), Touch2Active: data[18] != 0,

		GyroX: i16(19), GyroY: i16(21), GyroZ: i16(23),
		AccelX: i16(25), AccelY: i16(27), AccelZ: i16(29),
	}
	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// OutputState is the feedback a game sends to the virtual pad.
type OutputState struct {
	RumbleSmall uint8
	RumbleLarge uint8
	LedRed      uint8
	LedGreen    uint8
	LedBlue     uint8
	FlashOn     uint8 // 2.5ms units
	FlashOff    uint8 // 2.5ms units
}

func (f *OutputState) MarshalBinary() ([]byte, error) {
	return []byte{f.RumbleSmall, f.RumbleLarge, f.LedRed, f.LedGreen, f.LedBlue, f.FlashOn, f.FlashOff}, nil
}

func (f *OutputState) UnmarshalBinary(data []byte) error {
	if len(data) < OutputSize {
		return io.ErrUnexpectedEOF
	}
	*f = OutputState{
		RumbleSmall: data[0],
		RumbleLarge: data[1],
		LedRed:      data[2],
		LedGreen:    data[3],
		LedBlue:     data[4],
		FlashOn:     data[5],
		FlashOff:    data[6],
	}
	return nil
}
