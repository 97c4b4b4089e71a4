// Package ws streams live controller state to websocket clients.
package ws

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"

	"github.com/Alia5/padbridge/fusion"
	"github.com/Alia5/padbridge/pad"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// Frame is one state sample as sent to clients.
type Frame struct {
	Device  int      `json:"device" cbor:"1,keyasint"`
	Seq     uint64   `json:"seq" cbor:"2,keyasint"`
	Time    int64    `json:"time" cbor:"3,keyasint"` // unix ms
	Buttons []string `json:"buttons" cbor:"4,keyasint"`

	LX uint8 `json:"lx" cbor:"5,keyasint"`
	LY uint8 `json:"ly" cbor:"6,keyasint"`
	RX uint8 `json:"rx" cbor:"7,keyasint"`
	RY uint8 `json:"ry" cbor:"8,keyasint"`
	L2 uint8 `json:"l2" cbor:"9,keyasint"`
	R2 uint8 `json:"r2" cbor:"10,keyasint"`

	Gyro  [3]int16 `json:"gyro" cbor:"11,keyasint"`  // yaw, pitch, roll
	Accel [3]int16 `json:"accel" cbor:"12,keyasint"` // x, y, z

	Battery     uint8              `json:"battery" cbor:"13,keyasint"`
	Idle        bool               `json:"idle" cbor:"14,keyasint"`
	Elapsed     float64            `json:"elapsed" cbor:"15,keyasint"`
	Orientation fusion.Orientation `json:"orientation" cbor:"16,keyasint"`
}

// NewFrame snapshots s. Buttons lists the pressed controls by name.
func NewFrame(device int, seq uint64, s *pad.State) Frame {
	f := Frame{
		Device:      device,
		Seq:         seq,
		Time:        s.ReportTimestamp.UnixMilli(),
		Buttons:     []string{},
		LX:          s.LX,
		LY:          s.LY,
		RX:          s.RX,
		RY:          s.RY,
		L2:          s.L2,
		R2:          s.R2,
		Gyro:        [3]int16{s.GyroYaw, s.GyroPitch, s.GyroRoll},
		Accel:       [3]int16{s.AccelX, s.AccelY, s.AccelZ},
		Battery:     s.Battery,
		Idle:        s.Idle,
		Elapsed:     s.ElapsedTime,
		Orientation: s.Orientation,
	}
	for _, c := range pad.Controls() {
		if s.Pressed(c) {
			f.Buttons = append(f.Buttons, c.String())
		}
	}
	return f
}

// Encode serializes f in format.
func (f *Frame) Encode(format Format) ([]byte, error) {
	if format == FormatCBOR {
		return cbor.Marshal(f)
	}
	return json.Marshal(f)
}
