package poll

import (
	"github.com/Alia5/padbridge/fusion"
	"github.com/Alia5/padbridge/pad"
	"github.com/Alia5/padbridge/pad/vader"
)

// Frame carries the per-report values the loop needs beyond the canonical
// controls.
type Frame struct {
	Stamp  uint32
	Motion fusion.Sample
}

// Codec adapts a device's report format to the polling loop.
type Codec interface {
	ReportSize() int
	Clock() Clock
	// Decode updates the controls in s from report. On error s must be left
	// untouched.
	Decode(report []byte, s *pad.State) (Frame, error)
	// EncodeOutput fills the codec-owned buffers for h and returns them. It
	// must not allocate.
	EncodeOutput(h pad.Haptic) [][]byte
	// ResetReports returns the reports that hand output back to the device.
	ResetReports() [][]byte
}

// VaderCodec drives a Vader 4 Pro.
type VaderCodec struct {
	out   vader.Output
	slots [2][]byte
}

// NewVaderCodec returns a codec with preallocated output buffers.
func NewVaderCodec() *VaderCodec {
	c := &VaderCodec{}
	c.slots[0] = c.out[0][:]
	c.slots[1] = c.out[1][:]
	return c
}

func (c *VaderCodec) ReportSize() int { return vader.ReportSize }
func (c *VaderCodec) Clock() Clock    { return VaderClock }

func (c *VaderCodec) Decode(report []byte, s *pad.State) (Frame, error) {
	in, err := vader.DecodeInput(report)
	if err != nil {
		return Frame{}, err
	}
	in.Apply(s)
	yaw, pitch, roll, ax, ay, az := in.Motion()
	s.GyroYaw, s.GyroPitch, s.GyroRoll = yaw, pitch, roll
	s.AccelX, s.AccelY, s.AccelZ = ax, ay, az
	s.DeviceTimestamp = vader.DeviceTimestamp(in.Timestamp)
	return Frame{
		Stamp: in.Timestamp,
		Motion: fusion.Sample{
			Yaw: yaw, Pitch: pitch, Roll: roll,
			AccelX: ax, AccelY: ay, AccelZ: az,
		},
	}, nil
}

func (c *VaderCodec) EncodeOutput(h pad.Haptic) [][]byte {
	vader.EncodeOutput(&c.out, h)
	return c.slots[:]
}

func (c *VaderCodec) ResetReports() [][]byte {
	return vader.ResetReports()
}
