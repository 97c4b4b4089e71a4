package vader_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Alia5/padbridge/pad"
	"github.com/Alia5/padbridge/pad/vader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBytes(id, marker byte) []byte {
	b := make([]byte, vader.ReportSize)
	b[0], b[1] = id, marker
	return b
}

func validReport(r *rand.Rand) []byte {
	b := make([]byte, vader.ReportSize)
	r.Read(b[:vader.InputPayloadEnd])
	b[0] = vader.ReportIDInput
	b[1] = vader.InputMarker
	b[vader.InOffsetHat] = b[vader.InOffsetHat]&0xF0 | byte(r.Intn(vader.HatNeutral+1))
	return b
}

func TestDecodeEncodeIsIdentityOnPayload(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		b := validReport(r)
		in, err := vader.DecodeInput(b)
		require.NoError(t, err)
		out := vader.EncodeInput(in)
		require.Equal(t, b[:vader.InputPayloadEnd], out[:vader.InputPayloadEnd])
	}
}

func TestDecodeInputErrors(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		wantErr error
	}{
		{name: "short", buf: make([]byte, 10), wantErr: vader.ErrShortReport},
		{name: "empty", buf: nil, wantErr: vader.ErrShortReport},
		{name: "missing marker", buf: withBytes(vader.ReportIDInput, 0x00), wantErr: vader.ErrUnrecognizedReportType},
		{name: "wrong report id", buf: withBytes(0x01, vader.InputMarker), wantErr: vader.ErrUnrecognizedReportType},
		{name: "zeroed", buf: make([]byte, vader.ReportSize), wantErr: vader.ErrUnrecognizedReportType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vader.DecodeInput(tt.buf)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestDecodeDoesNotModifyInput(t *testing.T) {
	b := validReport(rand.New(rand.NewSource(1)))
	orig := append([]byte(nil), b...)
	_, err := vader.DecodeInput(b)
	require.NoError(t, err)
	assert.Equal(t, orig, b)
}

func TestApply(t *testing.T) {
	in := vader.Input{
		LX: 10, LY: 20, RX: 30, RY: 40,
		L2: 0, R2: 200,
		Buttons: vader.ButtonA | vader.ButtonStart | vader.ButtonHome | vader.ButtonFn,
		Hat:     vader.HatDownLeft,
		Paddles: vader.PaddleM1 | vader.PaddleM4,
		Battery: 250,
	}
	var s pad.State
	in.Apply(&s)

	assert.True(t, s.Cross)
	assert.False(t, s.Circle)
	assert.True(t, s.Options)
	assert.True(t, s.PS)
	assert.True(t, s.Capture)
	assert.True(t, s.DpadDown)
	assert.True(t, s.DpadLeft)
	assert.False(t, s.DpadUp)
	assert.False(t, s.DpadRight)
	assert.True(t, s.BRP)
	assert.True(t, s.SideL)
	assert.False(t, s.BLP)
	assert.False(t, s.Pressed(pad.L2))
	assert.True(t, s.Pressed(pad.R2))
	assert.Equal(t, uint8(10), s.LX)
	assert.Equal(t, uint8(40), s.RY)
	assert.Equal(t, uint8(vader.BatteryMax), s.Battery)
}

func TestApplyNeutralHat(t *testing.T) {
	var s pad.State
	s.DpadUp = true
	vader.Input{Hat: vader.HatNeutral}.Apply(&s)
	assert.False(t, s.DpadUp || s.DpadDown || s.DpadLeft || s.DpadRight)
}

func TestMotionSignConvention(t *testing.T) {
	in := vader.Input{GyroPitch: 100, GyroYaw: -200, GyroRoll: 300, AccelX: 5, AccelY: 6, AccelZ: -32768}
	yaw, pitch, roll, ax, ay, az := in.Motion()
	assert.Equal(t, int16(200), yaw)
	assert.Equal(t, int16(-100), pitch)
	assert.Equal(t, int16(300), roll)
	assert.Equal(t, int16(-5), ax)
	assert.Equal(t, int16(6), ay)
	assert.Equal(t, int16(-32768), az)
}

func TestDeviceTimestamp(t *testing.T) {
	assert.Equal(t, uint16(0), vader.DeviceTimestamp(15))
	assert.Equal(t, uint16(1), vader.DeviceTimestamp(16))
	assert.Equal(t, uint16(0), vader.DeviceTimestamp(16*65535))
}

func TestEncodeOutput(t *testing.T) {
	var o vader.Output
	o[0][31] = 0xAA
	vader.EncodeOutput(&o, pad.Haptic{RumbleHeavy: 0x80, RumbleLight: 0x40, Lightbar: pad.Color{R: 1, G: 2, B: 3}})

	assert.Equal(t, []byte{0x05, 0xE0, 1, 2, 3}, o[0][:5])
	assert.Equal(t, byte(0), o[0][31])
	assert.Equal(t, []byte{0x05, 0x0F, 0x80, 0x40, 0, 0}, o[1][:6])

	var h pad.Haptic
	require.NoError(t, vader.DecodeOutput(o[0][:], &h))
	require.NoError(t, vader.DecodeOutput(o[1][:], &h))
	assert.Equal(t, pad.Haptic{RumbleHeavy: 0x80, RumbleLight: 0x40, Lightbar: pad.Color{R: 1, G: 2, B: 3}}, h)
}

func TestEncodeOutputDoesNotAllocate(t *testing.T) {
	var o vader.Output
	h := pad.Haptic{RumbleHeavy: 1}
	allocs := testing.AllocsPerRun(100, func() { vader.EncodeOutput(&o, h) })
	assert.Zero(t, allocs)
}

func TestResetReports(t *testing.T) {
	reports := vader.ResetReports()
	require.Len(t, reports, 3)
	assert.Equal(t, []byte{0x05, 0x10, 0x01, 0x01, 0x01}, reports[0][:5])

	h := pad.Haptic{RumbleHeavy: 9, Lightbar: pad.Color{R: 9}}
	for _, r := range reports {
		assert.Len(t, r, vader.ReportSize)
		require.NoError(t, vader.DecodeOutput(r, &h))
	}
	assert.Equal(t, pad.Haptic{}, h)
}
