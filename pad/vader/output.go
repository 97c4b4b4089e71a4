package vader

import (
	"fmt"

	"github.com/Alia5/padbridge/pad"
)

// Output holds the two reports needed to apply a haptic state: lightbar first,
// then rumble.
type Output [2][ReportSize]byte

// EncodeOutput fills o from h. It does not allocate.
func EncodeOutput(o *Output, h pad.Haptic) {
	EncodeLightbar(o[0][:], h.Lightbar)
	EncodeRumble(o[1][:], h.RumbleHeavy, h.RumbleLight)
}

// EncodeLightbar writes a lightbar report into dst (at least ReportSize bytes).
func EncodeLightbar(dst []byte, c pad.Color) {
	clear(dst[:ReportSize])
	dst[0] = ReportIDOutput
	dst[1] = OutCmdLightbar
	dst[2] = c.R
	dst[3] = c.G
	dst[4] = c.B
}

// EncodeRumble writes a rumble report into dst (at least ReportSize bytes).
// Trigger motors are not driven.
func EncodeRumble(dst []byte, heavy, light uint8) {
	clear(dst[:ReportSize])
	dst[0] = ReportIDOutput
	dst[1] = OutCmdRumble
	dst[2] = heavy
	dst[3] = light
}

// EncodeStop writes the report that hands output control back to the pad.
func EncodeStop(dst []byte) {
	clear(dst[:ReportSize])
	dst[0] = ReportIDOutput
	dst[1] = OutCmdStop
	dst[2] = 0x01
	dst[3] = 0x01
	dst[4] = 0x01
}

// ResetReports returns the best-effort sequence sent when a device goes away:
// stop, lightbar off, rumble off.
func ResetReports() [][]byte {
	out := make([][]byte, 3)
	for i := range out {
		out[i] = make([]byte, ReportSize)
	}
	EncodeStop(out[0])
	EncodeLightbar(out[1], pad.Color{})
	EncodeRumble(out[2], 0, 0)
	return out
}

// DecodeOutput applies one output report to h. Used for tracing and by
// emulated devices.
func DecodeOutput(b []byte, h *pad.Haptic) error {
	if len(b) < ReportSize {
		return fmt.Errorf("%w: %d bytes", ErrShortReport, len(b))
	}
	if b[0] != ReportIDOutput {
		return fmt.Errorf("%w: report id 0x%02x", ErrUnrecognizedReportType, b[0])
	}
	switch b[1] {
	case OutCmdLightbar:
		h.Lightbar = pad.Color{R: b[2], G: b[3], B: b[4]}
	case OutCmdRumble:
		h.RumbleHeavy, h.RumbleLight = b[2], b[3]
	case OutCmdStop:
		*h = pad.Haptic{}
	default:
		return fmt.Errorf("%w: command 0x%02x", ErrUnrecognizedReportType, b[1])
	}
	return nil
}
