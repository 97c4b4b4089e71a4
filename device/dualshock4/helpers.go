package dualshock4

import "math"

// GyroDpsToRaw converts °/s into the wire representation.
func GyroDpsToRaw(dps float64) int16 {
	return clampI16(math.Round(dps * GyroCountsPerDps))
}

// GyroRawToDps converts a wire gyro value into °/s.
func GyroRawToDps(raw int16) float64 {
	return float64(raw) / GyroCountsPerDps
}

// AccelMS2ToRaw converts m/s² into the wire representation.
func AccelMS2ToRaw(ms2 float64) int16 {
	return clampI16(math.Round(ms2 * AccelCountsPerMS2))
}

// AccelRawToMS2 converts a wire accel value into m/s².
func AccelRawToMS2(raw int16) float64 {
	return float64(raw) / AccelCountsPerMS2
}

// AccelGToRaw converts a reading in g into the wire representation.
func AccelGToRaw(g float64) int16 {
	return AccelMS2ToRaw(g * StandardGravityMS2)
}

func clampI16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
