// Package fusion turns raw gyro and accelerometer samples into an orientation
// estimate.
package fusion

import (
	"math"
	"sync"
)

// Default sensor scales for pads reporting in the DualShock 4 convention.
const (
	DefaultGyroCountsPerDps = 16.0
	DefaultAccelCountsPerG  = 8192.0
	DefaultTau              = 0.5

	// MaxStep caps the integration step after long gaps between samples.
	MaxStep = 0.2
)

// Sample is one raw motion reading. The caller has already applied the
// device's axis sign convention.
type Sample struct {
	Yaw, Pitch, Roll       int16
	AccelX, AccelY, AccelZ int16
}

// Orientation is an Euler estimate in degrees.
type Orientation struct {
	Yaw   float64 `json:"yaw" cbor:"1,keyasint"`
	Pitch float64 `json:"pitch" cbor:"2,keyasint"`
	Roll  float64 `json:"roll" cbor:"3,keyasint"`
}

// Filter consumes samples with the elapsed time since the previous one.
type Filter interface {
	Feed(s Sample, elapsedSeconds float64) Orientation
	Reset()
}

// Complementary blends integrated gyro rates with accelerometer tilt.
// Yaw is gyro-only and drifts; Reset zeroes it.
type Complementary struct {
	Tau              float64
	GyroCountsPerDps float64
	AccelCountsPerG  float64

	mu          sync.Mutex
	initialized bool
	o           Orientation
}

// NewComplementary returns a filter with the default scales.
func NewComplementary(tau float64) *Complementary {
	return &Complementary{
		Tau:              tau,
		GyroCountsPerDps: DefaultGyroCountsPerDps,
		AccelCountsPerG:  DefaultAccelCountsPerG,
	}
}

func (c *Complementary) Feed(s Sample, dt float64) Orientation {
	c.mu.Lock()
	defer c.mu.Unlock()

	ax := float64(s.AccelX) / c.AccelCountsPerG
	ay := float64(s.AccelY) / c.AccelCountsPerG
	az := float64(s.AccelZ) / c.AccelCountsPerG
	rollAcc, pitchAcc := tilt(ax, ay, az)

	if !c.initialized {
		c.o = Orientation{Roll: rollAcc, Pitch: pitchAcc}
		c.initialized = true
		return c.o
	}

	if dt > MaxStep {
		dt = MaxStep
	}
	if dt < 0 {
		dt = 0
	}

	yawRate := float64(s.Yaw) / c.GyroCountsPerDps
	pitchRate := float64(s.Pitch) / c.GyroCountsPerDps
	rollRate := float64(s.Roll) / c.GyroCountsPerDps

	tau := math.Max(1e-3, c.Tau)
	alpha := tau / (tau + dt)
	if dt <= 0 {
		alpha = 1.0
	}

	c.o.Pitch = alpha*(c.o.Pitch+pitchRate*dt) + (1.0-alpha)*pitchAcc
	c.o.Roll = alpha*(c.o.Roll+rollRate*dt) + (1.0-alpha)*rollAcc
	c.o.Yaw = wrap(c.o.Yaw + yawRate*dt)
	return c.o
}

// Reset drops the estimate; the next sample re-seeds it from the accelerometer.
func (c *Complementary) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = false
	c.o = Orientation{}
}

// Current returns the last estimate.
func (c *Complementary) Current() Orientation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.o
}

// Gravity points along +Y with the pad lying flat.
func tilt(ax, ay, az float64) (roll, pitch float64) {
	roll = math.Atan2(-ax, ay) * 180.0 / math.Pi
	pitch = math.Atan2(az, math.Sqrt(ax*ax+ay*ay)) * 180.0 / math.Pi
	return
}

func wrap(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}
