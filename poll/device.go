// Package poll runs one input goroutine per physical controller: read a
// report, decode it, update timing and motion, publish the canonical state
// and write pending haptic output.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alia5/padbridge/fusion"
	"github.com/Alia5/padbridge/haptic"
	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/pad"
	"github.com/Alia5/padbridge/transport"
)

// Phase is the lifecycle position of a device's input goroutine.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseReading
	PhaseDecoding
	PhaseUpdating
	PhaseWriting
	PhaseExiting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReading:
		return "reading"
	case PhaseDecoding:
		return "decoding"
	case PhaseUpdating:
		return "updating"
	case PhaseWriting:
		return "writing"
	case PhaseExiting:
		return "exiting"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

const (
	// latencyWindow is the number of cycles averaged by Stats.Latency.
	latencyWindow = 20

	DefaultIdleDeadzone uint8 = 10
)

// ErrStopped is passed to removal handlers when a device exits because Stop
// was called rather than because its transport failed.
var ErrStopped = errors.New("device stopped")

// Options configures a Device.
type Options struct {
	Name  string
	Codec Codec
	// Filter is fed motion once a previous device timestamp is known. Nil
	// disables orientation tracking.
	Filter fusion.Filter

	// IdleTimeout marks the device idle after this long without input. Zero
	// disables idle tracking.
	IdleTimeout  time.Duration
	IdleDeadzone uint8
	// MaxFallbackDelta clamps the wall-clock delta used when the device
	// timestamp does not advance. Zero leaves it unclamped.
	MaxFallbackDelta time.Duration

	Logger *slog.Logger
	Raw    log.RawLogger
	Now    func() time.Time

	// OnRemoved runs exactly once after the goroutine has stopped reading and
	// reset the device output.
	OnRemoved func(d *Device, err error)
}

// Stats is a point-in-time view of a device's loop.
type Stats struct {
	Phase        Phase
	Latency      time.Duration
	Idle         bool
	Packets      uint32
	DecodeErrors uint64
	WriteErrors  uint64
}

// Device owns one physical controller. All exported methods are safe for
// concurrent use; Run must be called exactly once.
type Device struct {
	index  int
	name   string
	t      transport.Transport
	codec  Codec
	filter fusion.Filter
	logger *slog.Logger
	raw    log.RawLogger
	now    func() time.Time

	idleTimeout  time.Duration
	idleDeadzone uint8

	exitRequested atomic.Bool
	recalibrate   atomic.Bool
	phase         atomic.Int32
	done          chan struct{}
	removeOnce    sync.Once
	onRemoved     func(*Device, error)

	subsMu     sync.RWMutex
	subs       map[uint64]*Subscription
	nextSubID  uint64
	subsClosed bool

	hapMu   sync.Mutex
	desired pad.Haptic

	statsMu sync.Mutex
	stats   Stats
	last    pad.State

	// Owned by the input goroutine.
	prev       pad.State
	timing     Timing
	machine    haptic.Machine
	sent       pad.Haptic
	lastActive time.Time
	idle       bool
	latency    [latencyWindow]time.Duration
	latencyN   int
	latencySum time.Duration
	latencyPos int
}

// NewDevice prepares a device at registry slot index. Reading starts with Run.
func NewDevice(index int, t transport.Transport, opts Options) *Device {
	if opts.Codec == nil {
		opts.Codec = NewVaderCodec()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Raw == nil {
		opts.Raw = log.NewRaw(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleDeadzone == 0 {
		opts.IdleDeadzone = DefaultIdleDeadzone
	}
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("pad%d", index)
	}
	d := &Device{
		index:        index,
		name:         name,
		t:            t,
		codec:        opts.Codec,
		filter:       opts.Filter,
		logger:       opts.Logger.With("device", index, "name", name),
		raw:          opts.Raw,
		now:          opts.Now,
		idleTimeout:  opts.IdleTimeout,
		idleDeadzone: opts.IdleDeadzone,
		done:         make(chan struct{}),
		onRemoved:    opts.OnRemoved,
		subs:         map[uint64]*Subscription{},
		prev:         pad.Neutral(),
		timing:       Timing{Clock: opts.Codec.Clock(), MaxFallbackDelta: opts.MaxFallbackDelta},
	}
	d.last = d.prev
	return d
}

// Index returns the registry slot of the device.
func (d *Device) Index() int { return d.index }

// Name returns the display name of the device.
func (d *Device) Name() string { return d.name }

// Done is closed once Run has returned.
func (d *Device) Done() <-chan struct{} { return d.done }

// Phase returns the current loop phase.
func (d *Device) Phase() Phase { return Phase(d.phase.Load()) }

// Stop asks the loop to exit. A blocked read is interrupted, or the transport
// is closed when it cannot be interrupted.
func (d *Device) Stop() {
	if d.exitRequested.Swap(true) {
		return
	}
	if in, ok := d.t.(transport.Interrupter); ok {
		if err := in.Interrupt(); err == nil {
			return
		}
	}
	_ = d.t.Close()
}

// SetHaptic replaces the desired output. It is applied on the next cycle.
func (d *Device) SetHaptic(h pad.Haptic) {
	d.hapMu.Lock()
	d.desired = h
	d.hapMu.Unlock()
}

// SetRumble updates only the motors of the desired output.
func (d *Device) SetRumble(heavy, light uint8) {
	d.hapMu.Lock()
	d.desired.RumbleHeavy, d.desired.RumbleLight = heavy, light
	d.hapMu.Unlock()
}

// SetLightbar updates only the lightbar colour of the desired output.
func (d *Device) SetLightbar(c pad.Color) {
	d.hapMu.Lock()
	d.desired.Lightbar = c
	d.hapMu.Unlock()
}

// Haptic returns the desired output.
func (d *Device) Haptic() pad.Haptic {
	d.hapMu.Lock()
	defer d.hapMu.Unlock()
	return d.desired
}

// Recalibrate resets the orientation filter on the next cycle.
func (d *Device) Recalibrate() { d.recalibrate.Store(true) }

// Last returns the most recently published state.
func (d *Device) Last() pad.State {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.last
}

// Stats returns loop statistics.
func (d *Device) Stats() Stats {
	d.statsMu.Lock()
	s := d.stats
	d.statsMu.Unlock()
	s.Phase = d.Phase()
	return s
}

// Run reads until Stop is called, ctx is done or the transport fails.
func (d *Device) Run(ctx context.Context) {
	var exitErr error = ErrStopped
	defer func() {
		if r := recover(); r != nil {
			exitErr = fmt.Errorf("input loop panic: %v", r)
			d.logger.Error("input loop panicked", "error", exitErr)
		}
		d.exit(exitErr)
		close(d.done)
	}()

	stopOnCancel := context.AfterFunc(ctx, d.Stop)
	defer stopOnCancel()

	d.setPhase(PhaseIdle)
	d.logger.Info("input loop started")

	buf := make([]byte, d.codec.ReportSize())
	last := d.now()
	d.lastActive = last

	for {
		if d.exitRequested.Load() {
			return
		}

		d.setPhase(PhaseReading)
		n, err := d.t.Read(buf)
		if d.exitRequested.Load() {
			return
		}
		if err != nil {
			exitErr = fmt.Errorf("read: %w", err)
			d.logger.Warn("device read failed", "error", err)
			return
		}

		now := d.now()
		wall := now.Sub(last)
		last = now
		d.recordLatency(wall)

		d.setPhase(PhaseDecoding)
		d.raw.Log(true, buf[:n])
		d.cycle(buf[:n], now, wall)

		d.setPhase(PhaseWriting)
		d.writeOutput(now)
	}
}

func (d *Device) cycle(report []byte, now time.Time, wall time.Duration) {
	cur := d.prev
	frame, err := d.codec.Decode(report, &cur)
	if err != nil {
		d.statsMu.Lock()
		d.stats.DecodeErrors++
		d.statsMu.Unlock()
		d.logger.Log(context.Background(), log.LevelTrace, "skipping report", "error", err)
		return
	}

	d.setPhase(PhaseUpdating)
	synced := d.timing.Synced()
	elapsed, total := d.timing.Advance(frame.Stamp, wall)
	cur.PacketCounter = d.prev.PacketCounter + 1
	cur.ReportTimestamp = now.UTC()
	cur.ElapsedTime = elapsed
	cur.TotalMicroseconds = total

	if d.filter != nil {
		if d.recalibrate.Swap(false) {
			d.filter.Reset()
			d.logger.Info("motion filter reset")
		}
		// A zero elapsed time carries no motion to integrate.
		if synced && elapsed > 0 {
			cur.Orientation = d.filter.Feed(frame.Motion, elapsed)
		}
	}

	cur.Idle = d.updateIdle(&cur, now)

	d.prev = cur
	d.statsMu.Lock()
	d.last = cur
	d.stats.Packets = cur.PacketCounter
	d.stats.Idle = cur.Idle
	d.statsMu.Unlock()

	d.publish(cur)
}

func (d *Device) updateIdle(s *pad.State, now time.Time) bool {
	if d.idleTimeout <= 0 {
		d.lastActive = now
		return false
	}
	if s.AnyButton() || !s.SticksNear(d.idleDeadzone) {
		d.lastActive = now
	}
	idle := now.Sub(d.lastActive) >= d.idleTimeout
	if idle != d.idle {
		d.idle = idle
		if idle {
			d.logger.Info("device idle", "after", d.idleTimeout)
		} else {
			d.logger.Info("device active")
		}
	}
	return idle
}

func (d *Device) writeOutput(now time.Time) {
	d.hapMu.Lock()
	current := d.desired
	d.desired.Dirty = false
	d.hapMu.Unlock()

	_, write := d.machine.Prepare(current, d.sent, now)
	if !write {
		return
	}
	for _, report := range d.codec.EncodeOutput(current) {
		d.raw.Log(false, report)
		if _, err := d.t.Write(report); err != nil {
			d.statsMu.Lock()
			d.stats.WriteErrors++
			d.statsMu.Unlock()
			d.logger.Debug("output write failed", "error", err)
		}
	}
	current.Dirty = false
	d.sent = current
}

func (d *Device) recordLatency(v time.Duration) {
	if d.latencyN == latencyWindow {
		d.latencySum -= d.latency[d.latencyPos]
	} else {
		d.latencyN++
	}
	d.latency[d.latencyPos] = v
	d.latencySum += v
	d.latencyPos = (d.latencyPos + 1) % latencyWindow

	d.statsMu.Lock()
	d.stats.Latency = d.latencySum / time.Duration(d.latencyN)
	d.statsMu.Unlock()
}

func (d *Device) exit(err error) {
	d.setPhase(PhaseExiting)
	for _, report := range d.codec.ResetReports() {
		d.raw.Log(false, report)
		if _, werr := d.t.Write(report); werr != nil {
			d.logger.Debug("output reset failed", "error", werr)
			break
		}
	}
	d.closeSubscriptions()
	_ = d.t.Close()

	if errors.Is(err, ErrStopped) {
		d.logger.Info("input loop stopped")
	} else {
		d.logger.Warn("device removed", "error", err)
	}
	d.removeOnce.Do(func() {
		if d.onRemoved != nil {
			d.onRemoved(d, err)
		}
	})
}

func (d *Device) setPhase(p Phase) { d.phase.Store(int32(p)) }
