package actions

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Alia5/padbridge/pad"
)

// Host is the part of the bridge actions act on.
type Host interface {
	Disconnect(device int) error
	SetLightbar(device int, c pad.Color)
	Recalibrate(device int)
	// Battery returns the charge in percent.
	Battery(device int) (level uint8, ok bool)
}

// EventSink is told about fired actions and profile switches.
type EventSink interface {
	ActionFired(device int, name, kind string)
	ProfileLoaded(device int, profile string)
}

type nopSink struct{}

func (nopSink) ActionFired(int, string, string) {}
func (nopSink) ProfileLoaded(int, string)       {}

var ErrNoKeySender = errors.New("no key sender configured")

// Launch starts a program detached from the bridge and reaps it.
func Launch(path string) error {
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// BatterySettings is the payload of a battery-check action:
// "|notify|light|lowR|lowG|lowB|highR|highG|highB".
type BatterySettings struct {
	Notify bool
	Light  bool
	Low    pad.Color
	High   pad.Color
}

// DefaultBatterySettings fades the lightbar from red when empty to green
// when full.
var DefaultBatterySettings = BatterySettings{
	Notify: true,
	Light:  true,
	Low:    pad.Color{R: 255},
	High:   pad.Color{G: 255},
}

// ParseBattery decodes a battery-check payload. Empty uses the defaults.
func ParseBattery(s string) (BatterySettings, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "|")
	if s == "" {
		return DefaultBatterySettings, nil
	}
	f := strings.Split(s, "|")
	if len(f) != 8 {
		return BatterySettings{}, fmt.Errorf("%w: battery payload needs 8 fields, got %d", ErrInvalidAction, len(f))
	}
	var out BatterySettings
	var err error
	if out.Notify, err = strconv.ParseBool(strings.TrimSpace(f[0])); err != nil {
		return BatterySettings{}, fmt.Errorf("%w: notify: %w", ErrInvalidAction, err)
	}
	if out.Light, err = strconv.ParseBool(strings.TrimSpace(f[1])); err != nil {
		return BatterySettings{}, fmt.Errorf("%w: light: %w", ErrInvalidAction, err)
	}
	var rgb [6]uint8
	for i := range rgb {
		n, err := strconv.ParseUint(strings.TrimSpace(f[2+i]), 10, 8)
		if err != nil {
			return BatterySettings{}, fmt.Errorf("%w: colour component %q", ErrInvalidAction, f[2+i])
		}
		rgb[i] = uint8(n)
	}
	out.Low = pad.Color{R: rgb[0], G: rgb[1], B: rgb[2]}
	out.High = pad.Color{R: rgb[3], G: rgb[4], B: rgb[5]}
	return out, nil
}

// Color returns the lightbar colour for a charge level in percent.
func (b BatterySettings) Color(level uint8) pad.Color {
	return b.Low.Lerp(b.High, float64(level)/100)
}

// MultiActionTap returns the tap segment of a multi-action payload
// "tap,hold,double".
func MultiActionTap(s string) string {
	tap, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(tap)
}

// Validate checks the kind-specific payload of d.
func Validate(d Descriptor) error {
	switch d.Kind {
	case KindMacro:
		_, err := ParseMacro(d.Details)
		return err
	case KindMultiAction:
		if tap := MultiActionTap(d.Details); tap != "" {
			_, err := ParseMacro(tap)
			return err
		}
		return nil
	case KindSendKey:
		n, err := strconv.ParseUint(strings.TrimSpace(d.Details), 10, 16)
		if err != nil || n >= MacroWaitBase {
			return fmt.Errorf("%w: key code %q", ErrInvalidAction, d.Details)
		}
		return nil
	case KindLaunchProgram, KindLoadProfile:
		if strings.TrimSpace(d.Details) == "" {
			return fmt.Errorf("%w: %s needs details", ErrInvalidAction, d.Kind)
		}
		return nil
	case KindBatteryCheck:
		_, err := ParseBattery(d.Details)
		return err
	case KindDisconnect, KindCalibration:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownKind, d.Kind)
}

// execute runs d for device. Macros and programs run on their own
// goroutine so the caller never blocks on them.
func (d *Dispatcher) execute(ctx context.Context, device int, a Descriptor) error {
	switch a.Kind {
	case KindMacro:
		return d.runMacro(ctx, device, a, a.Details)
	case KindMultiAction:
		tap := MultiActionTap(a.Details)
		if tap == "" {
			return nil
		}
		return d.runMacro(ctx, device, a, tap)
	case KindSendKey:
		if d.keys == nil {
			return ErrNoKeySender
		}
		return SendKey(d.keys, a.Details)
	case KindLaunchProgram:
		path := strings.TrimSpace(a.Details)
		d.async(func() {
			if err := d.launch(path); err != nil {
				d.logger.Error("failed to launch program", "device", device, "action", a.Name, "path", path, "error", err)
			}
		})
		return nil
	case KindLoadProfile:
		return d.SetProfile(device, strings.TrimSpace(a.Details))
	case KindDisconnect:
		if d.host == nil {
			return nil
		}
		return d.host.Disconnect(device)
	case KindBatteryCheck:
		return d.batteryCheck(device, a)
	case KindCalibration:
		if d.host != nil {
			d.host.Recalibrate(device)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownKind, a.Kind)
}

func (d *Dispatcher) runMacro(ctx context.Context, device int, a Descriptor, payload string) error {
	if d.keys == nil {
		return ErrNoKeySender
	}
	steps, err := ParseMacro(payload)
	if err != nil {
		return err
	}
	d.async(func() {
		if err := RunMacro(ctx, d.keys, steps); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("macro failed", "device", device, "action", a.Name, "error", err)
		}
	})
	return nil
}

func (d *Dispatcher) batteryCheck(device int, a Descriptor) error {
	settings, err := ParseBattery(a.Details)
	if err != nil {
		return err
	}
	if d.host == nil {
		return nil
	}
	level, ok := d.host.Battery(device)
	if !ok {
		return nil
	}
	if settings.Notify {
		d.logger.Info("Battery level", "device", device, "level", level)
	}
	if settings.Light {
		d.host.SetLightbar(device, settings.Color(level))
	}
	return nil
}

func (d *Dispatcher) async(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}
