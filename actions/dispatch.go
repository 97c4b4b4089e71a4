package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Alia5/padbridge/pad"
)

var ErrUnknownProfile = errors.New("unknown profile")

// DispatcherOptions configures a Dispatcher. Only Table is required.
type DispatcherOptions struct {
	Table *Table

	// Profiles restricts which actions each device evaluates. A device whose
	// profile is not listed evaluates the whole catalog.
	Profiles       Profiles
	DefaultProfile string

	Host   Host
	Keys   KeySender
	Events EventSink
	// Launch starts programs; defaults to Launch.
	Launch func(path string) error
	Logger *slog.Logger
}

type enabledCache struct {
	catalog *Catalog
	profile string
	indices []int
}

type missingKey struct {
	device int
	name   string
}

// Dispatcher evaluates action chords against published controller state
// and runs the actions that fire.
type Dispatcher struct {
	table  *Table
	host   Host
	keys   KeySender
	events EventSink
	launch func(string) error
	logger *slog.Logger

	mu             sync.Mutex
	profiles       Profiles
	defaultProfile string
	deviceProfile  [MaxDevices]string
	enabled        [MaxDevices]enabledCache
	missing        map[missingKey]struct{}

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher over o.Table.
func NewDispatcher(o DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		table:          o.Table,
		host:           o.Host,
		keys:           o.Keys,
		events:         o.Events,
		launch:         o.Launch,
		logger:         o.Logger,
		profiles:       o.Profiles,
		defaultProfile: o.DefaultProfile,
		missing:        map[missingKey]struct{}{},
	}
	if d.events == nil {
		d.events = nopSink{}
	}
	if d.launch == nil {
		d.launch = Launch
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Run processes states until the channel closes or ctx ends.
func (d *Dispatcher) Run(ctx context.Context, device int, states <-chan pad.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			d.Process(ctx, device, &s)
		}
	}
}

// Process evaluates one published state and returns the number of actions
// fired. Evaluation is skipped entirely when the trigger table cannot be
// initialized.
func (d *Dispatcher) Process(ctx context.Context, device int, s *pad.State) int {
	if device < 0 || device >= MaxDevices {
		return 0
	}
	if !d.table.EnsureInitialized(ctx) {
		d.logger.Debug("Action table not initialized, skipping special actions", "device", device)
		return 0
	}
	cat, gen, ok := d.table.Snapshot()
	if !ok {
		return 0
	}

	fired := 0
	for _, i := range d.enabledFor(device, cat) {
		a := cat.At(i)
		fire, ok := d.table.Latch(device, i, gen, a.Trigger.Active(s))
		if !ok {
			d.logger.Debug("Action table changed mid-cycle, skipping", "device", device)
			return fired
		}
		if !fire {
			continue
		}
		fired++
		d.logger.Info("Special action", "device", device, "action", a.Name, "kind", a.Kind)
		d.events.ActionFired(device, a.Name, a.Kind.String())
		if err := d.execute(ctx, device, a); err != nil {
			d.logger.Error("Special action failed", "device", device, "action", a.Name, "error", err)
		}
	}
	return fired
}

func (d *Dispatcher) enabledFor(device int, cat *Catalog) []int {
	d.mu.Lock()
	defer d.mu.Unlock()

	profile := d.deviceProfile[device]
	if profile == "" {
		profile = d.defaultProfile
	}
	c := &d.enabled[device]
	if c.catalog == cat && c.profile == profile && c.indices != nil {
		return c.indices
	}

	names, listed := d.profiles[profile]
	indices := make([]int, 0, cat.Len())
	if !listed {
		for i := 0; i < cat.Len(); i++ {
			indices = append(indices, i)
		}
	} else {
		seen := make(map[int]bool, len(names)+1)
		if i, ok := cat.Index(DefaultActionName); ok {
			seen[i] = true
			indices = append(indices, i)
		}
		for _, n := range names {
			i, ok := cat.Index(n)
			if !ok {
				d.logMissingLocked(device, n)
				continue
			}
			if !seen[i] {
				seen[i] = true
				indices = append(indices, i)
			}
		}
	}
	*c = enabledCache{catalog: cat, profile: profile, indices: indices}
	return indices
}

func (d *Dispatcher) logMissingLocked(device int, name string) {
	k := missingKey{device: device, name: NormalizeName(name)}
	if _, done := d.missing[k]; done {
		return
	}
	d.missing[k] = struct{}{}
	d.logger.Warn("Profile references unknown special action", "device", device, "action", name)
}

// ForceMissingLog makes the next evaluation report unknown action names
// again.
func (d *Dispatcher) ForceMissingLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.missing)
	d.enabled = [MaxDevices]enabledCache{}
}

// SetProfile switches the profile a device evaluates.
func (d *Dispatcher) SetProfile(device int, name string) error {
	if device < 0 || device >= MaxDevices {
		return fmt.Errorf("device %d out of range", device)
	}
	d.mu.Lock()
	if _, ok := d.profiles[name]; !ok && name != "" {
		d.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	d.deviceProfile[device] = name
	d.enabled[device] = enabledCache{}
	d.mu.Unlock()

	d.logger.Info("Profile loaded", "device", device, "profile", name)
	d.events.ProfileLoaded(device, name)
	return nil
}

// Profile returns the active profile of a device.
func (d *Dispatcher) Profile(device int) string {
	if device < 0 || device >= MaxDevices {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if p := d.deviceProfile[device]; p != "" {
		return p
	}
	return d.defaultProfile
}

// SetProfiles replaces the profile lists, e.g. after a catalog reload.
// Devices whose profile no longer exists fall back to the default profile.
func (d *Dispatcher) SetProfiles(p Profiles) {
	d.mu.Lock()
	var dropped []int
	for i, name := range d.deviceProfile {
		if name == "" {
			continue
		}
		if _, ok := p[name]; !ok {
			d.logger.Warn("Profile removed by reload, using default", "device", i, "profile", name, "default", d.defaultProfile)
			d.deviceProfile[i] = ""
			dropped = append(dropped, i)
		}
	}
	d.profiles = p
	d.enabled = [MaxDevices]enabledCache{}
	clear(d.missing)
	def := d.defaultProfile
	d.mu.Unlock()

	for _, i := range dropped {
		d.events.ProfileLoaded(i, def)
	}
}

// ResetDevice forgets per-device state when a slot is freed.
func (d *Dispatcher) ResetDevice(device int) {
	if device < 0 || device >= MaxDevices {
		return
	}
	d.table.ResetDevice(device)
	d.mu.Lock()
	d.deviceProfile[device] = ""
	d.enabled[device] = enabledCache{}
	d.mu.Unlock()
}

// Wait blocks until running macros and launches finish.
func (d *Dispatcher) Wait() { d.wg.Wait() }
