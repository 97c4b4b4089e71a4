package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Alia5/padbridge/actions"
	"github.com/Alia5/padbridge/fusion"
	"github.com/Alia5/padbridge/internal/events"
	"github.com/Alia5/padbridge/internal/server/ws"
	"github.com/Alia5/padbridge/pad"
	"github.com/Alia5/padbridge/poll"
	"github.com/Alia5/padbridge/transport"
	"github.com/Alia5/padbridge/virtualpad"
)

// errNoDevice is returned by host operations on an empty slot.
var errNoDevice = errors.New("no device in slot")

// serviceConfig wires the bridge runtime. Everything but Table is optional.
type serviceConfig struct {
	// Poll is copied for every device; codecs and filters hold per-device
	// state and come from NewFilter and the poll default codec.
	Poll      poll.Options
	NewFilter func() fusion.Filter
	Table     *actions.Table

	Profiles       actions.Profiles
	DefaultProfile string
	Keys           actions.KeySender
	Launch         func(string) error

	// NewDriver creates the virtual pad of a slot; nil runs without one.
	NewDriver func(device int) virtualpad.Driver
	Events    events.Publisher
	Hub       *ws.Hub
	Logger    *slog.Logger
}

// service connects physical devices, their virtual pads, the action
// dispatcher and the event outputs.
type service struct {
	cfg        serviceConfig
	registry   *poll.Registry
	dispatcher *actions.Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	owners  [poll.MaxDevices]*poll.Device
	drivers [poll.MaxDevices]virtualpad.Driver
	paths   map[string]int

	// early holds devices that exited before attach finished.
	early map[*poll.Device]struct{}

	wg sync.WaitGroup
}

var _ actions.Host = (*service)(nil)

func newService(cfg serviceConfig) *service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	s := &service{
		cfg:      cfg,
		registry: poll.NewRegistry(cfg.Logger),
		logger:   cfg.Logger,
		paths:    map[string]int{},
		early:    map[*poll.Device]struct{}{},
	}
	s.dispatcher = actions.NewDispatcher(actions.DispatcherOptions{
		Table:          cfg.Table,
		Profiles:       cfg.Profiles,
		DefaultProfile: cfg.DefaultProfile,
		Host:           s,
		Keys:           cfg.Keys,
		Events:         cfg.Events,
		Launch:         cfg.Launch,
		Logger:         cfg.Logger,
	})
	s.registry.OnRemoved(s.removed)
	return s
}

// attach registers t, connects its virtual pad and starts the consumers.
// path identifies the device for rescans and may be empty.
func (s *service) attach(ctx context.Context, t transport.Transport, path string, info events.DeviceInfo) (*poll.Device, error) {
	opts := s.cfg.Poll
	opts.Name = info.Name
	if s.cfg.NewFilter != nil {
		opts.Filter = s.cfg.NewFilter()
	}
	d, err := s.registry.Add(ctx, t, opts)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	idx := d.Index()

	// Subscribe before anything can block so no early state is lost.
	forward := d.Subscribe(poll.DefaultQueueSize)
	dispatch := d.Subscribe(poll.DefaultQueueSize)

	var drv virtualpad.Driver
	if s.cfg.NewDriver != nil {
		drv = s.cfg.NewDriver(idx)
		if err := drv.Connect(ctx); err != nil {
			s.logger.Warn("Virtual pad unavailable, continuing without it", "device", idx, "error", err)
			drv = nil
		} else {
			drv.OnFeedback(d.SetHaptic)
			if v, ok := drv.(*virtualpad.Viiper); ok && v.Device() != nil {
				info.Virtual = v.Device().DevId
			}
		}
	}

	s.mu.Lock()
	if _, gone := s.early[d]; gone {
		delete(s.early, d)
		s.mu.Unlock()
		if drv != nil {
			_ = drv.Disconnect()
		}
		return d, nil
	}
	s.owners[idx] = d
	s.drivers[idx] = drv
	if path != "" {
		s.paths[path] = idx
	}
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.forward(idx, drv, forward)
	}()
	go func() {
		defer s.wg.Done()
		s.dispatcher.Run(ctx, idx, dispatch.C)
		d.Unsubscribe(dispatch)
	}()

	s.cfg.Events.DeviceConnected(idx, info)
	return d, nil
}

func (s *service) forward(idx int, drv virtualpad.Driver, sub *poll.Subscription) {
	for st := range sub.C {
		if drv != nil {
			if err := drv.Submit(st); err != nil {
				s.logger.Debug("Virtual pad submit failed", "device", idx, "error", err)
			}
		}
		if s.cfg.Hub != nil {
			s.cfg.Hub.Publish(idx, st)
		}
	}
}

func (s *service) removed(d *poll.Device, err error) {
	idx := d.Index()
	s.mu.Lock()
	if s.owners[idx] != d {
		s.early[d] = struct{}{}
		s.mu.Unlock()
		return
	}
	drv := s.drivers[idx]
	s.owners[idx], s.drivers[idx] = nil, nil
	for p, i := range s.paths {
		if i == idx {
			delete(s.paths, p)
		}
	}
	s.mu.Unlock()

	if drv != nil {
		if derr := drv.Disconnect(); derr != nil {
			s.logger.Warn("Failed to remove virtual pad", "device", idx, "error", derr)
		}
	}
	s.dispatcher.ResetDevice(idx)
	if s.cfg.Hub != nil {
		s.cfg.Hub.Forget(idx)
	}
	if errors.Is(err, poll.ErrStopped) {
		err = nil
	}
	s.cfg.Events.DeviceRemoved(idx, err)
}

// attached reports whether path is already in use.
func (s *service) attached(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[path]
	return ok
}

// close stops every device and waits for consumers and running actions.
func (s *service) close() {
	s.registry.Close()
	s.wg.Wait()
	s.dispatcher.Wait()
}

func (s *service) device(idx int) (*poll.Device, error) {
	d, ok := s.registry.Get(idx)
	if !ok {
		return nil, fmt.Errorf("%w %d", errNoDevice, idx)
	}
	return d, nil
}

func (s *service) Disconnect(device int) error {
	d, err := s.device(device)
	if err != nil {
		return err
	}
	d.Stop()
	return nil
}

func (s *service) SetLightbar(device int, c pad.Color) {
	if d, err := s.device(device); err == nil {
		d.SetLightbar(c)
	}
}

func (s *service) Recalibrate(device int) {
	if d, err := s.device(device); err == nil {
		d.Recalibrate()
	}
}

func (s *service) Battery(device int) (uint8, bool) {
	d, err := s.device(device)
	if err != nil {
		return 0, false
	}
	return d.Last().Battery, true
}
