package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Alia5/padbridge/transport"
)

// MaxDevices is the number of controller slots.
const MaxDevices = 8

// ErrNoFreeSlot is returned by Add when every slot is taken.
var ErrNoFreeSlot = errors.New("no free controller slot")

// Registry assigns slots to devices and runs their input goroutines.
type Registry struct {
	logger *slog.Logger

	mu        sync.Mutex
	slots     [MaxDevices]*Device
	onRemoved []func(*Device, error)
	wg        sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// OnRemoved registers a handler run once for every device that exits. The
// device keeps its slot until all handlers have returned.
func (r *Registry) OnRemoved(fn func(d *Device, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemoved = append(r.onRemoved, fn)
}

// Add places t in the lowest free slot and starts its input goroutine.
// opts.OnRemoved, if set, runs before the registry handlers, while the slot
// is still taken.
func (r *Registry) Add(ctx context.Context, t transport.Transport, opts Options) (*Device, error) {
	r.mu.Lock()
	idx := -1
	for i, d := range r.slots {
		if d == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return nil, ErrNoFreeSlot
	}

	// The slot stays taken until every handler has returned, so a device
	// added meanwhile never shares an index with one being torn down.
	own := opts.OnRemoved
	opts.OnRemoved = func(d *Device, err error) {
		r.mu.Lock()
		handlers := append([]func(*Device, error){}, r.onRemoved...)
		r.mu.Unlock()

		if own != nil {
			own(d, err)
		}
		for _, h := range handlers {
			h(d, err)
		}

		r.mu.Lock()
		if r.slots[d.index] == d {
			r.slots[d.index] = nil
		}
		r.mu.Unlock()
	}
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	d := NewDevice(idx, t, opts)
	r.slots[idx] = d
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		d.Run(ctx)
	}()
	r.logger.Info("device registered", "device", idx, "name", d.Name())
	return d, nil
}

// Get returns the device in slot idx.
func (r *Registry) Get(idx int) (*Device, bool) {
	if idx < 0 || idx >= MaxDevices {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.slots[idx]
	return d, d != nil
}

// Remove stops the device in slot idx. The slot is freed once its goroutine
// has exited.
func (r *Registry) Remove(idx int) bool {
	d, ok := r.Get(idx)
	if !ok {
		return false
	}
	d.Stop()
	return true
}

// Devices returns the occupied slots in index order.
func (r *Registry) Devices() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Device
	for _, d := range r.slots {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// Close stops every device and waits for their goroutines.
func (r *Registry) Close() {
	for _, d := range r.Devices() {
		d.Stop()
	}
	r.wg.Wait()
}
