package virtualpad

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/padbridge/apiclient"
	"github.com/Alia5/padbridge/apitypes"
	"github.com/Alia5/padbridge/device/dualshock4"
	"github.com/Alia5/padbridge/pad"
)

// RemoveTimeout bounds the API calls made while disconnecting.
const RemoveTimeout = 2 * time.Second

// Options selects where virtual devices are created.
type Options struct {
	Client *apiclient.Client
	// BusID 0 uses the first existing bus, creating one if there is none.
	BusID     uint32
	IdVendor  *uint16
	IdProduct *uint16
	Logger    *slog.Logger
}

// device is a virtual device with an open stream.
type device struct {
	opts       Options
	kind       string
	stream     *apiclient.DeviceStream
	info       *apitypes.Device
	busID      uint32
	createdBus bool
}

func resolveBus(ctx context.Context, o Options) (busID uint32, created bool, err error) {
	if o.BusID != 0 {
		return o.BusID, false, nil
	}
	list, err := o.Client.BusList(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list buses: %w", err)
	}
	if len(list.Buses) > 0 {
		return list.Buses[0], false, nil
	}
	bus, err := o.Client.BusCreate(ctx, 0)
	if err != nil {
		return 0, false, fmt.Errorf("create bus: %w", err)
	}
	return bus.BusID, true, nil
}

func openDevice(ctx context.Context, o Options, kind string) (*device, error) {
	busID, created, err := resolveBus(ctx, o)
	if err != nil {
		return nil, err
	}
	s, info, err := o.Client.AddDeviceAndConnect(ctx, busID, kind, &apiclient.CreateOptions{IdVendor: o.IdVendor, IdProduct: o.IdProduct})
	d := &device{opts: o, kind: kind, stream: s, info: info, busID: busID, createdBus: created}
	if err != nil {
		_ = d.remove()
		return nil, fmt.Errorf("add %s: %w", kind, err)
	}
	o.Logger.Info("Virtual device connected", "type", kind, "bus", busID, "device", info.DevId)
	return d, nil
}

// remove closes the stream and deletes whatever was created on the server.
func (d *device) remove() error {
	var errs []error
	if d.stream != nil {
		errs = append(errs, d.stream.Close())
	}
	ctx, cancel := context.WithTimeout(context.Background(), RemoveTimeout)
	defer cancel()
	if d.info != nil {
		if _, err := d.opts.Client.DeviceRemove(ctx, d.info.BusID, d.info.DevId); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", d.kind, err))
		}
	}
	if d.createdBus {
		if _, err := d.opts.Client.BusRemove(ctx, d.busID); err != nil {
			errs = append(errs, fmt.Errorf("remove bus: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Viiper is a virtual DualShock 4 on a VIIPER server.
type Viiper struct {
	opts     Options
	feedback feedback

	mu   sync.Mutex
	dev  *device
	buf  []byte
	done chan struct{}
}

var _ Driver = (*Viiper)(nil)

// NewViiper creates an unconnected driver.
func NewViiper(o Options) *Viiper {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.IdVendor == nil {
		vid := dualshock4.DefaultVID
		o.IdVendor = &vid
	}
	if o.IdProduct == nil {
		pid := dualshock4.DefaultPID
		o.IdProduct = &pid
	}
	return &Viiper{opts: o, buf: make([]byte, 0, dualshock4.InputSize)}
}

// Connect creates the virtual pad and starts relaying its feedback. It is a
// no-op when already connected.
func (v *Viiper) Connect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dev != nil {
		return nil
	}
	d, err := openDevice(ctx, v.opts, "dualshock4")
	if err != nil {
		return err
	}
	msgs, errs, err := apiclient.StartReading(context.WithoutCancel(ctx), d.stream, 4, decodeOutput)
	if err != nil {
		_ = d.remove()
		return err
	}
	v.dev = d
	v.done = make(chan struct{})
	go v.relay(msgs, errs, v.done)
	return nil
}

func decodeOutput(r *bufio.Reader) (dualshock4.OutputState, error) {
	var b [dualshock4.OutputSize]byte
	var out dualshock4.OutputState
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return out, err
	}
	err := out.UnmarshalBinary(b[:])
	return out, err
}

func (v *Viiper) relay(msgs <-chan dualshock4.OutputState, errs <-chan error, done chan struct{}) {
	defer close(done)
	for out := range msgs {
		v.feedback.emit(out.Haptic())
	}
	if err := <-errs; err != nil && !errors.Is(err, apiclient.ErrStreamClosed) {
		v.opts.Logger.Warn("Virtual pad feedback stopped", "error", err)
	}
}

// Disconnect removes the virtual pad.
func (v *Viiper) Disconnect() error {
	v.feedback.clear()
	v.mu.Lock()
	d, done := v.dev, v.done
	v.dev, v.done = nil, nil
	v.mu.Unlock()
	if d == nil {
		return nil
	}
	err := d.remove()
	<-done
	return err
}

// Submit sends one input state to the virtual pad.
func (v *Viiper) Submit(s pad.State) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dev == nil {
		return ErrNotConnected
	}
	in := dualshock4.FromPad(&s)
	v.buf, _ = in.AppendBinary(v.buf[:0])
	_, err := v.dev.stream.Write(v.buf)
	return err
}

func (v *Viiper) OnFeedback(fn func(pad.Haptic)) FeedbackHandle { return v.feedback.add(fn) }

func (v *Viiper) RemoveFeedback(h FeedbackHandle) { v.feedback.remove(h) }

// Device returns the server-side description, or nil when disconnected.
func (v *Viiper) Device() *apitypes.Device {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dev == nil {
		return nil
	}
	return v.dev.info
}
