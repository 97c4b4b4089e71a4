package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Alia5/padbridge/internal/events"
	"github.com/Alia5/padbridge/pad/vader"
	"github.com/Alia5/padbridge/transport"
)

var errNoDevices = errors.New("no controllers found")

// opener creates transports; tests replace its functions.
type opener struct {
	enumerate  func(vid, pid uint16) ([]transport.DeviceInfo, error)
	openHID    func(path string) (transport.Transport, transport.Kind, error)
	openSerial func(port string, baud int, f transport.Framing) (transport.Transport, error)
	dialWS     func(ctx context.Context, url string) (transport.Transport, error)
	logger     *slog.Logger
}

func (b *Bridge) opener(logger *slog.Logger) *opener {
	return &opener{
		enumerate: transport.EnumerateHID,
		openHID:   openHIDPath,
		openSerial: func(port string, baud int, f transport.Framing) (transport.Transport, error) {
			return transport.OpenSerial(port, baud, f)
		},
		dialWS: func(ctx context.Context, url string) (transport.Transport, error) {
			return transport.DialWebSocket(ctx, url, nil)
		},
		logger: logger,
	}
}

// openHIDPath prefers the interruptible hidraw transport for hidraw nodes.
func openHIDPath(path string) (transport.Transport, transport.Kind, error) {
	if strings.HasPrefix(path, "/dev/hidraw") {
		if h, err := transport.OpenHidraw(path); err == nil {
			return h, transport.KindHidraw, nil
		}
	}
	h, err := transport.OpenHID(path)
	if err != nil {
		return nil, "", err
	}
	return h, transport.KindHID, nil
}

// SerialFraming delimits bridged Vader reports on a byte stream.
var SerialFraming = transport.Framing{
	Size: vader.ReportSize,
	Sync: []byte{vader.ReportIDInput, vader.InputMarker},
}

func (b *Bridge) enumerating() bool {
	return len(b.Device.Path) == 0 && len(b.Device.Serial) == 0 && len(b.Device.WebSocket) == 0
}

// attachAll opens the configured devices, or enumerates HID when none are
// configured. Failing to open one explicit device is fatal; enumeration
// tolerates finding nothing while rescanning is enabled.
func (b *Bridge) attachAll(ctx context.Context, svc *service, o *opener) error {
	if b.enumerating() {
		n := b.attachEnumerated(ctx, svc, o)
		if n == 0 && b.Device.Rescan <= 0 {
			return fmt.Errorf("%w (vid %#04x pid %#04x)", errNoDevices, b.Device.VID, b.Device.PID)
		}
		if n == 0 {
			o.logger.Info("Waiting for controllers", "vid", fmt.Sprintf("%#04x", b.Device.VID), "pid", fmt.Sprintf("%#04x", b.Device.PID))
		}
		return nil
	}

	for _, p := range b.Device.Path {
		t, kind, err := o.openHID(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		if _, err := svc.attach(ctx, t, p, events.DeviceInfo{Name: "Vader 4 Pro", Transport: string(kind), Path: p}); err != nil {
			return err
		}
	}
	for _, p := range b.Device.Serial {
		t, err := o.openSerial(p, b.Device.Baud, SerialFraming)
		if err != nil {
			return err
		}
		if _, err := svc.attach(ctx, t, p, events.DeviceInfo{Name: "Vader 4 Pro", Transport: string(transport.KindSerial), Path: p}); err != nil {
			return err
		}
	}
	for _, u := range b.Device.WebSocket {
		t, err := o.dialWS(ctx, u)
		if err != nil {
			return err
		}
		if _, err := svc.attach(ctx, t, u, events.DeviceInfo{Name: "Vader 4 Pro", Transport: string(transport.KindWebSocket), Path: u}); err != nil {
			return err
		}
	}
	return nil
}

// attachEnumerated opens matching HID devices that are not attached yet and
// returns how many were added.
func (b *Bridge) attachEnumerated(ctx context.Context, svc *service, o *opener) int {
	infos, err := o.enumerate(b.Device.VID, b.Device.PID)
	if err != nil {
		o.logger.Warn("HID enumeration failed", "error", err)
		return 0
	}
	added := 0
	for _, info := range infos {
		if b.Device.Interface >= 0 && info.Interface != b.Device.Interface {
			continue
		}
		if svc.attached(info.Path) {
			continue
		}
		t, kind, err := o.openHID(info.Path)
		if err != nil {
			o.logger.Debug("Skipping HID device", "path", info.Path, "error", err)
			continue
		}
		name := info.Product
		if name == "" {
			name = "Vader 4 Pro"
		}
		if _, err := svc.attach(ctx, t, info.Path, events.DeviceInfo{Name: name, Transport: string(kind), Path: info.Path}); err != nil {
			o.logger.Warn("Cannot attach controller", "path", info.Path, "error", err)
			continue
		}
		added++
	}
	return added
}
