package transport

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sstallion/go-hid"
)

// DefaultHIDReadTimeout bounds each blocking hidapi read so that Interrupt
// and Close are observed promptly.
const DefaultHIDReadTimeout = 100 * time.Millisecond

var initOnce sync.Once
var initErr error

func ensureHIDInit() error {
	initOnce.Do(func() { initErr = hid.Init() })
	return initErr
}

// DeviceInfo describes an enumerated HID interface.
type DeviceInfo struct {
	Path         string `json:"path" yaml:"path"`
	VendorID     uint16 `json:"vendorId" yaml:"vendorId"`
	ProductID    uint16 `json:"productId" yaml:"productId"`
	Serial       string `json:"serial,omitempty" yaml:"serial,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty" yaml:"product,omitempty"`
	Interface    int    `json:"interface" yaml:"interface"`
}

// EnumerateHID lists HID interfaces matching vid/pid; zero matches any.
func EnumerateHID(vid, pid uint16) ([]DeviceInfo, error) {
	if err := ensureHIDInit(); err != nil {
		return nil, fmt.Errorf("hid init: %w", err)
	}
	var out []DeviceInfo
	err := hid.Enumerate(vid, pid, func(info *hid.DeviceInfo) error {
		out = append(out, DeviceInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Serial:       info.SerialNbr,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
			Interface:    info.InterfaceNbr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hid enumerate: %w", err)
	}
	return out, nil
}

// HID is a transport over hidapi.
type HID struct {
	dev         *hid.Device
	path        string
	timeout     time.Duration
	interrupted atomic.Bool
	closed      atomic.Bool
	mu          sync.Mutex
}

// OpenHID opens the HID interface at path.
func OpenHID(path string) (*HID, error) {
	if err := ensureHIDInit(); err != nil {
		return nil, fmt.Errorf("hid init: %w", err)
	}
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &HID{dev: dev, path: path, timeout: DefaultHIDReadTimeout}, nil
}

// Path returns the platform path the device was opened with.
func (h *HID) Path() string { return h.path }

func (h *HID) Read(p []byte) (int, error) {
	for {
		if h.closed.Load() {
			return 0, ErrClosed
		}
		if h.interrupted.Swap(false) {
			return 0, ErrInterrupted
		}
		n, err := h.dev.ReadWithTimeout(p, h.timeout)
		if errors.Is(err, hid.ErrTimeout) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("hid read: %w", err)
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (h *HID) Write(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n, err := h.dev.Write(p)
	if err != nil {
		return n, fmt.Errorf("hid write: %w", err)
	}
	return n, nil
}

func (h *HID) Interrupt() error {
	h.interrupted.Store(true)
	return nil
}

func (h *HID) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	return h.dev.Close()
}
