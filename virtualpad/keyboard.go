package virtualpad

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/padbridge/device/keyboard"
)

// ConnectTimeout bounds the lazy connect of the virtual keyboard.
const ConnectTimeout = 3 * time.Second

// Keyboard is a virtual keyboard used by key-send and macro actions. It
// connects on the first key and reconnects after a failed write.
type Keyboard struct {
	opts Options

	mu    sync.Mutex
	dev   *device
	state keyboard.InputState
}

// NewKeyboard creates an unconnected keyboard. Options.IdVendor and
// IdProduct are left to the server defaults when nil.
func NewKeyboard(o Options) *Keyboard {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Keyboard{opts: o}
}

func (k *Keyboard) KeyDown(key keyboard.Key) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state.Press(key)
	return k.sendLocked()
}

func (k *Keyboard) KeyUp(key keyboard.Key) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state.Release(key)
	return k.sendLocked()
}

func (k *Keyboard) sendLocked() error {
	if k.dev == nil {
		ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
		d, err := openDevice(ctx, k.opts, "keyboard")
		cancel()
		if err != nil {
			return err
		}
		k.dev = d
	}
	if err := k.dev.stream.WriteBinary(&k.state); err != nil {
		_ = k.dev.remove()
		k.dev = nil
		return fmt.Errorf("send keys: %w", err)
	}
	return nil
}

// Close releases every held key and removes the keyboard.
func (k *Keyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.dev == nil {
		return nil
	}
	if !k.state.Empty() {
		k.state = keyboard.InputState{}
		_ = k.dev.stream.WriteBinary(&k.state)
	}
	err := k.dev.remove()
	k.dev = nil
	return err
}
