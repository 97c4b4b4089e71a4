package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alia5/padbridge/device/keyboard"
)

// MacroWaitBase is the code at which macro entries become delays: a code
// c >= MacroWaitBase waits c-MacroWaitBase milliseconds.
const MacroWaitBase = 300

// KeySender injects key presses on the host.
type KeySender interface {
	KeyDown(k keyboard.Key) error
	KeyUp(k keyboard.Key) error
}

// MacroStep is one entry of a macro.
type MacroStep struct {
	Code uint16
	Key  keyboard.Key
	// Supported is false for codes without a keyboard mapping (mouse
	// buttons and extended codes); running skips them.
	Supported bool
	Wait      time.Duration
}

// ParseMacro parses "162/160/36/36/160/162". Every key code toggles the
// key between pressed and released.
func ParseMacro(s string) ([]MacroStep, error) {
	fields := strings.Split(strings.TrimSpace(s), "/")
	steps := make([]MacroStep, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: macro code %q", ErrInvalidAction, f)
		}
		code := uint16(n)
		if code >= MacroWaitBase {
			steps = append(steps, MacroStep{Code: code, Wait: time.Duration(code-MacroWaitBase) * time.Millisecond})
			continue
		}
		k, ok := keyboard.FromVirtualKey(code)
		steps = append(steps, MacroStep{Code: code, Key: k, Supported: ok})
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: empty macro", ErrInvalidAction)
	}
	return steps, nil
}

// RunMacro plays steps through ks. Keys still held at the end, or when ctx
// ends, are released in reverse order.
func RunMacro(ctx context.Context, ks KeySender, steps []MacroStep) error {
	var held []keyboard.Key
	release := func() error {
		var firstErr error
		for i := len(held) - 1; i >= 0; i-- {
			if err := ks.KeyUp(held[i]); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		held = held[:0]
		return firstErr
	}

	for _, s := range steps {
		if s.Wait > 0 {
			t := time.NewTimer(s.Wait)
			select {
			case <-ctx.Done():
				t.Stop()
				_ = release()
				return ctx.Err()
			case <-t.C:
			}
			continue
		}
		if !s.Supported {
			continue
		}
		if i := indexKey(held, s.Key); i >= 0 {
			held = append(held[:i], held[i+1:]...)
			if err := ks.KeyUp(s.Key); err != nil {
				_ = release()
				return fmt.Errorf("release %s: %w", s.Key, err)
			}
			continue
		}
		if err := ks.KeyDown(s.Key); err != nil {
			_ = release()
			return fmt.Errorf("press %s: %w", s.Key, err)
		}
		held = append(held, s.Key)
	}
	return release()
}

func indexKey(keys []keyboard.Key, k keyboard.Key) int {
	for i, h := range keys {
		if h == k {
			return i
		}
	}
	return -1
}

// SendKey presses and releases the key for a virtual-key code.
func SendKey(ks KeySender, code string) error {
	n, err := strconv.ParseUint(strings.TrimSpace(code), 10, 16)
	if err != nil {
		return fmt.Errorf("%w: key code %q", ErrInvalidAction, code)
	}
	k, ok := keyboard.FromVirtualKey(uint16(n))
	if !ok {
		return fmt.Errorf("%w: unsupported key code %d", ErrInvalidAction, n)
	}
	if err := ks.KeyDown(k); err != nil {
		return err
	}
	return ks.KeyUp(k)
}
