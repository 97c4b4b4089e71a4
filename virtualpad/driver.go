// Package virtualpad presents physical controllers to games as virtual
// devices and routes their feedback back.
package virtualpad

import (
	"context"
	"errors"
	"sync"

	"github.com/Alia5/padbridge/pad"
)

var ErrNotConnected = errors.New("virtual device not connected")

// FeedbackHandle identifies a registered feedback callback.
type FeedbackHandle uint64

// Driver is one virtual controller.
type Driver interface {
	Connect(ctx context.Context) error
	// Disconnect unregisters every feedback callback before tearing the
	// device down, so no callback runs after it returns.
	Disconnect() error
	Submit(s pad.State) error
	OnFeedback(fn func(pad.Haptic)) FeedbackHandle
	RemoveFeedback(h FeedbackHandle)
}

type feedback struct {
	mu   sync.Mutex
	next FeedbackHandle
	fns  map[FeedbackHandle]func(pad.Haptic)
}

func (f *feedback) add(fn func(pad.Haptic)) FeedbackHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fns == nil {
		f.fns = make(map[FeedbackHandle]func(pad.Haptic))
	}
	f.next++
	f.fns[f.next] = fn
	return f.next
}

func (f *feedback) remove(h FeedbackHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fns, h)
}

func (f *feedback) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.fns)
}

// emit holds the lock while calling so that remove and clear wait for
// in-flight callbacks.
func (f *feedback) emit(h pad.Haptic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fn := range f.fns {
		fn(h)
	}
}
