package poll

import (
	"sync/atomic"

	"github.com/Alia5/padbridge/pad"
)

// DefaultQueueSize is the subscriber queue length used when Subscribe is
// given a non-positive size.
const DefaultQueueSize = 16

// Subscription receives published states. When the consumer falls behind
// the queue fills and further states are dropped, never blocking the
// polling goroutine.
type Subscription struct {
	// C is closed when the device exits or the subscription is cancelled.
	C <-chan pad.State

	c       chan pad.State
	id      uint64
	dropped atomic.Uint64
}

// Dropped returns how many states were discarded because C was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

func (s *Subscription) offer(st pad.State) {
	select {
	case s.c <- st:
	default:
		s.dropped.Add(1)
	}
}

// Subscribe registers a new consumer with a queue of size states.
func (d *Device) Subscribe(size int) *Subscription {
	if size <= 0 {
		size = DefaultQueueSize
	}
	c := make(chan pad.State, size)
	s := &Subscription{C: c, c: c}

	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	if d.subsClosed {
		close(c)
		return s
	}
	d.nextSubID++
	s.id = d.nextSubID
	d.subs[s.id] = s
	return s
}

// Unsubscribe cancels s and closes its channel. It is safe to call more than once.
func (d *Device) Unsubscribe(s *Subscription) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	if _, ok := d.subs[s.id]; !ok {
		return
	}
	delete(d.subs, s.id)
	close(s.c)
}

func (d *Device) publish(st pad.State) {
	d.subsMu.RLock()
	for _, s := range d.subs {
		s.offer(st)
	}
	d.subsMu.RUnlock()
}

func (d *Device) closeSubscriptions() {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	d.subsClosed = true
	for id, s := range d.subs {
		delete(d.subs, id)
		close(s.c)
	}
}
