package virtualpad

import (
	"context"
	"sync"

	"github.com/Alia5/padbridge/pad"
)

// Recorder is an in-memory Driver. It keeps submitted states and lets the
// caller inject feedback.
type Recorder struct {
	feedback feedback

	mu         sync.Mutex
	connected  bool
	connectErr error
	states     []pad.State
}

var _ Driver = (*Recorder)(nil)

// NewRecorder returns a Recorder whose Connect fails with connectErr when
// it is non-nil.
func NewRecorder(connectErr error) *Recorder { return &Recorder{connectErr: connectErr} }

func (r *Recorder) Connect(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connectErr != nil {
		return r.connectErr
	}
	r.connected = true
	return nil
}

func (r *Recorder) Disconnect() error {
	r.feedback.clear()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = false
	return nil
}

func (r *Recorder) Submit(s pad.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return ErrNotConnected
	}
	r.states = append(r.states, s)
	return nil
}

func (r *Recorder) OnFeedback(fn func(pad.Haptic)) FeedbackHandle { return r.feedback.add(fn) }

func (r *Recorder) RemoveFeedback(h FeedbackHandle) { r.feedback.remove(h) }

// Feedback delivers h to the registered callbacks.
func (r *Recorder) Feedback(h pad.Haptic) { r.feedback.emit(h) }

// Connected reports whether Connect succeeded and Disconnect was not called.
func (r *Recorder) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// States returns a copy of the submitted states.
func (r *Recorder) States() []pad.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pad.State(nil), r.states...)
}
