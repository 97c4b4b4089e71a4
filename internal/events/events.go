// Package events publishes controller lifecycle and action events.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Event names, also the last topic segment.
const (
	EventConnected = "connected"
	EventRemoved   = "removed"
	EventAction    = "action"
	EventProfile   = "profile"
)

// Publisher receives device events. Methods must not block the caller.
type Publisher interface {
	DeviceConnected(device int, info DeviceInfo)
	DeviceRemoved(device int, reason error)
	ActionFired(device int, name, kind string)
	ProfileLoaded(device int, profile string)
	Close() error
}

// DeviceInfo describes a newly registered controller.
type DeviceInfo struct {
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Path      string `json:"path,omitempty"`
	// Virtual is the VIIPER device id, empty when no virtual pad was created.
	Virtual string `json:"virtual,omitempty"`
}

// Event is the JSON payload of every message.
type Event struct {
	Time    time.Time   `json:"time"`
	Device  int         `json:"device"`
	Event   string      `json:"event"`
	Info    *DeviceInfo `json:"info,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Action  string      `json:"action,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Profile string      `json:"profile,omitempty"`
}

// Topic returns "<prefix>/device/<idx>/<event>".
func Topic(prefix string, device int, event string) string {
	return fmt.Sprintf("%s/device/%d/%s", prefix, device, event)
}

// Format encodes e.
func Format(e Event) ([]byte, error) {
	e.Time = e.Time.UTC()
	return json.Marshal(e)
}

func reasonText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Nop discards everything.
type Nop struct{}

func (Nop) DeviceConnected(int, DeviceInfo) {}
func (Nop) DeviceRemoved(int, error)        {}
func (Nop) ActionFired(int, string, string) {}
func (Nop) ProfileLoaded(int, string)       {}
func (Nop) Close() error                    { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) DeviceConnected(device int, info DeviceInfo) {
	r.add(Event{Time: time.Now(), Device: device, Event: EventConnected, Info: &info})
}

func (r *Recorder) DeviceRemoved(device int, reason error) {
	r.add(Event{Time: time.Now(), Device: device, Event: EventRemoved, Reason: reasonText(reason)})
}

func (r *Recorder) ActionFired(device int, name, kind string) {
	r.add(Event{Time: time.Now(), Device: device, Event: EventAction, Action: name, Kind: kind})
}

func (r *Recorder) ProfileLoaded(device int, profile string) {
	r.add(Event{Time: time.Now(), Device: device, Event: EventProfile, Profile: profile})
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
