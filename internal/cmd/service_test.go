package cmd

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/padbridge/actions"
	"github.com/Alia5/padbridge/internal/events"
	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/pad"
	"github.com/Alia5/padbridge/pad/vader"
	"github.com/Alia5/padbridge/poll"
	"github.com/Alia5/padbridge/transport"
	"github.com/Alia5/padbridge/virtualpad"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func report(stamp uint32, buttons uint16) []byte {
	return vader.EncodeInput(vader.Input{
		Timestamp: stamp,
		LX:        128, LY: 128, RX: 128, RY: 128,
		Hat:     vader.HatNeutral,
		Buttons: buttons,
		AccelY:  8192,
	})
}

type testService struct {
	*service
	events  *events.Recorder
	drivers chan *virtualpad.Recorder
}

func newTestService(t *testing.T, connectErr error) *testService {
	t.Helper()
	logger := log.Discard()
	table := actions.NewTable(actions.StaticSource(defaultCatalog()), actions.RetryPolicy{}, logger)
	require.NoError(t, table.Initialize(defaultCatalog()))

	ts := &testService{events: &events.Recorder{}, drivers: make(chan *virtualpad.Recorder, 8)}
	ts.service = newService(serviceConfig{
		Table:  table,
		Events: ts.events,
		Logger: logger,
		NewDriver: func(int) virtualpad.Driver {
			r := virtualpad.NewRecorder(connectErr)
			ts.drivers <- r
			return r
		},
	})
	t.Cleanup(ts.close)
	return ts
}

func (ts *testService) eventsNamed(name string) []events.Event {
	var out []events.Event
	for _, e := range ts.events.Events() {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func TestServiceForwardsStatesAndFeedback(t *testing.T) {
	ts := newTestService(t, nil)
	m := transport.NewMemory(64)

	d, err := ts.attach(context.Background(), m, "mem0", events.DeviceInfo{Name: "pad", Transport: "memory", Path: "mem0"})
	require.NoError(t, err)
	assert.Equal(t, 0, d.Index())
	assert.True(t, ts.attached("mem0"))
	drv := <-ts.drivers
	assert.True(t, drv.Connected())

	connected := ts.eventsNamed(events.EventConnected)
	require.Len(t, connected, 1)
	assert.Equal(t, "memory", connected[0].Info.Transport)

	m.Push(report(0, vader.ButtonA))
	require.Eventually(t, func() bool {
		states := drv.States()
		return len(states) > 0 && states[0].Cross
	}, waitFor, tick)

	drv.Feedback(pad.Haptic{RumbleHeavy: 200, Lightbar: pad.Color{R: 255}})
	assert.Eventually(t, func() bool { return d.Haptic().RumbleHeavy == 200 }, waitFor, tick)

	stamp := uint32(3000)
	assert.Eventually(t, func() bool {
		m.Push(report(stamp, 0))
		stamp += 3000
		return len(m.Writes()) > 0
	}, waitFor, tick)
}

func TestServiceDisconnectChord(t *testing.T) {
	ts := newTestService(t, nil)
	m := transport.NewMemory(64)

	_, err := ts.attach(context.Background(), m, "mem0", events.DeviceInfo{Name: "pad"})
	require.NoError(t, err)
	drv := <-ts.drivers

	m.Push(report(0, vader.ButtonHome|vader.ButtonStart))
	require.Eventually(t, func() bool { return len(ts.eventsNamed(events.EventRemoved)) == 1 }, waitFor, tick)

	removed := ts.eventsNamed(events.EventRemoved)[0]
	assert.Equal(t, 0, removed.Device)
	assert.Empty(t, removed.Reason)
	fired := ts.eventsNamed(events.EventAction)
	require.Len(t, fired, 1)
	assert.Equal(t, actions.DefaultActionName, fired[0].Action)
	assert.False(t, drv.Connected())
	assert.False(t, ts.attached("mem0"))

	_, ok := ts.registry.Get(0)
	assert.False(t, ok)
	assert.ErrorIs(t, ts.Disconnect(0), errNoDevice)
}

func TestServiceTransportFailure(t *testing.T) {
	ts := newTestService(t, nil)
	m := transport.NewMemory(4)

	_, err := ts.attach(context.Background(), m, "mem0", events.DeviceInfo{Name: "pad"})
	require.NoError(t, err)
	m.Fail(io.ErrUnexpectedEOF)

	require.Eventually(t, func() bool { return len(ts.eventsNamed(events.EventRemoved)) == 1 }, waitFor, tick)
	assert.Contains(t, ts.eventsNamed(events.EventRemoved)[0].Reason, io.ErrUnexpectedEOF.Error())
	assert.False(t, ts.attached("mem0"))
}

func TestServiceWithoutVirtualPad(t *testing.T) {
	ts := newTestService(t, errors.New("viiper unavailable"))
	m := transport.NewMemory(8)

	d, err := ts.attach(context.Background(), m, "", events.DeviceInfo{Name: "pad"})
	require.NoError(t, err)
	drv := <-ts.drivers
	assert.False(t, drv.Connected())

	m.Push(report(0, vader.ButtonA))
	require.Eventually(t, func() bool { return d.Last().Cross }, waitFor, tick)
	assert.Empty(t, drv.States())

	connected := ts.eventsNamed(events.EventConnected)
	require.Len(t, connected, 1)
	assert.Empty(t, connected[0].Info.Virtual)
}

func TestServiceHost(t *testing.T) {
	ts := newTestService(t, nil)
	m := transport.NewMemory(8)
	d, err := ts.attach(context.Background(), m, "", events.DeviceInfo{Name: "pad"})
	require.NoError(t, err)

	ts.SetLightbar(0, pad.Color{G: 10})
	assert.Equal(t, pad.Color{G: 10}, d.Haptic().Lightbar)
	_, ok := ts.Battery(0)
	assert.True(t, ok)
	_, ok = ts.Battery(5)
	assert.False(t, ok)

	ts.SetLightbar(5, pad.Color{})
	ts.Recalibrate(5)
	require.NoError(t, ts.Disconnect(0))
	require.Eventually(t, func() bool { return len(ts.eventsNamed(events.EventRemoved)) == 1 }, waitFor, tick)
}

func TestServiceAttachDuringRemoval(t *testing.T) {
	ts := newTestService(t, nil)
	first := transport.NewMemory(4)
	second := transport.NewMemory(4)

	replaced := make(chan *poll.Device, 1)
	var once sync.Once
	ts.cfg.Poll.OnRemoved = func(*poll.Device, error) {
		once.Do(func() {
			d, _ := ts.attach(context.Background(), second, "mem1", events.DeviceInfo{Name: "pad"})
			replaced <- d
		})
	}

	old, err := ts.attach(context.Background(), first, "mem0", events.DeviceInfo{Name: "pad"})
	require.NoError(t, err)
	oldDrv := <-ts.drivers

	first.Fail(io.ErrUnexpectedEOF)
	<-old.Done()
	d := <-replaced
	require.NotNil(t, d)
	assert.Equal(t, 1, d.Index())
	newDrv := <-ts.drivers

	assert.False(t, oldDrv.Connected())
	assert.True(t, newDrv.Connected())
	removed := ts.eventsNamed(events.EventRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, 0, removed[0].Device)
	assert.False(t, ts.attached("mem0"))
	assert.True(t, ts.attached("mem1"))

	ts.mu.Lock()
	assert.Empty(t, ts.early)
	assert.Same(t, d, ts.owners[1])
	assert.Nil(t, ts.owners[0])
	ts.mu.Unlock()
}
