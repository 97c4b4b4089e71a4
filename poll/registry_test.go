package poll_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/padbridge/poll"
	"github.com/Alia5/padbridge/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySlots(t *testing.T) {
	r := poll.NewRegistry(nil)
	defer r.Close()

	var mu sync.Mutex
	removed := map[int]int{}
	r.OnRemoved(func(d *poll.Device, _ error) {
		mu.Lock()
		removed[d.Index()]++
		mu.Unlock()
	})

	ctx := context.Background()
	a, err := r.Add(ctx, transport.NewMemory(1), poll.Options{})
	require.NoError(t, err)
	b, err := r.Add(ctx, transport.NewMemory(1), poll.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Index())
	assert.Equal(t, 1, b.Index())
	assert.Len(t, r.Devices(), 2)

	require.True(t, r.Remove(0))
	<-a.Done()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return removed[0] == 1
	}, time.Second, time.Millisecond)
	_, ok := r.Get(0)
	assert.False(t, ok)

	c, err := r.Add(ctx, transport.NewMemory(1), poll.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Index())

	assert.False(t, r.Remove(7))
	assert.False(t, r.Remove(-1))
	_, ok = r.Get(poll.MaxDevices)
	assert.False(t, ok)
}

func TestRegistryFull(t *testing.T) {
	r := poll.NewRegistry(nil)
	defer r.Close()
	for i := 0; i < poll.MaxDevices; i++ {
		_, err := r.Add(context.Background(), transport.NewMemory(1), poll.Options{})
		require.NoError(t, err)
	}
	_, err := r.Add(context.Background(), transport.NewMemory(1), poll.Options{})
	assert.ErrorIs(t, err, poll.ErrNoFreeSlot)
}

func TestRegistryRemovesFailedDevice(t *testing.T) {
	r := poll.NewRegistry(nil)
	defer r.Close()

	m := transport.NewMemory(1)
	own := make(chan struct{})
	d, err := r.Add(context.Background(), m, poll.Options{OnRemoved: func(*poll.Device, error) { close(own) }})
	require.NoError(t, err)

	m.Fail(transport.ErrClosed)
	<-d.Done()
	<-own
	_, ok := r.Get(d.Index())
	assert.False(t, ok)
}

func TestRegistryKeepsSlotUntilRemoved(t *testing.T) {
	r := poll.NewRegistry(nil)
	defer r.Close()

	m := transport.NewMemory(1)
	added := make(chan *poll.Device, 1)
	d, err := r.Add(context.Background(), m, poll.Options{OnRemoved: func(*poll.Device, error) {
		n, _ := r.Add(context.Background(), transport.NewMemory(1), poll.Options{})
		added <- n
	}})
	require.NoError(t, err)

	m.Fail(transport.ErrClosed)
	<-d.Done()
	n := <-added
	require.NotNil(t, n)
	assert.Equal(t, 1, n.Index())

	_, ok := r.Get(0)
	assert.False(t, ok)
	got, ok := r.Get(1)
	require.True(t, ok)
	assert.Same(t, n, got)
}
