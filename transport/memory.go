package transport

import (
	"sync"
)

// Memory is an in-process transport. Reports pushed with Push are returned by
// Read in order; everything written is recorded. It backs tests and report
// replays.
type Memory struct {
	reads     chan []byte
	interrupt chan struct{}
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	writes  [][]byte
	readErr error
	failed  chan struct{}
	failSet bool
}

// NewMemory creates a Memory transport buffering up to queue pending reports.
func NewMemory(queue int) *Memory {
	return &Memory{
		reads:     make(chan []byte, queue),
		interrupt: make(chan struct{}, 1),
		closed:    make(chan struct{}),
		failed:    make(chan struct{}),
	}
}

// Push queues one report for Read. It blocks while the queue is full.
func (m *Memory) Push(report []byte) {
	b := append([]byte(nil), report...)
	select {
	case m.reads <- b:
	case <-m.closed:
	}
}

// Fail makes every following Read return err once queued reports are drained.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return
	}
	m.readErr = err
	m.failSet = true
	close(m.failed)
}

func (m *Memory) Read(p []byte) (int, error) {
	select {
	case b := <-m.reads:
		return copy(p, b), nil
	default:
	}
	select {
	case b := <-m.reads:
		return copy(p, b), nil
	case <-m.interrupt:
		return 0, ErrInterrupted
	case <-m.closed:
		return 0, ErrClosed
	case <-m.failed:
		m.mu.Lock()
		defer m.mu.Unlock()
		return 0, m.readErr
	}
}

func (m *Memory) Write(p []byte) (int, error) {
	select {
	case <-m.closed:
		return 0, ErrClosed
	default:
	}
	m.mu.Lock()
	m.writes = append(m.writes, append([]byte(nil), p...))
	m.mu.Unlock()
	return len(p), nil
}

// Writes returns copies of all reports written so far.
func (m *Memory) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

func (m *Memory) Interrupt() error {
	select {
	case m.interrupt <- struct{}{}:
	default:
	}
	return nil
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
