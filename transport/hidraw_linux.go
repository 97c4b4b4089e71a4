//go:build linux

package transport

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Hidraw reads a /dev/hidrawN node directly. A blocked Read waits in poll(2)
// on the device and a wake pipe, so Interrupt returns immediately.
type Hidraw struct {
	fd     int
	wakeR  int
	wakeW  int
	path   string
	mu     sync.Mutex
	closed bool
}

// OpenHidraw opens a hidraw device node.
func OpenHidraw(path string) (*Hidraw, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	return &Hidraw{fd: fd, wakeR: p[0], wakeW: p[1], path: path}, nil
}

// Path returns the device node path.
func (h *Hidraw) Path() string { return h.path }

func (h *Hidraw) Read(p []byte) (int, error) {
	fds := []unix.PollFd{
		{Fd: int32(h.fd), Events: unix.POLLIN},
		{Fd: int32(h.wakeR), Events: unix.POLLIN},
	}
	for {
		if h.isClosed() {
			return 0, ErrClosed
		}
		fds[0].Revents, fds[1].Revents = 0, 0
		_, err := unix.Poll(fds, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll: %w", err)
		}
		if fds[1].Revents&unix.POLLIN != 0 {
			var drain [16]byte
			_, _ = unix.Read(h.wakeR, drain[:])
			return 0, ErrInterrupted
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return 0, fmt.Errorf("hidraw %s: device gone", h.path)
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}
		n, err := unix.Read(h.fd, p)
		if errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("hidraw read: %w", err)
		}
		return n, nil
	}
}

func (h *Hidraw) Write(p []byte) (int, error) {
	if h.isClosed() {
		return 0, ErrClosed
	}
	n, err := unix.Write(h.fd, p)
	if err != nil {
		return n, fmt.Errorf("hidraw write: %w", err)
	}
	return n, nil
}

func (h *Hidraw) Interrupt() error {
	_, err := unix.Write(h.wakeW, []byte{1})
	if errors.Is(err, unix.EAGAIN) {
		return nil
	}
	return err
}

func (h *Hidraw) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	_ = h.Interrupt()
	err := unix.Close(h.fd)
	_ = unix.Close(h.wakeR)
	_ = unix.Close(h.wakeW)
	return err
}

func (h *Hidraw) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
