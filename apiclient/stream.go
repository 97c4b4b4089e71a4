package apiclient

import (
	"bufio"
	"context"
	"encoding"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Alia5/padbridge/apitypes"
)

var ErrStreamClosed = errors.New("stream closed")

// DeviceStream is the bidirectional channel of one virtual device: input
// reports go to the device, feedback comes back.
type DeviceStream struct {
	conn  net.Conn
	BusID uint32
	DevID string

	mu      sync.Mutex
	closed  bool
	reading bool
	cancel  context.CancelFunc
}

// OpenStream connects to the stream of an existing device.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*DeviceStream, error) {
	if c.transport.mock != nil {
		return nil, errors.New("stream connections not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\x00", busID, devID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &DeviceStream{conn: conn, BusID: busID, DevID: devID}, nil
}

// AddDeviceAndConnect creates a device and opens its stream. The device
// description is returned even when opening the stream fails.
func (c *Client) AddDeviceAndConnect(ctx context.Context, busID uint32, devType string, o *CreateOptions) (*DeviceStream, *apitypes.Device, error) {
	dev, err := c.DeviceAdd(ctx, busID, devType, o)
	if err != nil {
		return nil, nil, err
	}
	s, err := c.OpenStream(ctx, busID, dev.DevId)
	if err != nil {
		return nil, dev, err
	}
	return s, dev, nil
}

func (s *DeviceStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Write sends raw bytes to the device.
func (s *DeviceStream) Write(p []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	return s.conn.Write(p)
}

// WriteBinary marshals v and sends it to the device.
func (s *DeviceStream) WriteBinary(v encoding.BinaryMarshaler) error {
	b, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.Write(b)
	return err
}

// Read receives raw feedback bytes.
func (s *DeviceStream) Read(p []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	return s.conn.Read(p)
}

// StartReading decodes feedback messages on a goroutine until ctx ends, the
// stream closes, or decode fails. The error channel receives the reason.
func StartReading[T any](ctx context.Context, s *DeviceStream, size int, decode func(r *bufio.Reader) (T, error)) (<-chan T, <-chan error, error) {
	s.mu.Lock()
	if s.reading {
		s.mu.Unlock()
		return nil, nil, errors.New("stream is already being read")
	}
	if s.closed {
		s.mu.Unlock()
		return nil, nil, ErrStreamClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	s.reading = true
	s.cancel = cancel
	s.mu.Unlock()

	msgs := make(chan T, size)
	errs := make(chan error, 1)
	stop := context.AfterFunc(ctx, func() { _ = s.conn.SetReadDeadline(time.Now()) })

	go func() {
		defer close(msgs)
		defer close(errs)
		defer cancel()
		defer stop()

		r := bufio.NewReader(s.conn)
		for {
			msg, err := decode(r)
			if err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				} else if s.isClosed() {
					err = ErrStreamClosed
				}
				errs <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()
	return msgs, errs, nil
}

// Close closes the connection and stops StartReading.
func (s *DeviceStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return s.conn.Close()
}
