package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket carries one report per binary message, for pads attached to a
// remote bridge.
type WebSocket struct {
	conn        *websocket.Conn
	writeMu     sync.Mutex
	interrupted atomic.Bool
	closed      atomic.Bool
}

// DialWebSocket connects to a ws:// or wss:// report bridge.
func DialWebSocket(ctx context.Context, rawURL string, header http.Header) (*WebSocket, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connection failed: %w", err)
	}
	return &WebSocket{conn: conn}, nil
}

func (w *WebSocket) Read(p []byte) (int, error) {
	for {
		if w.closed.Load() {
			return 0, ErrClosed
		}
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			if w.interrupted.Swap(false) {
				return 0, ErrInterrupted
			}
			return 0, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		return copy(p, data), nil
	}
}

func (w *WebSocket) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Interrupt wakes a blocked Read by expiring its deadline. gorilla connections
// do not survive a read timeout, so the transport is unusable afterwards.
func (w *WebSocket) Interrupt() error {
	w.interrupted.Store(true)
	return w.conn.SetReadDeadline(time.Now())
}

func (w *WebSocket) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	w.writeMu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	w.writeMu.Unlock()
	return w.conn.Close()
}
