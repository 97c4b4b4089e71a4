package ws

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alia5/padbridge/pad"
)

const (
	// DefaultRate is the per-client frame limit in frames per second.
	DefaultRate = 60

	sendQueue  = 16
	writeWait  = 2 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local tooling connects from arbitrary origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	device int
	format Format
	next   time.Time
	once   sync.Once
}

// Hub fans out device states to websocket clients.
type Hub struct {
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  map[int]pad.State
	seq     map[int]uint64
}

// NewHub creates a hub sending each client at most rate frames per second.
// A non-positive rate uses DefaultRate.
func NewHub(rate float64, logger *slog.Logger) *Hub {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Hub{
		interval: time.Duration(float64(time.Second) / rate),
		logger:   logger,
		now:      time.Now,
		clients:  map[*client]struct{}{},
		latest:   map[int]pad.State{},
		seq:      map[int]uint64{},
	}
}

// Publish records s as the latest state of device and sends it to every
// subscribed client whose rate window has passed. Clients that cannot keep
// up are dropped.
func (h *Hub) Publish(device int, s pad.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq[device]++
	h.latest[device] = s
	if len(h.clients) == 0 {
		return
	}
	now := h.now()
	frame := NewFrame(device, h.seq[device], &s)
	encoded := map[Format][]byte{}
	for c := range h.clients {
		if c.device != device || now.Before(c.next) {
			continue
		}
		b, ok := encoded[c.format]
		if !ok {
			var err error
			if b, err = frame.Encode(c.format); err != nil {
				h.logger.Error("Failed to encode state frame", "format", c.format, "error", err)
				continue
			}
			encoded[c.format] = b
		}
		select {
		case c.send <- b:
			c.next = now.Add(h.interval)
		default:
			h.logger.Warn("Dropping slow websocket client", "device", device)
			h.removeLocked(c)
		}
	}
}

// Forget drops the cached state of a removed device.
func (h *Hub) Forget(device int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.latest, device)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if s, ok := h.latest[c.device]; ok {
		f := NewFrame(c.device, h.seq[c.device], &s)
		if b, err := f.Encode(c.format); err == nil {
			c.send <- b
			c.next = h.now().Add(h.interval)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// ServeHTTP upgrades the request. Query parameters: device (slot index,
// default 0) and format (json or cbor).
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	device := 0
	if v := r.URL.Query().Get("device"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid device", http.StatusBadRequest)
			return
		}
		device = n
	}
	format := FormatJSON
	switch f := Format(r.URL.Query().Get("format")); f {
	case "", FormatJSON:
	case FormatCBOR:
		format = FormatCBOR
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue), device: device, format: format}
	h.add(c)
	h.logger.Debug("WebSocket client connected", "device", device, "format", format, "remote", conn.RemoteAddr())

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	msgType := websocket.TextMessage
	if c.format == FormatCBOR {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(msgType, b); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump only drains control frames; clients send nothing meaningful.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) close() { c.once.Do(func() { _ = c.conn.Close() }) }
