package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/Alia5/padbridge/apitypes"
	"github.com/Alia5/padbridge/internal/auth"
)

// Config holds connection timeouts and the optional API password.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

// DefaultConfig returns the timeouts used when none are given.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Responder answers requests of a mock transport.
type Responder func(path string, payload any, pathParams map[string]string) (string, error)

// Transport speaks the VIIPER management protocol. A request is
// "<path>[ <payload>]\x00"; the server answers with one JSON document and
// closes the connection.
type Transport struct {
	addr string
	mock Responder
	cfg  Config
}

// NewTransport creates a transport for addr. A nil cfg uses DefaultConfig.
func NewTransport(addr string, cfg *Config) *Transport {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Transport{addr: addr, cfg: c}
}

// NewMockTransport answers every request with fn instead of the network.
func NewMockTransport(fn Responder) *Transport {
	return &Transport{addr: "mock", mock: fn, cfg: DefaultConfig()}
}

// Addr returns the server address.
func (t *Transport) Addr() string { return t.addr }

// dial connects to the server and, when a password is configured,
// authenticates and wraps the connection in the session cipher.
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	if t.cfg.Password == "" {
		return conn, nil
	}

	key, err := auth.DeriveKey(t.cfg.Password)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	session, err := auth.Handshake(bufio.NewReader(conn), conn, key)
	if err != nil {
		conn.Close()
		if errors.Is(err, auth.ErrRejected) {
			return nil, &apitypes.ApiError{Status: 401, Title: "Unauthorized", Detail: "invalid password"}
		}
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	sc, err := auth.WrapConn(conn, session)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return sc, nil
}

// Do sends one request and returns the response without its trailing
// newline. payload may be nil, []byte, string or any JSON-marshalable value.
func (t *Transport) Do(ctx context.Context, path string, payload any, pathParams map[string]string) (string, error) {
	if t.mock != nil {
		return t.mock(path, payload, pathParams)
	}
	body, err := payloadBytes(payload)
	if err != nil {
		return "", err
	}
	line := fillPath(path, pathParams)
	req := make([]byte, 0, len(line)+1+len(body)+1)
	req = append(req, line...)
	if len(body) > 0 {
		req = append(req, ' ')
		req = append(req, body...)
	}
	req = append(req, 0)

	conn, err := t.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write(req); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func payloadBytes(v any) ([]byte, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		return b, nil
	}
}
