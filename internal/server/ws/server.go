package ws

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server serves the hub at /ws.
type Server struct {
	hub    *Hub
	logger *slog.Logger
	http   *http.Server
	ln     net.Listener
}

// Listen binds addr and returns a server ready for Serve.
func Listen(addr string, hub *Hub, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	return &Server{
		hub:    hub,
		logger: logger,
		ln:     ln,
		http:   &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	s.logger.Info("Live state server listening", "addr", s.ln.Addr().String())
	if err := s.http.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every client and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}
