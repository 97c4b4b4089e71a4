package apiclient_test

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/Alia5/padbridge/internal/auth"

	"github.com/stretchr/testify/require"
)

// fakeServer accepts connections and hands every request line (without
// the terminator) to handle together with the connection it arrived on.
type fakeServer struct {
	ln       net.Listener
	password string

	mu       sync.Mutex
	requests []string
}

func newFakeServer(t *testing.T, password string, handle func(conn net.Conn, r *bufio.Reader, req string)) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{ln: ln, password: password}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn, handle)
		}
	}()
	return s
}

func (s *fakeServer) Addr() string { return s.ln.Addr().String() }

func (s *fakeServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *fakeServer) serve(conn net.Conn, handle func(net.Conn, *bufio.Reader, string)) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	if s.password != "" {
		var ok bool
		conn, ok = s.accept(conn, r)
		if !ok {
			return
		}
		r = bufio.NewReader(conn)
	}
	req, err := r.ReadString(0)
	if err != nil {
		return
	}
	req = strings.TrimSuffix(req, "\x00")
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	handle(conn, r, req)
}

func (s *fakeServer) accept(conn net.Conn, r *bufio.Reader) (net.Conn, bool) {
	key, err := auth.DeriveKey(s.password)
	if err != nil {
		return nil, false
	}
	buf := make([]byte, len(auth.HandshakeMagic)+auth.NonceSize+sha256.Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, false
	}
	if string(buf[:len(auth.HandshakeMagic)]) != auth.HandshakeMagic {
		return nil, false
	}
	clientNonce := buf[len(auth.HandshakeMagic) : len(auth.HandshakeMagic)+auth.NonceSize]
	proof := buf[len(auth.HandshakeMagic)+auth.NonceSize:]
	if !hmac.Equal(proof, auth.ClientProof(key, clientNonce)) {
		return nil, false
	}
	serverNonce := make([]byte, auth.NonceSize)
	_, _ = rand.Read(serverNonce)
	if _, err := conn.Write(append([]byte("OK\x00"), serverNonce...)); err != nil {
		return nil, false
	}
	sc, err := auth.WrapConn(conn, auth.DeriveSessionKey(key, serverNonce, clientNonce))
	if err != nil {
		return nil, false
	}
	return sc, true
}

func reply(body string) func(net.Conn, *bufio.Reader, string) {
	return func(conn net.Conn, _ *bufio.Reader, _ string) {
		_, _ = conn.Write([]byte(body))
	}
}
