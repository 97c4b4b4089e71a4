package auth

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Alia5/padbridge/apitypes"
)

const (
	HandshakeMagic = "eVI1\x00"
	NonceSize      = 32
	authContext    = "VIIPER-Auth-v1"
	handshakeOK    = "OK\x00"
)

// ErrRejected means the server closed the connection during the handshake,
// which is how it answers a wrong password.
var ErrRejected = errors.New("handshake rejected")

// ClientProof is the HMAC a client sends to prove it knows key.
func ClientProof(key, clientNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(authContext))
	mac.Write(clientNonce)
	return mac.Sum(nil)
}

// Handshake authenticates a client connection:
//
//	client: magic | client nonce[32] | HMAC-SHA256(key, context | nonce)
//	server: "OK\0" | server nonce[32]   or a problem+json line
//
// It returns the session key for WrapConn.
func Handshake(r *bufio.Reader, w io.Writer, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("handshake: missing key")
	}
	clientNonce := make([]byte, NonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, fmt.Errorf("generate client nonce: %w", err)
	}

	msg := make([]byte, 0, len(HandshakeMagic)+NonceSize+sha256.Size)
	msg = append(msg, HandshakeMagic...)
	msg = append(msg, clientNonce...)
	msg = append(msg, ClientProof(key, clientNonce)...)
	if _, err := w.Write(msg); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(handshakeOK))
	if _, err := io.ReadFull(r, prefix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrRejected
		}
		return nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != handshakeOK {
		rest, _ := io.ReadAll(r)
		line := bytes.TrimSuffix(append(prefix, rest...), []byte("\n"))
		var problem apitypes.ApiError
		if err := json.Unmarshal(line, &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
			return nil, &problem
		}
		return nil, fmt.Errorf("invalid handshake response: %q", line)
	}

	serverNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, fmt.Errorf("read server nonce: %w", err)
	}
	return DeriveSessionKey(key, serverNonce, clientNonce), nil
}
