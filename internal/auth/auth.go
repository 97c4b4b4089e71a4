// Package auth is the client side of the VIIPER API password handshake and
// the encrypted connection that follows it.
package auth

import (
	"crypto/pbkdf2"
	"crypto/sha256"
	"errors"
)

// Key derivation parameters shared with the VIIPER server.
const (
	PBKDF2Iterations = 100000
	PBKDF2Salt       = "VIIPER-Key-v1"
	sessionContext   = "VIIPER-Session-v1"
)

var ErrEmptyPassword = errors.New("password cannot be empty")

// DeriveKey stretches a password to a 32-byte key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return pbkdf2.Key(sha256.New, password, []byte(PBKDF2Salt), PBKDF2Iterations, 32)
}

// DeriveSessionKey mixes the long-term key with both handshake nonces.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}
