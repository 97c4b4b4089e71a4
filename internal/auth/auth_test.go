package auth_test

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"net"
	"testing"

	"github.com/Alia5/padbridge/apitypes"
	"github.com/Alia5/padbridge/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     []byte
		wantErr  error
	}{
		{
			name:     "normal password",
			password: "password123",
			want:     []byte{0x94, 0x50, 0x29, 0x55, 0x1, 0xd7, 0x3, 0xf, 0x4, 0x61, 0xf, 0x81, 0x6a, 0xdf, 0x43, 0x1c, 0xaf, 0x8f, 0xc8, 0x21, 0xd4, 0xc1, 0x2f, 0x2f, 0x21, 0x2c, 0x1b, 0xf8, 0x64, 0x46, 0x9, 0x82},
		},
		{
			name:     "single character",
			password: "1",
			want:     []byte{0xfe, 0xdf, 0xdf, 0x4d, 0xab, 0xd2, 0x5d, 0x9f, 0xfd, 0x97, 0x96, 0xec, 0x76, 0xd2, 0xa2, 0xec, 0x2, 0x4f, 0xbf, 0xeb, 0x17, 0x8c, 0x6, 0x13, 0xed, 0x4f, 0x10, 0x9e, 0x4d, 0xef, 0xd1, 0xd2},
		},
		{
			name:     "empty",
			password: "",
			wantErr:  auth.ErrEmptyPassword,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := auth.DeriveKey(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestDeriveSessionKey(t *testing.T) {
	key := make([]byte, 32)
	serverNonce := make([]byte, 32)
	clientNonce := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
		serverNonce[i] = byte(i + 10)
		clientNonce[i] = byte(i + 20)
	}
	a := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	assert.Len(t, a, 32)
	assert.Equal(t, a, auth.DeriveSessionKey(key, serverNonce, clientNonce))

	clientNonce[0] = 99
	assert.NotEqual(t, a, auth.DeriveSessionKey(key, serverNonce, clientNonce))
}

// serve plays the server side of the handshake and returns the session key
// it derived, or nil when it rejected the client.
func serve(t *testing.T, conn net.Conn, key []byte, reply string) []byte {
	t.Helper()
	r := bufio.NewReader(conn)
	magic := make([]byte, len(auth.HandshakeMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil
	}
	clientNonce := make([]byte, auth.NonceSize)
	proof := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, clientNonce); err != nil {
		return nil
	}
	if _, err := io.ReadFull(r, proof); err != nil {
		return nil
	}
	if reply != "" {
		_, _ = conn.Write([]byte(reply))
		_ = conn.Close()
		return nil
	}
	if !hmac.Equal(proof, auth.ClientProof(key, clientNonce)) {
		_ = conn.Close()
		return nil
	}
	serverNonce := make([]byte, auth.NonceSize)
	_, _ = rand.Read(serverNonce)
	_, _ = conn.Write(append([]byte("OK\x00"), serverNonce...))
	return auth.DeriveSessionKey(key, serverNonce, clientNonce)
}

func TestHandshake(t *testing.T) {
	key, err := auth.DeriveKey("secret")
	require.NoError(t, err)
	wrong, err := auth.DeriveKey("guess")
	require.NoError(t, err)

	tests := []struct {
		name      string
		clientKey []byte
		reply     string
		wantErr   error
		wantAPI   int
	}{
		{name: "accepted", clientKey: key},
		{name: "wrong password", clientKey: wrong, wantErr: auth.ErrRejected},
		{name: "problem response", clientKey: key, reply: `{"status":401,"title":"Unauthorized","detail":"nope"}` + "\n", wantAPI: 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			serverKey := make(chan []byte, 1)
			go func() { serverKey <- serve(t, server, key, tt.reply) }()

			session, err := auth.Handshake(bufio.NewReader(client), client, tt.clientKey)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAPI != 0:
				var apiErr *apitypes.ApiError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantAPI, apiErr.Status)
			default:
				require.NoError(t, err)
				assert.Equal(t, <-serverKey, session)
			}
		})
	}
}

func TestHandshakeMissingKey(t *testing.T) {
	client, _ := net.Pipe()
	defer client.Close()
	_, err := auth.Handshake(bufio.NewReader(client), client, nil)
	assert.Error(t, err)
}

func TestConnRoundTrip(t *testing.T) {
	session := make([]byte, 32)
	_, _ = rand.Read(session)

	a, b := net.Pipe()
	ca, err := auth.WrapConn(a, session)
	require.NoError(t, err)
	cb, err := auth.WrapConn(b, session)
	require.NoError(t, err)
	defer ca.Close()
	defer cb.Close()

	msgs := [][]byte{[]byte("hello"), {0x01, 0x02, 0x03}, make([]byte, 4096)}
	go func() {
		for _, m := range msgs {
			_, _ = ca.Write(m)
		}
	}()
	for _, m := range msgs {
		got := make([]byte, len(m))
		_, err := io.ReadFull(cb, got)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestConnWrongKey(t *testing.T) {
	k1 := make([]byte, 32)
	k2 := make([]byte, 32)
	k2[0] = 1

	a, b := net.Pipe()
	ca, err := auth.WrapConn(a, k1)
	require.NoError(t, err)
	cb, err := auth.WrapConn(b, k2)
	require.NoError(t, err)
	defer ca.Close()
	defer cb.Close()

	go func() { _, _ = ca.Write([]byte("x")) }()
	_, err = cb.Read(make([]byte, 8))
	assert.Error(t, err)

	_, err = auth.WrapConn(a, []byte{1, 2, 3})
	assert.Error(t, err)
}
