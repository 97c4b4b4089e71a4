package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// maxFrameSize bounds a single encrypted frame.
const maxFrameSize = 2 * 1024 * 1024

// Conn frames every Write as length[4 BE] | nonce[12] | ciphertext.
// The nonce carries a per-direction send counter.
type Conn struct {
	net.Conn
	aead cipher.AEAD

	wmu     sync.Mutex
	sendCtr uint64
	wbuf    []byte

	rmu  sync.Mutex
	rbuf bytes.Buffer
	pkt  []byte
}

// WrapConn encrypts conn with a session key from Handshake.
func WrapConn(conn net.Conn, sessionKey []byte) (*Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, aead: aead}, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	ns := c.aead.NonceSize()
	b := c.wbuf[:0]
	b = append(b, 0, 0, 0, 0)
	b = append(b, make([]byte, ns)...)
	binary.BigEndian.PutUint64(b[4+ns-8:4+ns], c.sendCtr)
	c.sendCtr++
	b = c.aead.Seal(b, b[4:4+ns], p, nil)
	binary.BigEndian.PutUint32(b[:4], uint32(len(b)-4))
	c.wbuf = b

	if _, err := c.Conn.Write(b); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if c.rbuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
			return 0, err
		}
		n := binary.BigEndian.Uint32(hdr[:])
		ns := c.aead.NonceSize()
		if n > maxFrameSize || int(n) < ns+c.aead.Overhead() {
			return 0, io.ErrUnexpectedEOF
		}
		if cap(c.pkt) < int(n) {
			c.pkt = make([]byte, n)
		}
		pkt := c.pkt[:n]
		if _, err := io.ReadFull(c.Conn, pkt); err != nil {
			return 0, err
		}
		pt, err := c.aead.Open(pkt[ns:ns], pkt[:ns], pkt[ns:], nil)
		if err != nil {
			return 0, err
		}
		c.rbuf.Write(pt)
	}
	return c.rbuf.Read(p)
}
