package virtualpad_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/Alia5/padbridge/apiclient"
)

// fakeViiper answers the management API and serves device streams over
// plain TCP.
type fakeViiper struct {
	ln       net.Listener
	feedback chan []byte
	inputs   chan []byte

	mu    sync.Mutex
	buses []uint32
	reqs  []string
}

func newFakeViiper(t *testing.T, buses ...uint32) *fakeViiper {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeViiper{
		ln:       ln,
		feedback: make(chan []byte, 4),
		inputs:   make(chan []byte, 16),
		buses:    buses,
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(conn)
		}
	}()
	return f
}

func (f *fakeViiper) client() *apiclient.Client { return apiclient.New(f.ln.Addr().String(), nil) }

func (f *fakeViiper) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reqs...)
}

func (f *fakeViiper) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	line, err := r.ReadString(0)
	if err != nil {
		return
	}
	req := strings.TrimSuffix(line, "\x00")
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	switch {
	case req == "bus/list":
		f.mu.Lock()
		b, _ := json.Marshal(map[string][]uint32{"buses": append([]uint32{}, f.buses...)})
		f.mu.Unlock()
		reply(conn, string(b))
	case strings.HasPrefix(req, "bus/create"):
		f.mu.Lock()
		f.buses = append(f.buses, 1)
		f.mu.Unlock()
		reply(conn, `{"busId":1}`)
	case strings.HasPrefix(req, "bus/1/add "):
		var body struct{ Type string }
		_ = json.Unmarshal([]byte(strings.TrimPrefix(req, "bus/1/add ")), &body)
		devID := "1"
		if body.Type == "keyboard" {
			devID = "2"
		}
		reply(conn, fmt.Sprintf(`{"busId":1,"devId":%q,"vid":"0x054c","pid":"0x05c4","type":%q}`, devID, body.Type))
	case strings.HasPrefix(req, "bus/1/remove "):
		reply(conn, fmt.Sprintf(`{"busId":1,"devId":%q}`, strings.TrimPrefix(req, "bus/1/remove ")))
	case req == "bus/remove 1":
		reply(conn, `{"busId":1}`)
	case req == "bus/1/1":
		f.streamPad(conn, r)
	case req == "bus/1/2":
		f.streamKeyboard(r)
	default:
		reply(conn, `{"status":404,"title":"Not Found","detail":"unknown path"}`)
	}
}

func reply(conn net.Conn, body string) { _, _ = conn.Write([]byte(body + "\n")) }

func (f *fakeViiper) streamPad(conn net.Conn, r *bufio.Reader) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case b := <-f.feedback:
				if _, err := conn.Write(b); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	for {
		b := make([]byte, 31)
		if _, err := io.ReadFull(r, b); err != nil {
			return
		}
		f.inputs <- b
	}
}

func (f *fakeViiper) streamKeyboard(r *bufio.Reader) {
	for {
		hdr := make([]byte, 2)
		if _, err := io.ReadFull(r, hdr); err != nil {
			return
		}
		keys := make([]byte, hdr[1])
		if _, err := io.ReadFull(r, keys); err != nil {
			return
		}
		f.inputs <- append(hdr, keys...)
	}
}
