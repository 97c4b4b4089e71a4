package apiclient_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Alia5/padbridge/apiclient"
	"github.com/Alia5/padbridge/apitypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawMsg []byte

func (m rawMsg) MarshalBinary() ([]byte, error) { return m, nil }

func TestOpenStreamMockTransport(t *testing.T) {
	_, err := testClient(nil, nil).OpenStream(context.Background(), 1, "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported with mock transport")
}

func TestAddDeviceAndConnectErrors(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]string
		wantDev   *apitypes.Device
		wantErr   string
	}{
		{
			name:      "device created, stream unsupported",
			responses: map[string]string{"bus/{id}/add": `{"busId":42,"devId":"7","vid":"0x1234","pid":"0xabcd","type":"dualshock4"}`},
			wantDev:   &apitypes.Device{BusID: 42, DevId: "7", Vid: "0x1234", Pid: "0xabcd", Type: "dualshock4"},
			wantErr:   "not supported with mock transport",
		},
		{
			name:      "api error",
			responses: map[string]string{"bus/{id}/add": `{"status":404,"title":"Not Found","detail":"bus 42 not found"}`},
			wantErr:   "bus 42 not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dev, err := testClient(tt.responses, nil).AddDeviceAndConnect(context.Background(), 42, "dualshock4", nil)
			assert.Nil(t, s)
			assert.Equal(t, tt.wantDev, dev)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// streamHandler answers device creation and echoes stream input back with
// every byte incremented.
func streamHandler(conn net.Conn, r *bufio.Reader, req string) {
	if strings.HasSuffix(req, "/add") || strings.Contains(req, "/add ") {
		_, _ = conn.Write([]byte(`{"busId":1,"devId":"2","vid":"0x054c","pid":"0x05c4","type":"dualshock4"}` + "\n"))
		return
	}
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		for i := range buf[:n] {
			buf[i]++
		}
		if _, err := conn.Write(buf[:n]); err != nil {
			return
		}
	}
}

func TestStreamRoundTrip(t *testing.T) {
	for _, password := range []string{"", "s3cret"} {
		t.Run("password="+password, func(t *testing.T) {
			srv := newFakeServer(t, password, streamHandler)
			cfg := apiclient.DefaultConfig()
			cfg.Password = password
			c := apiclient.New(srv.Addr(), &cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s, dev, err := c.AddDeviceAndConnect(ctx, 1, "dualshock4", nil)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, "2", dev.DevId)

			msgs, errs, err := apiclient.StartReading(ctx, s, 4, func(r *bufio.Reader) ([]byte, error) {
				b := make([]byte, 3)
				_, err := io.ReadFull(r, b)
				return b, err
			})
			require.NoError(t, err)
			_, _, err = apiclient.StartReading(ctx, s, 1, func(r *bufio.Reader) (byte, error) { return r.ReadByte() })
			assert.Error(t, err, "second reader")

			require.NoError(t, s.WriteBinary(rawMsg{1, 2, 3}))
			select {
			case got := <-msgs:
				assert.Equal(t, []byte{2, 3, 4}, got)
			case <-ctx.Done():
				t.Fatal("no feedback received")
			}

			require.NoError(t, s.Close())
			select {
			case err := <-errs:
				assert.Error(t, err)
			case <-time.After(time.Second):
				t.Fatal("reader did not stop after close")
			}
			_, err = s.Write([]byte{1})
			assert.ErrorIs(t, err, apiclient.ErrStreamClosed)

			reqs := srv.Requests()
			require.Len(t, reqs, 2)
			assert.Equal(t, "bus/1/2", reqs[1])
		})
	}
}
