package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "trace", want: LevelTrace},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "nonsense", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLevelFilterSplitsOutput(t *testing.T) {
	var low, high bytes.Buffer
	h := NewMultiHandler(
		NewLevelFilter(func(l slog.Level) bool { return l < slog.LevelError }, textHandler(&low, LevelTrace)),
		NewLevelFilter(func(l slog.Level) bool { return l >= slog.LevelError }, textHandler(&high, slog.LevelError)),
	)
	logger := slog.New(h).With("device", 1)
	logger.Log(context.Background(), LevelTrace, "raw")
	logger.Info("hello")
	logger.Error("boom")

	assert.Contains(t, low.String(), "level=TRACE")
	assert.Contains(t, low.String(), "msg=hello")
	assert.Contains(t, low.String(), "device=1")
	assert.NotContains(t, low.String(), "boom")
	assert.Contains(t, high.String(), "msg=boom")
	assert.NotContains(t, high.String(), "hello")
}

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	r := NewRaw(&buf).(*rawLogger)
	r.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	r.Log(true, []byte{0x02, 0xFE, 0x0a})
	r.Log(false, []byte{0x05})
	r.Log(false, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"2026/03/04 05:06:07.000000 DEV->HOST len=3: 02 fe 0a",
		"2026/03/04 05:06:07.000000 HOST->DEV len=1: 05",
	}, lines)
}

func TestRawLoggerNop(t *testing.T) {
	assert.NotPanics(t, func() { NewRaw(nil).Log(true, []byte{1}) })
}
