package log

import (
	"io"
	"sync"
	"time"
)

// RawLogger traces raw device reports.
type RawLogger interface {
	// Log records one report. in=true for reports read from a device,
	// false for reports written to it.
	Log(in bool, data []byte)
}

const hexdigits = "0123456789abcdef"

type rawLogger struct {
	w   io.Writer
	now func() time.Time
	mu  sync.Mutex
	buf []byte
}

// NewRaw creates a RawLogger writing to w. A nil writer yields a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	if w == nil {
		return nopRaw{}
	}
	return &rawLogger{w: w, now: time.Now}
}

type nopRaw struct{}

func (nopRaw) Log(bool, []byte) {}

// Log emits one line: timestamp, direction, length and space separated hex.
func (r *rawLogger) Log(in bool, data []byte) {
	if len(data) == 0 {
		return
	}
	dir := "HOST->DEV"
	if in {
		dir = "DEV->HOST"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.buf[:0]
	b = r.now().AppendFormat(b, "2006/01/02 15:04:05.000000")
	b = append(b, ' ')
	b = append(b, dir...)
	b = append(b, " len="...)
	b = appendInt(b, len(data))
	b = append(b, ':')
	for _, c := range data {
		b = append(b, ' ', hexdigits[c>>4], hexdigits[c&0x0f])
	}
	b = append(b, '\n')
	r.buf = b
	_, _ = r.w.Write(b)
}

func appendInt(b []byte, n int) []byte {
	if n >= 10 {
		b = appendInt(b, n/10)
	}
	return append(b, byte('0'+n%10))
}
