//go:build !linux

package transport

import "errors"

// Hidraw is only available on Linux.
type Hidraw struct{ HID }

func OpenHidraw(path string) (*Hidraw, error) {
	return nil, errors.New("hidraw is only supported on linux")
}
