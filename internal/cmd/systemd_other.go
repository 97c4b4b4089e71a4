//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
)

var errNoSystemd = errors.New("service installation is only supported on linux")

func install(*slog.Logger, []string) error { return errNoSystemd }
func uninstall(*slog.Logger) error         { return errNoSystemd }
