//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const servicePath = "/etc/systemd/system/" + serviceName

func install(logger *slog.Logger, args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return err
	}
	if err := os.WriteFile(servicePath, []byte(unitContent(exe, args)), 0o644); err != nil {
		return err
	}
	for _, step := range [][]string{{"daemon-reload"}, {"enable", serviceName}, {"restart", serviceName}} {
		if err := systemctl(step...); err != nil {
			return err
		}
	}
	logger.Info("padbridge service installed", "path", servicePath, "exe", exe)
	return nil
}

func uninstall(logger *slog.Logger) error {
	var errs []error
	for _, step := range [][]string{{"stop", serviceName}, {"disable", serviceName}} {
		if err := systemctl(step...); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.Remove(servicePath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := systemctl("daemon-reload"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("padbridge service removed", "path", servicePath)
	return nil
}

func systemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
