package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// SystemdCommand installs the bridge as a system service.
type SystemdCommand struct {
	Install   SystemdInstall   `cmd:"" help:"Install and start the padbridge systemd unit"`
	Uninstall SystemdUninstall `cmd:"" help:"Stop and remove the padbridge systemd unit"`
}

type SystemdInstall struct {
	BridgeConfig string   `help:"Config file passed to the service" type:"path"`
	Args         []string `arg:"" optional:"" passthrough:"" help:"Extra bridge flags"`
}

type SystemdUninstall struct{}

func (c *SystemdInstall) Run(logger *slog.Logger) error {
	return install(logger, c.bridgeArgs())
}

func (c *SystemdUninstall) Run(logger *slog.Logger) error {
	return uninstall(logger)
}

func (c *SystemdInstall) bridgeArgs() []string {
	args := []string{"bridge"}
	if c.BridgeConfig != "" {
		args = append(args, "--config", c.BridgeConfig)
	}
	return append(args, c.Args...)
}

const serviceName = "padbridge.service"

func unitContent(exePath string, args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	return fmt.Sprintf(`[Unit]
Description=padbridge controller bridge
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%q %s
ExecReload=/bin/kill -HUP $MAINPID
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=multi-user.target
`, exePath, strings.Join(quoted, " "), filepath.Dir(exePath))
}
