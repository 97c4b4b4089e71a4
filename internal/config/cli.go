// Package config defines the padbridge command line.
package config

import "github.com/Alia5/padbridge/internal/cmd"

// CLI is the root command. Every flag can also come from a config file
// found by configpaths, with flags and environment taking precedence.
type CLI struct {
	ConfigFile string `name:"config" help:"Config file (json, yaml or toml)" env:"PADBRIDGE_CONFIG" type:"path"`

	Log struct {
		Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" enum:"trace,debug,info,warn,error" env:"PADBRIDGE_LOG_LEVEL"`
		File    string `help:"Also write logs to this file" type:"path" env:"PADBRIDGE_LOG_FILE"`
		RawFile string `help:"Write raw device reports to this file" type:"path"`
	} `embed:"" prefix:"log."`

	Bridge  cmd.Bridge         `cmd:"" default:"withargs" help:"Bridge physical controllers to virtual pads"`
	Devices cmd.Devices        `cmd:"" help:"List connected controllers"`
	Actions cmd.ActionsCommand `cmd:"" help:"Special action catalog tools"`
	Config  cmd.ConfigCommand  `cmd:"" help:"Configuration helpers"`
	Service cmd.SystemdCommand `cmd:"" help:"Manage the systemd service"`
}
