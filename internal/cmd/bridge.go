package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/padbridge/actions"
	"github.com/Alia5/padbridge/apiclient"
	"github.com/Alia5/padbridge/fusion"
	"github.com/Alia5/padbridge/internal/events"
	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/internal/server/ws"
	"github.com/Alia5/padbridge/poll"
	"github.com/Alia5/padbridge/virtualpad"
)

type DeviceFlags struct {
	VID       uint16        `help:"Vendor ID to enumerate" default:"0x04b4" env:"PADBRIDGE_DEVICE_VID"`
	PID       uint16        `help:"Product ID to enumerate" default:"0x2412" env:"PADBRIDGE_DEVICE_PID"`
	Interface int           `help:"HID interface to open, -1 for any" default:"-1"`
	Path      []string      `help:"Open these hidraw/HID paths instead of enumerating" env:"PADBRIDGE_DEVICE_PATH"`
	Serial    []string      `help:"Serial ports carrying bridged reports"`
	Baud      int           `help:"Serial baud rate" default:"115200"`
	WebSocket []string      `help:"ws:// URLs of remote report bridges" name:"websocket"`
	Rescan    time.Duration `help:"Interval for picking up newly plugged pads, 0 disables" default:"2s"`
}

type PollFlags struct {
	IdleTimeout      time.Duration `help:"Mark a pad idle after this long without input, 0 disables" default:"5m"`
	MaxFallbackDelta time.Duration `help:"Clamp for the wall-clock delta used when the device clock stalls, 0 disables" default:"0s"`
	Fusion           bool          `help:"Track orientation from the motion sensors" default:"true" negatable:""`
}

type ActionFlags struct {
	File         string        `help:"Special action catalog (yaml, toml or json)" type:"path" env:"PADBRIDGE_ACTIONS_FILE"`
	Profile      string        `help:"Profile applied to every pad at start"`
	InitAttempts int           `help:"Action table initialization attempts" default:"3"`
	InitTimeout  time.Duration `help:"Wait per initialization attempt" default:"500ms"`
	InitPoll     time.Duration `help:"Initialization poll interval" default:"10ms"`
}

type ViiperFlags struct {
	Addr     string        `help:"VIIPER API server address" default:"localhost:3242" env:"PADBRIDGE_VIIPER_ADDR"`
	Password string        `help:"VIIPER API password" env:"PADBRIDGE_VIIPER_PASSWORD"`
	Disabled bool          `help:"Do not create virtual pads"`
	Bus      uint32        `help:"Bus to create devices on, 0 picks or creates one"`
	Keyboard bool          `help:"Create a virtual keyboard for key and macro actions" default:"true" negatable:""`
	Timeout  time.Duration `help:"API request timeout" default:"5s"`
}

type MQTTFlags struct {
	Broker   string `help:"MQTT broker URL, empty disables events" env:"PADBRIDGE_MQTT_BROKER"`
	ClientID string `help:"MQTT client ID" default:"padbridge"`
	Username string `help:"MQTT username" env:"PADBRIDGE_MQTT_USERNAME"`
	Password string `help:"MQTT password" env:"PADBRIDGE_MQTT_PASSWORD"`
	Prefix   string `help:"Topic prefix" default:"padbridge"`
}

type WSFlags struct {
	Addr string  `help:"Live state websocket listen address, empty disables" env:"PADBRIDGE_WS_ADDR"`
	Rate float64 `help:"Frames per second per client" default:"60"`
}

// Bridge runs the controller bridge.
type Bridge struct {
	Device  DeviceFlags `embed:"" prefix:"device."`
	Poll    PollFlags   `embed:"" prefix:"poll."`
	Actions ActionFlags `embed:"" prefix:"actions."`
	Viiper  ViiperFlags `embed:"" prefix:"viiper."`
	MQTT    MQTTFlags   `embed:"" prefix:"mqtt."`
	WS      WSFlags     `embed:"" prefix:"ws."`
}

// Run is called by Kong when the bridge command is executed.
func (b *Bridge) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return b.StartBridge(ctx, logger, rawLogger)
}

func (b *Bridge) retryPolicy() actions.RetryPolicy {
	return actions.RetryPolicy{
		Attempts:       b.Actions.InitAttempts,
		AttemptTimeout: b.Actions.InitTimeout,
		PollInterval:   b.Actions.InitPoll,
	}
}

// catalogSource reads the action file on every forced initialization, so
// an edited file is picked up by the retry path as well as by reloads.
func (b *Bridge) catalogSource() actions.CatalogSource {
	if b.Actions.File == "" {
		return actions.StaticSource(defaultCatalog())
	}
	path := b.Actions.File
	return actions.CatalogFunc(func() (*actions.Catalog, error) {
		c, _, err := actions.LoadFile(path)
		return c, err
	})
}

// StartBridge runs until ctx is done.
func (b *Bridge) StartBridge(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	var (
		catalog  *actions.Catalog
		profiles actions.Profiles
	)
	if b.Actions.File != "" {
		c, p, err := actions.LoadFile(b.Actions.File)
		if err != nil {
			return fmt.Errorf("load actions: %w", err)
		}
		catalog, profiles = c, p
		logger.Info("Loaded special actions", "file", b.Actions.File, "actions", c.Len(), "profiles", len(p))
	}
	if catalog == nil {
		catalog = defaultCatalog()
	}
	table := actions.NewTable(b.catalogSource(), b.retryPolicy(), logger)
	if err := table.Initialize(catalog); err != nil {
		return err
	}

	var publisher events.Publisher = events.Nop{}
	if b.MQTT.Broker != "" {
		m, err := events.NewMQTT(events.MQTTConfig{
			Broker:   b.MQTT.Broker,
			ClientID: b.MQTT.ClientID,
			Username: b.MQTT.Username,
			Password: b.MQTT.Password,
			Prefix:   b.MQTT.Prefix,
		}, logger)
		if err != nil {
			return err
		}
		publisher = m
	}
	defer publisher.Close()

	var hub *ws.Hub
	if b.WS.Addr != "" {
		hub = ws.NewHub(b.WS.Rate, logger)
		srv, err := ws.Listen(b.WS.Addr, hub, logger)
		if err != nil {
			return fmt.Errorf("live state server: %w", err)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				logger.Error("Live state server failed", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	cfg := serviceConfig{
		Poll: poll.Options{
			IdleTimeout:      b.Poll.IdleTimeout,
			MaxFallbackDelta: b.Poll.MaxFallbackDelta,
			Raw:              rawLogger,
		},
		NewFilter:      b.newFilter,
		Table:          table,
		Profiles:       profiles,
		DefaultProfile: b.Actions.Profile,
		Events:         publisher,
		Hub:            hub,
		Logger:         logger,
	}

	if !b.Viiper.Disabled {
		password, err := resolvePassword(b.Viiper.Password, os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		apiCfg := apiclient.DefaultConfig()
		apiCfg.ReadTimeout, apiCfg.WriteTimeout = b.Viiper.Timeout, b.Viiper.Timeout
		apiCfg.Password = password
		client := apiclient.New(b.Viiper.Addr, &apiCfg)

		pctx, cancel := context.WithTimeout(ctx, b.Viiper.Timeout)
		ping, err := client.Ping(pctx)
		cancel()
		if err != nil {
			return fmt.Errorf("VIIPER server %s: %w", b.Viiper.Addr, err)
		}
		logger.Info("Connected to VIIPER", "addr", b.Viiper.Addr, "server", ping.Server, "version", ping.Version)

		opts := virtualpad.Options{Client: client, BusID: b.Viiper.Bus, Logger: logger}
		cfg.NewDriver = func(int) virtualpad.Driver { return virtualpad.NewViiper(opts) }
		if b.Viiper.Keyboard {
			kb := virtualpad.NewKeyboard(opts)
			defer kb.Close()
			cfg.Keys = kb
		}
	}

	svc := newService(cfg)
	defer svc.close()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	o := b.opener(logger)
	if err := b.attachAll(ctx, svc, o); err != nil {
		return err
	}

	var rescan <-chan time.Time
	if b.enumerating() && b.Device.Rescan > 0 {
		t := time.NewTicker(b.Device.Rescan)
		defer t.Stop()
		rescan = t.C
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down bridge")
			return nil
		case <-rescan:
			b.attachEnumerated(ctx, svc, o)
		case <-hup:
			b.reload(svc, logger)
		}
	}
}

// reload re-reads the action file; SIGHUP triggers it.
func (b *Bridge) reload(svc *service, logger *slog.Logger) {
	if b.Actions.File == "" {
		return
	}
	c, p, err := actions.LoadFile(b.Actions.File)
	if err != nil {
		logger.Error("Failed to reload special actions", "file", b.Actions.File, "error", err)
		return
	}
	if err := svc.cfg.Table.Reload(c); err != nil {
		logger.Error("Failed to reload special actions", "error", err)
		return
	}
	svc.dispatcher.SetProfiles(p)
	logger.Info("Reloaded special actions", "actions", c.Len(), "profiles", len(p))
}

func (b *Bridge) newFilter() fusion.Filter {
	if !b.Poll.Fusion {
		return nil
	}
	return fusion.NewComplementary(fusion.DefaultTau)
}

// defaultCatalog holds only the built-in disconnect chord.
func defaultCatalog() *actions.Catalog {
	c, _ := actions.NewCatalog(nil)
	return c.WithDefault()
}
