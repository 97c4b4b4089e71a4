package events

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	DefaultTopicPrefix  = "padbridge"
	DefaultClientID     = "padbridge"
	ConnectTimeout      = 10 * time.Second
	PublishTimeout      = 5 * time.Second
	ReconnectInterval   = 5 * time.Second
	disconnectQuiesceMs = 1000
)

// MQTTConfig selects the broker.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
}

// MQTT publishes events to a broker. Lifecycle events use QoS 1 and are
// retained; action and profile events use QoS 0. Publishing never blocks:
// delivery results are only logged.
type MQTT struct {
	client paho.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

var _ Publisher = (*MQTT)(nil)

// NewMQTT connects to the broker. "<prefix>/status" carries "online" while
// connected and "offline" as the will message.
func NewMQTT(cfg MQTTConfig, logger *slog.Logger) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultTopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	status := cfg.Prefix + "/status"
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(ReconnectInterval).
		SetWill(status, "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			logger.Info("MQTT connected", "broker", cfg.Broker)
			c.Publish(status, 1, true, "online")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("MQTT connection lost", "error", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(ConnectTimeout) {
		return nil, errors.New("mqtt: connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to broker: %w", err)
	}
	return newMQTT(client, cfg.Prefix, logger), nil
}

func newMQTT(client paho.Client, prefix string, logger *slog.Logger) *MQTT {
	return &MQTT{client: client, prefix: prefix, logger: logger, now: time.Now}
}

func (m *MQTT) publish(e Event, qos byte, retained bool) {
	e.Time = m.now()
	payload, err := Format(e)
	if err != nil {
		m.logger.Error("Failed to format event", "event", e.Event, "error", err)
		return
	}
	topic := Topic(m.prefix, e.Device, e.Event)
	token := m.client.Publish(topic, qos, retained, payload)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if !token.WaitTimeout(PublishTimeout) {
			m.logger.Warn("MQTT publish timed out", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			m.logger.Warn("MQTT publish failed", "topic", topic, "error", err)
		}
	}()
}

func (m *MQTT) DeviceConnected(device int, info DeviceInfo) {
	m.publish(Event{Device: device, Event: EventConnected, Info: &info}, 1, true)
}

func (m *MQTT) DeviceRemoved(device int, reason error) {
	m.publish(Event{Device: device, Event: EventRemoved, Reason: reasonText(reason)}, 1, true)
}

func (m *MQTT) ActionFired(device int, name, kind string) {
	m.publish(Event{Device: device, Event: EventAction, Action: name, Kind: kind}, 0, false)
}

func (m *MQTT) ProfileLoaded(device int, profile string) {
	m.publish(Event{Device: device, Event: EventProfile, Profile: profile}, 0, false)
}

// Close waits for pending publishes and disconnects.
func (m *MQTT) Close() error {
	m.wg.Wait()
	m.client.Publish(m.prefix+"/status", 1, true, "offline").WaitTimeout(PublishTimeout)
	m.client.Disconnect(disconnectQuiesceMs)
	return nil
}
