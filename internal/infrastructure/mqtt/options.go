package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/miraie-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Message is a fixed message the client publishes on a lifecycle event
// (will, birth, graceful shutdown).
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Options describes a broker connection independent of where the settings
// came from. Connect builds one from config.MQTTConfig; other callers (the
// MirAIe cloud session) build their own.
type Options struct {
	Host     string
	Port     int
	TLS      bool
	ClientID string

	// Username and Password are static credentials. Credentials, when set,
	// takes precedence and is called on every (re)connect, which lets callers
	// rotate short-lived tokens.
	Username    string
	Password    string
	Credentials func() (username, password string)

	QoS          byte
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Will is registered as the Last Will and Testament.
	Will *Message
	// Birth is published after every successful (re)connect.
	Birth *Message
	// Offline is published by Close before disconnecting.
	Offline *Message
}

// OptionsFromConfig maps the local broker configuration onto Options and
// wires the bridge availability topic as will, birth and offline message.
func OptionsFromConfig(cfg config.MQTTConfig, topics Topics) Options {
	status := topics.BridgeStatus()
	return Options{
		Host:         cfg.Broker.Host,
		Port:         cfg.Broker.Port,
		TLS:          cfg.Broker.TLS,
		ClientID:     cfg.Broker.ClientID,
		Username:     cfg.Auth.Username,
		Password:     cfg.Auth.Password,
		QoS:          byte(cfg.QoS), //nolint:gosec // validated 0-2 by config.Validate
		InitialDelay: time.Duration(cfg.Reconnect.InitialDelay) * time.Second,
		MaxDelay:     time.Duration(cfg.Reconnect.MaxDelay) * time.Second,
		Will:         &Message{Topic: status, Payload: []byte(PayloadOffline), Retained: true},
		Birth:        &Message{Topic: status, Payload: []byte(PayloadOnline), Retained: true},
		Offline:      &Message{Topic: status, Payload: []byte(PayloadOffline), Retained: true},
	}
}

// BrokerURL returns the paho broker URL (tcp:// or ssl://).
func (o Options) BrokerURL() string {
	scheme := "tcp"
	if o.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.Host, o.Port)
}

// buildClientOptions creates paho MQTT options.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID and credentials (static or provider)
//   - Auto-reconnect with exponential backoff
//   - TLS configuration (if enabled)
//   - Last Will and Testament (if set)
//   - Clean session mode
//   - Unordered delivery: each handler runs in its own goroutine and may
//     publish without stalling the client's router
func buildClientOptions(o Options) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL())
	opts.SetClientID(o.ClientID)

	switch {
	case o.Credentials != nil:
		opts.SetCredentialsProvider(o.Credentials)
	case o.Username != "":
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	if o.InitialDelay > 0 {
		opts.SetConnectRetryInterval(o.InitialDelay)
	}
	if o.MaxDelay > 0 {
		opts.SetMaxReconnectInterval(o.MaxDelay)
	}

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if o.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	if o.Will != nil {
		opts.SetBinaryWill(o.Will.Topic, o.Will.Payload, o.QoS, o.Will.Retained)
	}

	return opts
}
