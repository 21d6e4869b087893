package miraieac

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/nerrad567/miraie-core/internal/infrastructure/config"
	"github.com/nerrad567/miraie-core/internal/infrastructure/logging"
	"github.com/nerrad567/miraie-core/internal/infrastructure/mqtt"
)

// Broker reconnect bounds.
const (
	brokerInitialDelay = time.Second
	brokerMaxDelay     = time.Minute
)

// Config holds the MirAIe cloud endpoints.
type Config struct {
	AuthURL     string
	APIURL      string
	ClientID    string
	Scope       string
	BrokerHost  string
	BrokerPort  int
	BrokerTLS   bool
	HTTPTimeout time.Duration
}

// ConfigFrom converts the miraie section of config.yaml.
func ConfigFrom(cfg config.MirAIeConfig) Config {
	return Config{
		AuthURL:     cfg.AuthURL,
		APIURL:      cfg.APIURL,
		ClientID:    cfg.ClientID,
		Scope:       cfg.Scope,
		BrokerHost:  cfg.BrokerHost,
		BrokerPort:  cfg.BrokerPort,
		BrokerTLS:   cfg.BrokerTLS,
		HTTPTimeout: time.Duration(cfg.HTTPTimeout) * time.Second,
	}
}

// Logger is the logging interface used by the hub.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Broker is the cloud MQTT connection. *mqtt.Client satisfies it.
type Broker interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Close() error
}

// BrokerDialer opens a Broker. Tests replace it to avoid a network broker.
type BrokerDialer func(opts mqtt.Options) (Broker, error)

// Home is the account's home and the devices in it.
type Home struct {
	ID      string
	Devices []*Device
}

// Hub is an authenticated session with the MirAIe cloud.
//
// Lifecycle:
//
//	hub := miraieac.NewHub(cfg, miraieac.WithLogger(logger))
//	if err := hub.Init(ctx, username, password); err != nil { ... }
//	defer hub.Close()
//	for _, d := range hub.Home().Devices { ... }
type Hub struct {
	cfg        Config
	httpClient *http.Client
	dial       BrokerDialer
	logger     Logger

	mu     sync.RWMutex
	home   *Home
	broker Broker
	login  *loginSource
	closed bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithHTTPClient sets the base HTTP client used for cloud requests.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Hub) { h.httpClient = c }
}

// WithBrokerDialer replaces the MQTT connection factory.
func WithBrokerDialer(d BrokerDialer) Option {
	return func(h *Hub) { h.dial = d }
}

// WithLogger sets the hub's logger.
func WithLogger(l Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// NewHub creates an uninitialised hub.
func NewHub(cfg Config, opts ...Option) *Hub {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	h := &Hub{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.dial == nil {
		h.dial = h.dialMQTT
	}
	return h
}

func (h *Hub) dialMQTT(opts mqtt.Options) (Broker, error) {
	client, err := mqtt.Dial(opts)
	if err != nil {
		return nil, err
	}
	client.SetLogger(h.logger)
	return client, nil
}

// Init logs in, discovers the account's devices, loads their current status
// and subscribes to their status topics on the cloud broker.
//
// On failure nothing stays connected and Init may be called again.
func (h *Hub) Init(ctx context.Context, username, password string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.broker != nil {
		return ErrAlreadyInitialised
	}

	login := &loginSource{
		cfg:      h.cfg,
		client:   h.httpClient,
		username: username,
		password: password,
	}

	// Log in up front so bad credentials surface as ErrAuthFailed rather
	// than as a transport error from the first API call.
	first, err := login.login(ctx)
	if err != nil {
		return err
	}
	tokens := oauth2.ReuseTokenSourceWithExpiry(first, login, tokenEarlyExpiry)

	api := newCloudAPI(h.cfg, h.httpClient, tokens)
	home, err := h.discover(ctx, api, login.UserID())
	if err != nil {
		return err
	}

	for _, d := range home.Devices {
		payload, err := api.deviceStatus(ctx, d.ID())
		if err != nil {
			h.logger.Warn("initial status unavailable", "device_id", d.ID(), "error", err)
			continue
		}
		if err := d.applyStatus(payload); err != nil {
			h.logger.Warn("initial status partially invalid", "device_id", d.ID(), "error", err)
		}
	}

	broker, err := h.dial(mqtt.Options{
		Host:     h.cfg.BrokerHost,
		Port:     h.cfg.BrokerPort,
		TLS:      h.cfg.BrokerTLS,
		ClientID: "an" + randomSuffix(),
		Credentials: func() (string, string) {
			tok, err := tokens.Token()
			if err != nil {
				h.logger.Error("refreshing broker credentials failed", "error", err)
				return login.UserID(), ""
			}
			return login.UserID(), tok.AccessToken
		},
		InitialDelay: brokerInitialDelay,
		MaxDelay:     brokerMaxDelay,
	})
	if err != nil {
		return fmt.Errorf("connecting to MirAIe broker: %w", err)
	}

	for _, d := range home.Devices {
		if err := h.subscribeDevice(broker, d); err != nil {
			broker.Close() //nolint:errcheck // best effort on error path
			return err
		}
	}

	h.home = home
	h.broker = broker
	h.login = login
	h.closed = false

	h.logger.Info("MirAIe hub initialised", "home_id", home.ID, "devices", len(home.Devices))
	return nil
}

// discover builds the Home from the first home of the account.
func (h *Hub) discover(ctx context.Context, api *cloudAPI, userID string) (*Home, error) {
	homes, err := api.homes(ctx)
	if err != nil {
		return nil, err
	}
	if len(homes) == 0 {
		return nil, ErrNoHome
	}
	first := homes[0]

	type found struct {
		device deviceResponse
		space  string
	}
	var devices []found
	var ids []string
	for _, space := range first.Spaces {
		for _, d := range space.Devices {
			devices = append(devices, found{device: d, space: space.SpaceName})
			ids = append(ids, d.DeviceID)
		}
	}

	home := &Home{ID: first.HomeID}
	if len(ids) == 0 {
		return home, nil
	}

	details, err := api.deviceDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]detailsResponse, len(details))
	for _, d := range details {
		byID[d.DeviceID] = d
	}

	for _, f := range devices {
		topic := fmt.Sprintf("%s/%s/%s", userID, first.HomeID, f.device.DeviceID)
		if len(f.device.Topic) > 0 && f.device.Topic[0] != "" {
			topic = f.device.Topic[0]
		}
		det := byID[f.device.DeviceID]
		home.Devices = append(home.Devices, newDevice(
			f.device.DeviceID,
			f.device.DeviceName,
			f.space,
			topic,
			Details{
				Brand:           det.Brand,
				ModelName:       det.ModelName,
				ModelNumber:     det.ModelNumber,
				FirmwareVersion: det.FirmwareVersion,
				MacAddress:      det.MacAddress,
				Category:        det.Category,
			},
			h.currentBroker,
		))
	}
	return home, nil
}

func (h *Hub) subscribeDevice(broker Broker, d *Device) error {
	handler := func(topic string, payload []byte) error {
		if err := d.applyStatus(payload); err != nil {
			return fmt.Errorf("device %s: %w", d.ID(), err)
		}
		return nil
	}
	for _, suffix := range []string{"/status", "/connectionStatus"} {
		if err := broker.Subscribe(d.Topic()+suffix, 0, handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", d.Topic()+suffix, err)
		}
	}
	return nil
}

// currentBroker is handed to devices so commands fail cleanly after Close.
func (h *Hub) currentBroker() Publisher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed || h.broker == nil {
		return nil
	}
	return h.broker
}

// Home returns the discovered home, or nil before Init.
func (h *Hub) Home() *Home {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.home
}

// Devices returns the devices of the home. Empty before Init.
func (h *Hub) Devices() []*Device {
	home := h.Home()
	if home == nil {
		return nil
	}
	return home.Devices
}

// UserID returns the MirAIe user ID of the logged-in account.
func (h *Hub) UserID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.login == nil {
		return ""
	}
	return h.login.UserID()
}

// Close disconnects from the cloud broker. Devices keep their last status;
// commands return ErrNotConnected afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	broker := h.broker
	h.broker = nil
	h.closed = true
	h.mu.Unlock()

	if broker == nil {
		return nil
	}
	return broker.Close()
}

func randomSuffix() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
