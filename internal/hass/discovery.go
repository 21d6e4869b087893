package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/miraie-core/internal/infrastructure/mqtt"
)

// commandTimeout bounds a service call triggered by an MQTT command.
const commandTimeout = 10 * time.Second

// MQTT command names below <base>/<entity_id>/.
const (
	commandMode        = "mode"
	commandTemperature = "temperature"
	commandFanMode     = "fan_mode"
	commandSwingMode   = "swing_mode"
	commandPresetMode  = "preset_mode"
	commandPower       = "power"
	commandSwitch      = "switch"
)

// Payloads Home Assistant sends for power and switch commands.
const (
	payloadOn  = "ON"
	payloadOff = "OFF"
)

// MQTTClient is the subset of *mqtt.Client used by Discovery.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// ServiceCaller is the part of the Host used by Discovery.
type ServiceCaller interface {
	CallService(ctx context.Context, domain, service string, call ServiceCall) error
	Entities() []*RegisteredEntity
	States() []State
}

// DiscoveryOptions configures Discovery.
type DiscoveryOptions struct {
	Client  MQTTClient
	Topics  mqtt.Topics
	Host    ServiceCaller
	QoS     byte
	Version string
	Logger  Logger
}

// Discovery publishes entities to Home Assistant using MQTT discovery and
// turns Home Assistant's commands into service calls.
//
// Config, state and availability messages are retained, so Home Assistant
// picks them up after its own restart; it also republishes everything when
// Home Assistant announces itself online.
type Discovery struct {
	client  MQTTClient
	topics  mqtt.Topics
	host    ServiceCaller
	qos     byte
	version string
	logger  Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	republish sync.WaitGroup
}

// NewDiscovery creates a discovery publisher. Register it on the host with
// AddStateListener and call Start once the MQTT client is connected.
func NewDiscovery(opts DiscoveryOptions) *Discovery {
	d := &Discovery{
		client:  opts.Client,
		topics:  opts.Topics,
		host:    opts.Host,
		qos:     opts.QoS,
		version: opts.Version,
		logger:  opts.Logger,
		ctx:     context.Background(),
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d
}

// Start subscribes to Home Assistant's status topic and to entity command
// topics, then publishes every entity already added to the host.
func (d *Discovery) Start(ctx context.Context) error {
	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	if err := d.client.Subscribe(d.topics.HomeAssistantStatus(), d.qos, d.handleStatus); err != nil {
		return fmt.Errorf("subscribe to Home Assistant status: %w", err)
	}
	if err := d.client.Subscribe(d.topics.AllCommands(), d.qos, d.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	d.logger.Info("MQTT discovery started",
		"status_topic", d.topics.HomeAssistantStatus(),
		"command_topic", d.topics.AllCommands())

	d.PublishAll()
	return nil
}

// Stop ends command handling and waits for a pending republish.
func (d *Discovery) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	d.republish.Wait()
}

// PublishAll publishes the config and last state of every entity.
func (d *Discovery) PublishAll() {
	for _, re := range d.host.Entities() {
		d.EntityAdded(re)
	}
	for _, s := range d.host.States() {
		d.StateChanged(s)
	}
}

// EntityAdded publishes the entity's discovery config.
func (d *Discovery) EntityAdded(re *RegisteredEntity) {
	payload, err := json.Marshal(d.discoveryConfig(re))
	if err != nil {
		d.logger.Error("encoding discovery config", "entity_id", re.EntityID, "error", err)
		return
	}
	d.publish(d.configTopic(re), payload)
}

// EntityRemoved clears the entity's retained config, state and availability.
func (d *Discovery) EntityRemoved(re *RegisteredEntity) {
	d.publish(d.configTopic(re), []byte{})
	d.publish(d.topics.State(re.EntityID), []byte{})
	d.publish(d.topics.Availability(re.EntityID), []byte{})
}

// StateChanged publishes the entity's JSON state and availability.
func (d *Discovery) StateChanged(s State) {
	doc := make(map[string]any, len(s.Attributes)+1)
	for k, v := range s.Attributes {
		doc[k] = v
	}
	doc["state"] = s.State

	payload, err := json.Marshal(doc)
	if err != nil {
		d.logger.Error("encoding state", "entity_id", s.EntityID, "error", err)
		return
	}
	d.publish(d.topics.State(s.EntityID), payload)

	availability := mqtt.PayloadOffline
	if s.Available {
		availability = mqtt.PayloadOnline
	}
	d.publish(d.topics.Availability(s.EntityID), []byte(availability))
}

func (d *Discovery) publish(topic string, payload []byte) {
	if !d.client.IsConnected() {
		return
	}
	if err := d.client.Publish(topic, payload, d.qos, true); err != nil {
		d.logger.Warn("MQTT publish failed", "topic", topic, "error", err)
	}
}

func (d *Discovery) configTopic(re *RegisteredEntity) string {
	return d.topics.DiscoveryConfig(re.Domain, objectID(re))
}

// objectID is the entity ID without its domain.
func objectID(re *RegisteredEntity) string {
	return strings.TrimPrefix(re.EntityID, re.Domain+".")
}

// discoveryConfig builds the Home Assistant MQTT discovery document.
func (d *Discovery) discoveryConfig(re *RegisteredEntity) map[string]any {
	e := re.Entity
	info := e.DeviceInfo()
	identifiers := make([]string, 0, len(info.Identifiers))
	for _, id := range info.Identifiers {
		identifiers = append(identifiers, id.Domain+"_"+id.ID)
	}
	device := map[string]any{"identifiers": identifiers, "name": info.Name}
	if info.Manufacturer != "" {
		device["manufacturer"] = info.Manufacturer
	}
	if info.Model != "" {
		device["model"] = info.Model
	}
	if info.SWVersion != "" {
		device["sw_version"] = info.SWVersion
	}

	stateTopic := d.topics.State(re.EntityID)
	cfg := map[string]any{
		"name":      e.Name(),
		"unique_id": Slugify(re.Platform + "_" + e.UniqueID()),
		"object_id": objectID(re),
		"device":    device,
		"availability": []map[string]string{
			{"topic": d.topics.BridgeStatus()},
			{"topic": d.topics.Availability(re.EntityID)},
		},
		"availability_mode": "all",
		"origin": map[string]string{
			"name":       "MirAIe Core",
			"sw_version": d.version,
		},
	}
	if ic, ok := e.(Icon); ok && ic.Icon() != "" {
		cfg["icon"] = ic.Icon()
	}
	if c, ok := e.(Categorized); ok && c.EntityCategory() != CategoryNone {
		cfg["entity_category"] = string(c.EntityCategory())
	}

	switch ce := e.(type) {
	case ClimateEntity:
		attrs := ce.ClimateAttributes()
		cfg["modes"] = attrs.HVACModes
		cfg["mode_state_topic"] = stateTopic
		cfg["mode_state_template"] = "{{ value_json.hvac_mode }}"
		cfg["mode_command_topic"] = d.topics.Command(re.EntityID, commandMode)
		cfg["temperature_state_topic"] = stateTopic
		cfg["temperature_state_template"] = "{{ value_json.temperature }}"
		cfg["temperature_command_topic"] = d.topics.Command(re.EntityID, commandTemperature)
		cfg["current_temperature_topic"] = stateTopic
		cfg["current_temperature_template"] = "{{ value_json.current_temperature }}"
		cfg["min_temp"] = attrs.MinTemp
		cfg["max_temp"] = attrs.MaxTemp
		cfg["temp_step"] = attrs.TargetTempStep
		cfg["precision"] = attrs.Precision
		cfg["temperature_unit"] = "C"
		if attrs.SupportedFeatures.Has(FeatureTurnOn) || attrs.SupportedFeatures.Has(FeatureTurnOff) {
			cfg["power_command_topic"] = d.topics.Command(re.EntityID, commandPower)
		}
		if attrs.SupportedFeatures.Has(FeatureFanMode) {
			cfg["fan_modes"] = attrs.FanModes
			cfg["fan_mode_state_topic"] = stateTopic
			cfg["fan_mode_state_template"] = "{{ value_json.fan_mode }}"
			cfg["fan_mode_command_topic"] = d.topics.Command(re.EntityID, commandFanMode)
		}
		if attrs.SupportedFeatures.Has(FeatureSwingMode) {
			cfg["swing_modes"] = attrs.SwingModes
			cfg["swing_mode_state_topic"] = stateTopic
			cfg["swing_mode_state_template"] = "{{ value_json.swing_mode }}"
			cfg["swing_mode_command_topic"] = d.topics.Command(re.EntityID, commandSwingMode)
		}
		if attrs.SupportedFeatures.Has(FeaturePresetMode) {
			// "none" is implicit in MQTT climate and must not be listed.
			presets := make([]string, 0, len(attrs.PresetModes))
			for _, p := range attrs.PresetModes {
				if p != "none" {
					presets = append(presets, p)
				}
			}
			cfg["preset_modes"] = presets
			cfg["preset_mode_state_topic"] = stateTopic
			cfg["preset_mode_value_template"] = "{{ value_json.preset_mode }}"
			cfg["preset_mode_command_topic"] = d.topics.Command(re.EntityID, commandPresetMode)
		}
	case SwitchEntity:
		cfg["state_topic"] = stateTopic
		cfg["value_template"] = "{{ value_json.state }}"
		cfg["state_on"] = StateOn
		cfg["state_off"] = StateOff
		cfg["command_topic"] = d.topics.Command(re.EntityID, commandSwitch)
		cfg["payload_on"] = payloadOn
		cfg["payload_off"] = payloadOff
	}
	return cfg
}

// handleStatus republishes everything when Home Assistant comes online.
func (d *Discovery) handleStatus(_ string, payload []byte) error {
	if strings.TrimSpace(string(payload)) != mqtt.PayloadOnline {
		return nil
	}
	d.mu.Lock()
	if d.ctx.Err() != nil {
		d.mu.Unlock()
		return nil
	}
	d.republish.Add(1)
	d.mu.Unlock()

	d.logger.Info("Home Assistant online, republishing discovery")
	go func() {
		defer d.republish.Done()
		d.PublishAll()
	}()
	return nil
}

// handleCommand maps a command topic onto a service call.
func (d *Discovery) handleCommand(topic string, payload []byte) error {
	entityID, command, ok := d.topics.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("unexpected command topic %q", topic)
	}
	domain, _, _ := strings.Cut(entityID, ".")
	value := strings.TrimSpace(string(payload))

	service, data, err := commandToService(domain, command, value)
	if err != nil {
		return fmt.Errorf("%s: %w", entityID, err)
	}

	d.mu.Lock()
	parent := d.ctx
	d.mu.Unlock()
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	return d.host.CallService(ctx, domain, service, ServiceCall{EntityID: entityID, Data: data})
}

func commandToService(domain, command, value string) (string, map[string]any, error) {
	switch domain + "/" + command {
	case DomainClimate + "/" + commandMode:
		return ServiceSetHVACMode, map[string]any{"hvac_mode": value}, nil
	case DomainClimate + "/" + commandTemperature:
		return ServiceSetTemperature, map[string]any{"temperature": value}, nil
	case DomainClimate + "/" + commandFanMode:
		return ServiceSetFanMode, map[string]any{"fan_mode": value}, nil
	case DomainClimate + "/" + commandSwingMode:
		return ServiceSetSwingMode, map[string]any{"swing_mode": value}, nil
	case DomainClimate + "/" + commandPresetMode:
		return ServiceSetPresetMode, map[string]any{"preset_mode": value}, nil
	case DomainClimate + "/" + commandPower, DomainSwitch + "/" + commandSwitch:
		switch value {
		case payloadOn:
			return ServiceTurnOn, nil, nil
		case payloadOff:
			return ServiceTurnOff, nil, nil
		}
		return "", nil, fmt.Errorf("%w: payload %q", ErrInvalidServiceData, value)
	}
	return "", nil, fmt.Errorf("%w: %s command %q", ErrServiceNotFound, domain, command)
}
