package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/miraie-core/internal/infrastructure/config"
)

// Availability payloads understood by Home Assistant's default
// payload_available / payload_not_available.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// commandSuffix terminates every command topic.
const commandSuffix = "set"

// Topics builds the MQTT topics used to talk to Home Assistant.
//
// Discovery config lives under the discovery prefix; everything else
// (state, availability, commands) lives under the base topic:
//
//	topics := mqtt.TopicsFromConfig(cfg.HomeAssistant)
//	topics.DiscoveryConfig("climate", "miraie_ac1")
//	// Returns: "homeassistant/climate/miraie/miraie_ac1/config"
//	topics.Command("climate.living_room", "mode")
//	// Returns: "miraie/climate.living_room/mode/set"
type Topics struct {
	DiscoveryPrefix string
	NodeID          string
	BaseTopic       string
	StatusTopic     string
}

// TopicsFromConfig returns the topic builder for the given Home Assistant settings.
func TopicsFromConfig(cfg config.HomeAssistantConfig) Topics {
	return Topics{
		DiscoveryPrefix: cfg.DiscoveryPrefix,
		NodeID:          cfg.NodeID,
		BaseTopic:       cfg.BaseTopic,
		StatusTopic:     cfg.StatusTopic,
	}
}

// =============================================================================
// Discovery
// =============================================================================

// DiscoveryConfig returns the retained discovery config topic for an entity.
//
// Example: homeassistant/switch/miraie/miraie_ac1_display/config
func (t Topics) DiscoveryConfig(component, objectID string) string {
	if t.NodeID == "" {
		return fmt.Sprintf("%s/%s/%s/config", t.DiscoveryPrefix, component, objectID)
	}
	return fmt.Sprintf("%s/%s/%s/%s/config", t.DiscoveryPrefix, component, t.NodeID, objectID)
}

// HomeAssistantStatus returns the topic Home Assistant publishes its birth
// and last-will messages on.
//
// Example: homeassistant/status
func (t Topics) HomeAssistantStatus() string {
	if t.StatusTopic != "" {
		return t.StatusTopic
	}
	return t.DiscoveryPrefix + "/status"
}

// =============================================================================
// Entity Topics
// =============================================================================

// State returns the retained JSON state topic of an entity.
//
// Example: miraie/climate.living_room/state
func (t Topics) State(entityID string) string {
	return fmt.Sprintf("%s/%s/state", t.BaseTopic, entityID)
}

// Availability returns the retained availability topic of an entity.
//
// Example: miraie/climate.living_room/availability
func (t Topics) Availability(entityID string) string {
	return fmt.Sprintf("%s/%s/availability", t.BaseTopic, entityID)
}

// Command returns the topic Home Assistant publishes a command on.
//
// Example: miraie/climate.living_room/temperature/set
func (t Topics) Command(entityID, command string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.BaseTopic, entityID, command, commandSuffix)
}

// BridgeStatus returns the availability topic of this process as a whole.
//
// Example: miraie/bridge/status
func (t Topics) BridgeStatus() string {
	return fmt.Sprintf("%s/bridge/status", t.BaseTopic)
}

// BridgeHealth returns the retained health report topic.
//
// Example: miraie/bridge/health
func (t Topics) BridgeHealth() string {
	return fmt.Sprintf("%s/bridge/health", t.BaseTopic)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllCommands returns a pattern matching every entity command topic.
//
// Pattern: miraie/+/+/set
func (t Topics) AllCommands() string {
	return fmt.Sprintf("%s/+/+/%s", t.BaseTopic, commandSuffix)
}

// ParseCommand splits a command topic into entity ID and command name.
// ok is false for topics that do not match AllCommands.
func (t Topics) ParseCommand(topic string) (entityID, command string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.BaseTopic+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != commandSuffix || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
