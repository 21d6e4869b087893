package hass

import (
	"maps"
	"time"
)

// Well-known state values.
const (
	StateOn          = "on"
	StateOff         = "off"
	StateUnavailable = "unavailable"
)

// State is the rendered state of an entity at one point in time.
type State struct {
	EntityID    string         `json:"entity_id"`
	Domain      string         `json:"domain"`
	Platform    string         `json:"platform"`
	UniqueID    string         `json:"unique_id"`
	EntryID     string         `json:"config_entry_id"`
	Name        string         `json:"name"`
	State       string         `json:"state"`
	Available   bool           `json:"available"`
	Attributes  map[string]any `json:"attributes"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Float returns a numeric attribute. ok is false when the attribute is
// missing or not a float64.
func (s State) Float(key string) (v float64, ok bool) {
	v, ok = s.Attributes[key].(float64)
	return v, ok
}

// String returns a string attribute, or "" when missing.
func (s State) String(key string) string {
	v, _ := s.Attributes[key].(string)
	return v
}

// clone returns a copy whose attribute map can be handed to listeners.
func (s State) clone() State {
	s.Attributes = maps.Clone(s.Attributes)
	return s
}

// StateListener receives every state write. Calls are made synchronously
// from the goroutine that wrote the state and must not block.
type StateListener interface {
	StateChanged(s State)
}

// EntityListener is optionally implemented by listeners that also track
// the set of entities (MQTT discovery).
type EntityListener interface {
	EntityAdded(e *RegisteredEntity)
	EntityRemoved(e *RegisteredEntity)
}

// renderState reads the entity's current values into a State.
func renderState(re *RegisteredEntity, now time.Time) State {
	s := State{
		EntityID:    re.EntityID,
		Domain:      re.Domain,
		Platform:    re.Platform,
		UniqueID:    re.Entity.UniqueID(),
		EntryID:     re.EntryID,
		Name:        re.Entity.Name(),
		Available:   re.Entity.Available(),
		Attributes:  map[string]any{},
		LastUpdated: now,
	}
	if ic, ok := re.Entity.(Icon); ok && ic.Icon() != "" {
		s.Attributes["icon"] = ic.Icon()
	}

	switch e := re.Entity.(type) {
	case ClimateEntity:
		attrs := e.ClimateAttributes()
		s.State = e.HVACMode()
		s.Attributes["hvac_mode"] = s.State
		s.Attributes["hvac_modes"] = attrs.HVACModes
		s.Attributes["min_temp"] = attrs.MinTemp
		s.Attributes["max_temp"] = attrs.MaxTemp
		s.Attributes["target_temp_step"] = attrs.TargetTempStep
		s.Attributes["current_temperature"] = e.CurrentTemperature()
		s.Attributes["temperature"] = e.TargetTemperature()
		s.Attributes["supported_features"] = int(attrs.SupportedFeatures)
		if attrs.SupportedFeatures.Has(FeatureFanMode) {
			s.Attributes["fan_modes"] = attrs.FanModes
			s.Attributes["fan_mode"] = e.FanMode()
		}
		if attrs.SupportedFeatures.Has(FeatureSwingMode) {
			s.Attributes["swing_modes"] = attrs.SwingModes
			s.Attributes["swing_mode"] = e.SwingMode()
		}
		if attrs.SupportedFeatures.Has(FeaturePresetMode) {
			s.Attributes["preset_modes"] = attrs.PresetModes
			s.Attributes["preset_mode"] = e.PresetMode()
		}
	case SwitchEntity:
		s.State = StateOff
		if e.IsOn() {
			s.State = StateOn
		}
	}

	if !s.Available {
		s.State = StateUnavailable
	}
	return s
}
