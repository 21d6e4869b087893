package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// ServiceCall targets one entity with optional service data.
type ServiceCall struct {
	EntityID string         `json:"entity_id"`
	Data     map[string]any `json:"data,omitempty"`
}

// Services lists the services the host provides per domain.
func Services() map[string][]string {
	return map[string][]string{
		DomainClimate: {
			ServiceTurnOn, ServiceTurnOff, ServiceSetTemperature, ServiceSetHVACMode,
			ServiceSetFanMode, ServiceSetSwingMode, ServiceSetPresetMode,
		},
		DomainSwitch: {ServiceTurnOn, ServiceTurnOff, ServiceToggle},
	}
}

// CallService validates the call against the entity's advertised
// capabilities and invokes the matching entity method. Errors from the
// entity are returned unchanged.
func (h *Host) CallService(ctx context.Context, domain, service string, call ServiceCall) error {
	err := h.callService(ctx, domain, service, call)

	h.mu.RLock()
	observe := h.onService
	h.mu.RUnlock()
	if observe != nil {
		observe(domain, service, err)
	}
	if err != nil {
		h.logger.Warn("service call failed",
			"domain", domain, "service", service, "entity_id", call.EntityID, "error", err)
	} else {
		h.logger.Debug("service called", "domain", domain, "service", service, "entity_id", call.EntityID)
	}
	return err
}

func (h *Host) callService(ctx context.Context, domain, service string, call ServiceCall) error {
	if !slices.Contains(Services()[domain], service) {
		return fmt.Errorf("%w: %s.%s", ErrServiceNotFound, domain, service)
	}

	re, err := h.Entity(call.EntityID)
	if err != nil {
		return err
	}
	if re.Domain != domain {
		return fmt.Errorf("%w: %s is not a %s entity", ErrInvalidServiceData, call.EntityID, domain)
	}

	switch e := re.Entity.(type) {
	case ClimateEntity:
		return callClimate(ctx, e, service, call.Data)
	case SwitchEntity:
		return callSwitch(ctx, e, service)
	}
	return fmt.Errorf("%w: %s.%s", ErrServiceNotFound, domain, service)
}

func callClimate(ctx context.Context, e ClimateEntity, service string, data map[string]any) error {
	attrs := e.ClimateAttributes()
	features := attrs.SupportedFeatures

	switch service {
	case ServiceTurnOn:
		if !features.Has(FeatureTurnOn) {
			return fmt.Errorf("%w: turn_on", ErrNotSupported)
		}
		return e.TurnOn(ctx)

	case ServiceTurnOff:
		if !features.Has(FeatureTurnOff) {
			return fmt.Errorf("%w: turn_off", ErrNotSupported)
		}
		return e.TurnOff(ctx)

	case ServiceSetTemperature:
		if !features.Has(FeatureTargetTemperature) {
			return fmt.Errorf("%w: target temperature", ErrNotSupported)
		}
		t, err := floatField(data, "temperature")
		if err != nil {
			return err
		}
		if t < attrs.MinTemp || t > attrs.MaxTemp {
			return fmt.Errorf("%w: temperature %v outside %v-%v", ErrInvalidServiceData, t, attrs.MinTemp, attrs.MaxTemp)
		}
		if _, ok := data["hvac_mode"]; ok {
			mode, err := choiceField(data, "hvac_mode", attrs.HVACModes)
			if err != nil {
				return err
			}
			if err := e.SetHVACMode(ctx, mode); err != nil {
				return err
			}
		}
		return e.SetTemperature(ctx, t)

	case ServiceSetHVACMode:
		mode, err := choiceField(data, "hvac_mode", attrs.HVACModes)
		if err != nil {
			return err
		}
		return e.SetHVACMode(ctx, mode)

	case ServiceSetFanMode:
		if !features.Has(FeatureFanMode) {
			return fmt.Errorf("%w: fan mode", ErrNotSupported)
		}
		mode, err := choiceField(data, "fan_mode", attrs.FanModes)
		if err != nil {
			return err
		}
		return e.SetFanMode(ctx, mode)

	case ServiceSetSwingMode:
		if !features.Has(FeatureSwingMode) {
			return fmt.Errorf("%w: swing mode", ErrNotSupported)
		}
		mode, err := choiceField(data, "swing_mode", attrs.SwingModes)
		if err != nil {
			return err
		}
		return e.SetSwingMode(ctx, mode)

	case ServiceSetPresetMode:
		if !features.Has(FeaturePresetMode) {
			return fmt.Errorf("%w: preset mode", ErrNotSupported)
		}
		mode, err := choiceField(data, "preset_mode", attrs.PresetModes)
		if err != nil {
			return err
		}
		return e.SetPresetMode(ctx, mode)
	}
	return fmt.Errorf("%w: climate.%s", ErrServiceNotFound, service)
}

func callSwitch(ctx context.Context, e SwitchEntity, service string) error {
	switch service {
	case ServiceTurnOn:
		return e.TurnOn(ctx)
	case ServiceTurnOff:
		return e.TurnOff(ctx)
	case ServiceToggle:
		if e.IsOn() {
			return e.TurnOff(ctx)
		}
		return e.TurnOn(ctx)
	}
	return fmt.Errorf("%w: switch.%s", ErrServiceNotFound, service)
}

// floatField reads a number that may arrive as JSON number or string.
func floatField(data map[string]any, key string) (float64, error) {
	switch v := data[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidServiceData, key, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidServiceData, key, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidServiceData, key)
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidServiceData, key)
	}
}

// choiceField reads a string that must be one of options.
func choiceField(data map[string]any, key string, options []string) (string, error) {
	v, ok := data[key].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidServiceData, key)
	}
	if !slices.Contains(options, v) {
		return "", fmt.Errorf("%w: %s %q not in %v", ErrInvalidServiceData, key, v, options)
	}
	return v, nil
}
