package miraie

import (
	"context"
	"fmt"
	"slices"

	"github.com/nerrad567/miraie-core/internal/hass"
	"github.com/nerrad567/miraie-core/internal/miraieac"
)

// Swing mode names, indexed by miraieac.SwingMode.
const (
	SwingOn          = "on"
	SwingTop         = "top"
	SwingUpperMiddle = "upper_middle"
	SwingMiddle      = "middle"
	SwingLowerMiddle = "lower_middle"
	SwingBottom      = "bottom"
)

// swingModes maps a vane index to its name; position i is index i.
var swingModes = []string{SwingOn, SwingTop, SwingUpperMiddle, SwingMiddle, SwingLowerMiddle, SwingBottom}

const (
	climateIcon           = "mdi:air-conditioner"
	climateTranslationKey = "miraie_climate"
	minTemp               = 16.0
	maxTemp               = 30.0
)

// SwingModeName returns the name of a vane index. Unknown indexes read as "on".
func SwingModeName(m miraieac.SwingMode) string {
	if i := int(m); i >= 0 && i < len(swingModes) {
		return swingModes[i]
	}
	return SwingOn
}

// ParseSwingModeName is the inverse of SwingModeName.
func ParseSwingModeName(name string) (miraieac.SwingMode, error) {
	i := slices.Index(swingModes, name)
	if i < 0 {
		return 0, fmt.Errorf("%w: swing mode %q", miraieac.ErrInvalidValue, name)
	}
	return miraieac.SwingMode(i), nil
}

// Climate exposes an air conditioner as a climate entity.
type Climate struct {
	entity
}

// NewClimate creates the climate entity of a device.
func NewClimate(d Device) *Climate {
	c := &Climate{entity: entity{device: d}}
	c.self = c
	return c
}

func setupClimate(ctx context.Context, h *hass.Host, entry *hass.ConfigEntry, add hass.AddEntitiesFunc) error {
	return platformSetupEntry(ctx, h, entry, add, func(d Device) hass.Entity { return NewClimate(d) })
}

// Name is the device's friendly name.
func (c *Climate) Name() string { return c.device.FriendlyName() }

// Icon implements hass.Icon.
func (c *Climate) Icon() string { return climateIcon }

// ClimateAttributes implements hass.ClimateEntity.
func (c *Climate) ClimateAttributes() hass.ClimateAttributes {
	fanModes := make([]string, 0, len(miraieac.FanModes()))
	for _, m := range miraieac.FanModes() {
		fanModes = append(fanModes, string(m))
	}
	presetModes := make([]string, 0, len(miraieac.PresetModes()))
	for _, m := range miraieac.PresetModes() {
		presetModes = append(presetModes, string(m))
	}
	return hass.ClimateAttributes{
		TranslationKey: climateTranslationKey,
		HVACModes: []string{
			hass.HVACModeAuto, hass.HVACModeCool, hass.HVACModeOff, hass.HVACModeDry, hass.HVACModeFanOnly,
		},
		FanModes:        fanModes,
		SwingModes:      slices.Clone(swingModes),
		PresetModes:     presetModes,
		MinTemp:         minTemp,
		MaxTemp:         maxTemp,
		TargetTempStep:  1,
		Precision:       hass.PrecisionWhole,
		TemperatureUnit: hass.UnitCelsius,
		SupportedFeatures: hass.FeatureTargetTemperature | hass.FeatureFanMode | hass.FeaturePresetMode |
			hass.FeatureSwingMode | hass.FeatureTurnOff | hass.FeatureTurnOn,
	}
}

// HVACMode is "off" while the unit is powered off, otherwise the device
// mode with "fan" reported as "fan_only".
func (c *Climate) HVACMode() string {
	s := c.device.Status()
	if s.PowerMode == miraieac.PowerOff {
		return hass.HVACModeOff
	}
	if s.HVACMode == miraieac.HVACFan {
		return hass.HVACModeFanOnly
	}
	return string(s.HVACMode)
}

// CurrentTemperature is the room temperature.
func (c *Climate) CurrentTemperature() float64 { return c.device.Status().RoomTemperature }

// TargetTemperature is the set temperature.
func (c *Climate) TargetTemperature() float64 { return c.device.Status().Temperature }

// FanMode is the device fan speed.
func (c *Climate) FanMode() string { return string(c.device.Status().FanMode) }

// PresetMode is "eco", "boost" or "none".
func (c *Climate) PresetMode() string { return string(c.device.Status().PresetMode) }

// SwingMode is the vane position name.
func (c *Climate) SwingMode() string { return SwingModeName(c.device.Status().SwingMode) }

// TurnOn powers the unit on in its last mode.
func (c *Climate) TurnOn(ctx context.Context) error { return c.device.TurnOn(ctx) }

// TurnOff powers the unit off.
func (c *Climate) TurnOff(ctx context.Context) error { return c.device.TurnOff(ctx) }

// SetTemperature sets the target temperature.
func (c *Climate) SetTemperature(ctx context.Context, temperature float64) error {
	return c.device.SetTemperature(ctx, temperature)
}

// SetHVACMode maps "off" to a power-off. Any other mode powers the unit on
// first if it is off.
func (c *Climate) SetHVACMode(ctx context.Context, mode string) error {
	if mode == hass.HVACModeOff {
		return c.device.TurnOff(ctx)
	}

	name := mode
	if mode == hass.HVACModeFanOnly {
		name = string(miraieac.HVACFan)
	}
	target, err := miraieac.ParseHVACMode(name)
	if err != nil {
		return err
	}

	if c.device.Status().PowerMode == miraieac.PowerOff {
		if err := c.device.TurnOn(ctx); err != nil {
			return err
		}
	}
	return c.device.SetHVACMode(ctx, target)
}

// SetFanMode sets the fan speed.
func (c *Climate) SetFanMode(ctx context.Context, mode string) error {
	m, err := miraieac.ParseFanMode(mode)
	if err != nil {
		return err
	}
	return c.device.SetFanMode(ctx, m)
}

// SetPresetMode switches between eco, boost and none.
func (c *Climate) SetPresetMode(ctx context.Context, mode string) error {
	m, err := miraieac.ParsePresetMode(mode)
	if err != nil {
		return err
	}
	return c.device.SetPresetMode(ctx, m)
}

// SetSwingMode moves the vane to a named position.
func (c *Climate) SetSwingMode(ctx context.Context, mode string) error {
	m, err := ParseSwingModeName(mode)
	if err != nil {
		return err
	}
	return c.device.SetSwingMode(ctx, m)
}
