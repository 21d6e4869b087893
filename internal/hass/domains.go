package hass

import "context"

// Domain names of the entity platforms the host supports.
const (
	DomainClimate = "climate"
	DomainSwitch  = "switch"
)

// HVAC modes as exposed to Home Assistant.
const (
	HVACModeOff     = "off"
	HVACModeAuto    = "auto"
	HVACModeCool    = "cool"
	HVACModeHeat    = "heat"
	HVACModeDry     = "dry"
	HVACModeFanOnly = "fan_only"
)

// ClimateFeature is a bit set of optional climate capabilities.
// Values match Home Assistant's ClimateEntityFeature.
type ClimateFeature int

// Climate features.
const (
	FeatureTargetTemperature ClimateFeature = 1 << iota
	FeatureTargetTemperatureRange
	FeatureTargetHumidity
	FeatureFanMode
	FeaturePresetMode
	FeatureSwingMode
	FeatureAuxHeat
	FeatureTurnOff
	FeatureTurnOn
)

// Has reports whether f includes every bit of feature.
func (f ClimateFeature) Has(feature ClimateFeature) bool {
	return f&feature == feature
}

// Temperature display precision.
const (
	PrecisionTenths = 0.1
	PrecisionHalves = 0.5
	PrecisionWhole  = 1.0
)

// UnitCelsius is the temperature unit of all climate entities.
const UnitCelsius = "°C"

// Climate service names.
const (
	ServiceTurnOn         = "turn_on"
	ServiceTurnOff        = "turn_off"
	ServiceToggle         = "toggle"
	ServiceSetTemperature = "set_temperature"
	ServiceSetHVACMode    = "set_hvac_mode"
	ServiceSetFanMode     = "set_fan_mode"
	ServiceSetSwingMode   = "set_swing_mode"
	ServiceSetPresetMode  = "set_preset_mode"
)

// ClimateAttributes are the static capabilities of a climate entity.
type ClimateAttributes struct {
	TranslationKey    string
	HVACModes         []string
	FanModes          []string
	SwingModes        []string
	PresetModes       []string
	MinTemp           float64
	MaxTemp           float64
	TargetTempStep    float64
	Precision         float64
	TemperatureUnit   string
	SupportedFeatures ClimateFeature
}

// ClimateEntity is an air conditioner or thermostat.
type ClimateEntity interface {
	Entity
	ClimateAttributes() ClimateAttributes

	HVACMode() string
	CurrentTemperature() float64
	TargetTemperature() float64
	FanMode() string
	SwingMode() string
	PresetMode() string

	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	SetTemperature(ctx context.Context, temperature float64) error
	SetHVACMode(ctx context.Context, mode string) error
	SetFanMode(ctx context.Context, mode string) error
	SetSwingMode(ctx context.Context, mode string) error
	SetPresetMode(ctx context.Context, mode string) error
}

// SwitchEntity is a binary on/off entity.
type SwitchEntity interface {
	Entity
	IsOn() bool
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
}
