package miraieac

import "fmt"

// PowerMode is the power state of an AC.
type PowerMode string

// Power modes.
const (
	PowerOn  PowerMode = "on"
	PowerOff PowerMode = "off"
)

// HVACMode is the operating mode reported by the device.
type HVACMode string

// HVAC modes. The device has no "off" mode; off is a power state.
const (
	HVACAuto HVACMode = "auto"
	HVACCool HVACMode = "cool"
	HVACDry  HVACMode = "dry"
	HVACFan  HVACMode = "fan"
)

// FanMode is the indoor fan speed.
type FanMode string

// Fan modes.
const (
	FanAuto   FanMode = "auto"
	FanQuiet  FanMode = "quiet"
	FanLow    FanMode = "low"
	FanMedium FanMode = "medium"
	FanHigh   FanMode = "high"
)

// PresetMode is the energy preset.
type PresetMode string

// Preset modes.
const (
	PresetNone  PresetMode = "none"
	PresetEco   PresetMode = "eco"
	PresetBoost PresetMode = "boost"
)

// SwingMode is the vertical vane position. 0 means continuous swing,
// 1 (top) to 5 (bottom) are fixed positions.
type SwingMode int

// Swing positions.
const (
	SwingAuto        SwingMode = 0
	SwingTop         SwingMode = 1
	SwingUpperMiddle SwingMode = 2
	SwingMiddle      SwingMode = 3
	SwingLowerMiddle SwingMode = 4
	SwingBottom      SwingMode = 5
)

// DisplayMode is the state of the indoor unit's display.
type DisplayMode string

// Display modes.
const (
	DisplayOn  DisplayMode = "on"
	DisplayOff DisplayMode = "off"
)

// HVACModes lists every HVACMode in declaration order.
func HVACModes() []HVACMode { return []HVACMode{HVACAuto, HVACCool, HVACDry, HVACFan} }

// FanModes lists every FanMode in declaration order.
func FanModes() []FanMode { return []FanMode{FanAuto, FanQuiet, FanLow, FanMedium, FanHigh} }

// PresetModes lists every PresetMode in declaration order.
func PresetModes() []PresetMode { return []PresetMode{PresetNone, PresetEco, PresetBoost} }

// ParsePowerMode converts a wire value to a PowerMode.
func ParsePowerMode(s string) (PowerMode, error) {
	switch m := PowerMode(s); m {
	case PowerOn, PowerOff:
		return m, nil
	}
	return "", fmt.Errorf("%w: power mode %q", ErrInvalidValue, s)
}

// ParseHVACMode converts a wire value to an HVACMode.
func ParseHVACMode(s string) (HVACMode, error) {
	for _, m := range HVACModes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: hvac mode %q", ErrInvalidValue, s)
}

// ParseFanMode converts a wire value to a FanMode.
func ParseFanMode(s string) (FanMode, error) {
	for _, m := range FanModes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: fan mode %q", ErrInvalidValue, s)
}

// ParsePresetMode converts a wire value to a PresetMode.
func ParsePresetMode(s string) (PresetMode, error) {
	for _, m := range PresetModes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: preset mode %q", ErrInvalidValue, s)
}

// ParseSwingMode validates a swing index.
func ParseSwingMode(i int) (SwingMode, error) {
	m := SwingMode(i)
	if !m.Valid() {
		return 0, fmt.Errorf("%w: swing mode %d", ErrInvalidValue, i)
	}
	return m, nil
}

// Valid reports whether m is a known vane position.
func (m SwingMode) Valid() bool {
	return m >= SwingAuto && m <= SwingBottom
}

// ParseDisplayMode converts a wire value to a DisplayMode.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch m := DisplayMode(s); m {
	case DisplayOn, DisplayOff:
		return m, nil
	}
	return "", fmt.Errorf("%w: display mode %q", ErrInvalidValue, s)
}
