package miraie

import (
	"context"

	"github.com/nerrad567/miraie-core/internal/hass"
	"github.com/nerrad567/miraie-core/internal/miraieac"
)

// DisplaySwitch turns the indoor unit's display on and off.
type DisplaySwitch struct {
	entity
}

// NewDisplaySwitch creates the display switch of a device.
func NewDisplaySwitch(d Device) *DisplaySwitch {
	s := &DisplaySwitch{entity: entity{device: d}}
	s.self = s
	return s
}

func setupSwitch(ctx context.Context, h *hass.Host, entry *hass.ConfigEntry, add hass.AddEntitiesFunc) error {
	return platformSetupEntry(ctx, h, entry, add, func(d Device) hass.Entity { return NewDisplaySwitch(d) })
}

// Name is the device name with a " display mode" suffix.
func (s *DisplaySwitch) Name() string { return s.device.FriendlyName() + " display mode" }

// EntityCategory marks the switch as a configuration entity.
func (s *DisplaySwitch) EntityCategory() hass.EntityCategory { return hass.CategoryConfig }

// Icon follows the display state.
func (s *DisplaySwitch) Icon() string {
	if s.IsOn() {
		return "mdi:monitor"
	}
	return "mdi:monitor-off"
}

// IsOn reports whether the display is lit.
func (s *DisplaySwitch) IsOn() bool {
	return s.device.Status().DisplayMode == miraieac.DisplayOn
}

// TurnOn lights the display.
func (s *DisplaySwitch) TurnOn(ctx context.Context) error {
	return s.device.SetDisplayMode(ctx, miraieac.DisplayOn)
}

// TurnOff darkens the display.
func (s *DisplaySwitch) TurnOff(ctx context.Context) error {
	return s.device.SetDisplayMode(ctx, miraieac.DisplayOff)
}
