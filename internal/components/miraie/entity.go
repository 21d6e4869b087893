package miraie

import (
	"context"
	"sync"

	"github.com/nerrad567/miraie-core/internal/hass"
	"github.com/nerrad567/miraie-core/internal/miraieac"
)

// entity is the part shared by the climate and switch entities: identity,
// availability and the device callback that writes state.
type entity struct {
	device Device

	// self is the outer entity, the value the host knows.
	self hass.Entity

	mu         sync.Mutex
	callbackID miraieac.CallbackID
	subscribed bool
}

// UniqueID is the device ID.
func (e *entity) UniqueID() string { return e.device.ID() }

// Available follows the device's online flag.
func (e *entity) Available() bool { return e.device.Status().IsOnline }

// DeviceInfo groups every entity of a device under one Home Assistant device.
func (e *entity) DeviceInfo() hass.DeviceInfo {
	details := e.device.Details()
	manufacturer := details.Brand
	if manufacturer == "" {
		manufacturer = Manufacturer
	}
	return hass.DeviceInfo{
		Identifiers:  []hass.DeviceIdentifier{{Domain: Domain, ID: e.device.ID()}},
		Name:         e.device.FriendlyName(),
		Manufacturer: manufacturer,
		Model:        details.ModelNumber,
		SWVersion:    details.FirmwareVersion,
	}
}

// AddedToHost subscribes to device updates.
func (e *entity) AddedToHost(_ context.Context, w hass.StateWriter) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subscribed {
		e.device.RemoveCallback(e.callbackID)
	}
	self := e.self
	e.callbackID = e.device.RegisterCallback(func() { w.WriteState(self) })
	e.subscribed = true
	return nil
}

// WillRemoveFromHost unsubscribes from device updates.
func (e *entity) WillRemoveFromHost(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subscribed {
		e.device.RemoveCallback(e.callbackID)
		e.subscribed = false
	}
	return nil
}

// platformSetupEntry builds one entity per device of the entry's session.
func platformSetupEntry(ctx context.Context, h *hass.Host, entry *hass.ConfigEntry, add hass.AddEntitiesFunc, build func(Device) hass.Entity) error {
	session, err := entrySession(h, entry)
	if err != nil {
		return err
	}
	devices := session.Devices()
	entities := make([]hass.Entity, 0, len(devices))
	for _, d := range devices {
		entities = append(entities, build(d))
	}
	return add(ctx, entities...)
}
