// Package miraie connects MirAIe air conditioners to the entity host.
//
// One config entry is one MirAIe account. Setting the entry up logs in to
// the cloud through a miraieac hub, keeps the hub in the host's per-entry
// data and forwards setup to the climate and switch platforms. Each device
// of the account's home becomes:
//
//   - climate.<name>: power, HVAC mode, target temperature, fan speed,
//     vane position and energy preset
//   - switch.<name>_display_mode: the indoor unit's display
//
// Entities are views over the hub's devices. They hold no state of their
// own; device status updates trigger a state write through a device
// callback registered while the entity is added to the host.
//
// Usage:
//
//	integration := miraie.New(miraieac.ConfigFrom(cfg.MirAIe), miraie.WithLogger(log))
//	integration.Register(host)
//	host.AddEntry(ctx, &hass.ConfigEntry{
//	    Domain: miraie.Domain,
//	    Title:  "user@example.com",
//	    Data:   map[string]string{miraie.ConfUsername: "...", miraie.ConfPassword: "..."},
//	})
package miraie
