// Package hass is a small home-automation host modelled on Home Assistant's
// integration model.
//
// Integrations register with a Host and are set up per ConfigEntry (one
// entry per account). During setup an integration stores its runtime data
// with SetData and forwards the entry to entity platforms ("climate",
// "switch"), which create entities. Entities push their state through
// WriteState; the host renders it and fans it out to StateListeners:
//
//   - Discovery publishes entities to Home Assistant via MQTT discovery and
//     turns its commands into service calls
//   - Metrics exports Prometheus gauges
//   - History writes state to InfluxDB
//
// Entry lifecycle:
//
//	not_loaded ──SetupEntry──► loaded ──UnloadEntry──► not_loaded
//	     │
//	     └─ setup error ──► setup_retry ──(1s, 2s, 4s … 5m)──► SetupEntry
//
// Entity IDs are assigned once by the EntityRegistry and persisted, keyed
// by (domain, platform, unique_id). A climate and a switch entity may
// therefore share a unique ID.
package hass
