package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementEntityState = "entity_state"
	measurementClimate     = "climate"
)

// EntityState is one state write of an entity.
type EntityState struct {
	EntityID  string
	Domain    string
	DeviceID  string
	State     string
	Available bool
}

// ClimateReading carries the numeric part of a climate entity's state.
// Nil pointers are omitted from the point.
type ClimateReading struct {
	CurrentTemperature *float64
	TargetTemperature  *float64
	HVACMode           string
	FanMode            string
	SwingMode          string
	PresetMode         string
}

// WriteEntityState records the state string and availability of any entity.
//
// Example:
//
//	client.WriteEntityState(influxdb.EntityState{
//	    EntityID: "switch.bedroom_ac_display_mode", Domain: "switch",
//	    DeviceID: "ac-1", State: "on", Available: true,
//	}, time.Now())
func (c *Client) WriteEntityState(s EntityState, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurementEntityState,
		map[string]string{
			"entity_id": s.EntityID,
			"domain":    s.Domain,
			"device_id": s.DeviceID,
		},
		map[string]any{
			"state":     s.State,
			"available": s.Available,
		},
		at,
	)
	c.writeAPI.WritePoint(point)
}

// WriteClimateReading records temperatures and modes of a climate entity.
// Modes are tags so they can be grouped on; temperatures are fields.
func (c *Client) WriteClimateReading(entityID, deviceID string, r ClimateReading, at time.Time) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]any, 2)
	if r.CurrentTemperature != nil {
		fields["current_temperature"] = *r.CurrentTemperature
	}
	if r.TargetTemperature != nil {
		fields["target_temperature"] = *r.TargetTemperature
	}
	if len(fields) == 0 {
		// A point without fields is rejected by the server.
		return
	}

	point := write.NewPoint(
		measurementClimate,
		map[string]string{
			"entity_id":   entityID,
			"device_id":   deviceID,
			"hvac_mode":   r.HVACMode,
			"fan_mode":    r.FanMode,
			"swing_mode":  r.SwingMode,
			"preset_mode": r.PresetMode,
		},
		fields,
		at,
	)
	c.writeAPI.WritePoint(point)
}
