package hass

import (
	"time"

	"github.com/nerrad567/miraie-core/internal/infrastructure/influxdb"
)

// HistoryWriter is implemented by *influxdb.Client.
type HistoryWriter interface {
	WriteEntityState(s influxdb.EntityState, at time.Time)
	WriteClimateReading(entityID, deviceID string, r influxdb.ClimateReading, at time.Time)
}

// History records every state write to a time-series database.
type History struct {
	writer HistoryWriter
}

// NewHistory creates a StateListener that writes to w.
func NewHistory(w HistoryWriter) *History {
	return &History{writer: w}
}

// StateChanged writes the state point, and for climate entities the
// temperature and mode point.
func (h *History) StateChanged(s State) {
	h.writer.WriteEntityState(influxdb.EntityState{
		EntityID:  s.EntityID,
		Domain:    s.Domain,
		DeviceID:  s.UniqueID,
		State:     s.State,
		Available: s.Available,
	}, s.LastUpdated)

	if s.Domain != DomainClimate || !s.Available {
		return
	}
	r := influxdb.ClimateReading{
		HVACMode:   s.String("hvac_mode"),
		FanMode:    s.String("fan_mode"),
		SwingMode:  s.String("swing_mode"),
		PresetMode: s.String("preset_mode"),
	}
	if t, ok := s.Float("current_temperature"); ok {
		r.CurrentTemperature = &t
	}
	if t, ok := s.Float("temperature"); ok {
		r.TargetTemperature = &t
	}
	h.writer.WriteClimateReading(s.EntityID, s.UniqueID, r, s.LastUpdated)
}
