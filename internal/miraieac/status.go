package miraieac

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Status is a snapshot of a device's reported state.
type Status struct {
	IsOnline        bool
	PowerMode       PowerMode
	HVACMode        HVACMode
	Temperature     float64
	RoomTemperature float64
	FanMode         FanMode
	SwingMode       SwingMode
	PresetMode      PresetMode
	DisplayMode     DisplayMode
	UpdatedAt       time.Time
}

// defaultStatus is the state assumed before the first report arrives.
func defaultStatus() Status {
	return Status{
		PowerMode:   PowerOff,
		HVACMode:    HVACAuto,
		FanMode:     FanAuto,
		SwingMode:   SwingAuto,
		PresetMode:  PresetNone,
		DisplayMode: DisplayOn,
	}
}

// wireStatus is the JSON shape of status, connectionStatus and the REST
// status endpoint. Every field is optional: MQTT status messages only carry
// what changed.
type wireStatus struct {
	Power   *string    `json:"ps,omitempty"`
	Mode    *string    `json:"acmd,omitempty"`
	Temp    *flexFloat `json:"actmp,omitempty"`
	Room    *flexFloat `json:"rmtmp,omitempty"`
	Fan     *string    `json:"acfs,omitempty"`
	Swing   *flexFloat `json:"acvs,omitempty"`
	Eco     *string    `json:"acem,omitempty"`
	Boost   *string    `json:"acpm,omitempty"`
	Display *string    `json:"acdc,omitempty"`
	Online  *flexBool  `json:"onlineStatus,omitempty"`
}

// Merge applies a (possibly partial) status payload to s.
//
// Unknown enum values are skipped and reported in the returned error; the
// remaining fields are still applied. changed reports whether any field
// was set.
func (s *Status) Merge(payload []byte, now time.Time) (changed bool, err error) {
	var w wireStatus
	if err := json.Unmarshal(payload, &w); err != nil {
		return false, fmt.Errorf("decoding status: %w", err)
	}

	var errs []error
	set := func(ok bool) {
		if ok {
			changed = true
		}
	}

	if w.Online != nil {
		s.IsOnline = bool(*w.Online)
		set(true)
	}
	if w.Power != nil {
		m, perr := ParsePowerMode(*w.Power)
		errs = append(errs, perr)
		if perr == nil {
			s.PowerMode = m
		}
		set(perr == nil)
	}
	if w.Mode != nil {
		m, perr := ParseHVACMode(*w.Mode)
		errs = append(errs, perr)
		if perr == nil {
			s.HVACMode = m
		}
		set(perr == nil)
	}
	if w.Temp != nil {
		s.Temperature = float64(*w.Temp)
		set(true)
	}
	if w.Room != nil {
		s.RoomTemperature = float64(*w.Room)
		set(true)
	}
	if w.Fan != nil {
		m, perr := ParseFanMode(*w.Fan)
		errs = append(errs, perr)
		if perr == nil {
			s.FanMode = m
		}
		set(perr == nil)
	}
	if w.Swing != nil {
		// Out-of-range positions are kept; consumers fall back to continuous swing.
		s.SwingMode = SwingMode(int(*w.Swing))
		set(true)
	}
	if w.Eco != nil {
		switch {
		case *w.Eco == "on":
			s.PresetMode = PresetEco
		case s.PresetMode == PresetEco:
			s.PresetMode = PresetNone
		}
		set(true)
	}
	if w.Boost != nil {
		switch {
		case *w.Boost == "on":
			s.PresetMode = PresetBoost
		case s.PresetMode == PresetBoost:
			s.PresetMode = PresetNone
		}
		set(true)
	}
	if w.Display != nil {
		m, perr := ParseDisplayMode(*w.Display)
		errs = append(errs, perr)
		if perr == nil {
			s.DisplayMode = m
		}
		set(perr == nil)
	}

	if changed {
		s.UpdatedAt = now
	}
	return changed, errors.Join(errs...)
}

// flexFloat accepts 24, 24.5 and "24.0".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("%w: number %s", ErrInvalidValue, b)
	}
	*f = flexFloat(v)
	return nil
}

// flexBool accepts true, "true", "online" and their negatives.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch string(bytes.Trim(b, `"`)) {
	case "true", "online", "1":
		*f = true
	case "false", "offline", "0":
		*f = false
	default:
		return fmt.Errorf("%w: bool %s", ErrInvalidValue, b)
	}
	return nil
}
