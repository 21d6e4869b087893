package hass

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestHost_CallServiceClimate(t *testing.T) {
	h, f := newTestHost(t)
	entry := addTestEntry(t, h, "alice")
	c := f.climates[entry.EntryID]

	var observed []string
	h.OnServiceCall(func(domain, service string, err error) {
		observed = append(observed, domain+"."+service)
	})

	tests := []struct {
		service string
		data    map[string]any
		want    []string
	}{
		{ServiceTurnOn, nil, []string{"turn_on"}},
		{ServiceTurnOff, nil, []string{"turn_off"}},
		{ServiceSetTemperature, map[string]any{"temperature": 22.0}, []string{"temperature=22"}},
		{ServiceSetTemperature, map[string]any{"temperature": "25"}, []string{"temperature=25"}},
		{ServiceSetTemperature, map[string]any{"temperature": 21.0, "hvac_mode": "dry"}, []string{"hvac=dry", "temperature=21"}},
		{ServiceSetHVACMode, map[string]any{"hvac_mode": "fan_only"}, []string{"hvac=fan_only"}},
		{ServiceSetFanMode, map[string]any{"fan_mode": "low"}, []string{"fan=low"}},
		{ServiceSetSwingMode, map[string]any{"swing_mode": "top"}, []string{"swing=top"}},
		{ServiceSetPresetMode, map[string]any{"preset_mode": "eco"}, []string{"preset=eco"}},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			before := len(c.recorded())
			err := h.CallService(context.Background(), DomainClimate, tt.service,
				ServiceCall{EntityID: "climate.bedroom_ac", Data: tt.data})
			if err != nil {
				t.Fatalf("CallService() error = %v", err)
			}
			got := c.recorded()[before:]
			if !slices.Equal(got, tt.want) {
				t.Errorf("calls = %v, want %v", got, tt.want)
			}
		})
	}

	if len(observed) != len(tests) {
		t.Errorf("observed %d calls, want %d", len(observed), len(tests))
	}
}

func TestHost_CallServiceValidation(t *testing.T) {
	h, f := newTestHost(t)
	entry := addTestEntry(t, h, "alice")
	c := f.climates[entry.EntryID]

	tests := []struct {
		name     string
		domain   string
		service  string
		entityID string
		data     map[string]any
		wantErr  error
	}{
		{"unknown service", DomainClimate, "set_humidity", "climate.bedroom_ac", nil, ErrServiceNotFound},
		{"unknown entity", DomainClimate, ServiceTurnOn, "climate.nope", nil, ErrEntityNotFound},
		{"wrong domain", DomainSwitch, ServiceTurnOn, "climate.bedroom_ac", nil, ErrInvalidServiceData},
		{"mode not advertised", DomainClimate, ServiceSetHVACMode, "climate.bedroom_ac", map[string]any{"hvac_mode": "heat"}, ErrInvalidServiceData},
		{"missing mode", DomainClimate, ServiceSetFanMode, "climate.bedroom_ac", map[string]any{}, ErrInvalidServiceData},
		{"temperature too low", DomainClimate, ServiceSetTemperature, "climate.bedroom_ac", map[string]any{"temperature": 10.0}, ErrInvalidServiceData},
		{"temperature too high", DomainClimate, ServiceSetTemperature, "climate.bedroom_ac", map[string]any{"temperature": 31.0}, ErrInvalidServiceData},
		{"temperature not a number", DomainClimate, ServiceSetTemperature, "climate.bedroom_ac", map[string]any{"temperature": "warm"}, ErrInvalidServiceData},
		{"swing not advertised", DomainClimate, ServiceSetSwingMode, "climate.bedroom_ac", map[string]any{"swing_mode": "bottom"}, ErrInvalidServiceData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.CallService(context.Background(), tt.domain, tt.service,
				ServiceCall{EntityID: tt.entityID, Data: tt.data})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CallService() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if calls := c.recorded(); len(calls) != 0 {
		t.Errorf("entity called on invalid requests: %v", calls)
	}
}

func TestHost_CallServiceEntityError(t *testing.T) {
	h, f := newTestHost(t)
	entry := addTestEntry(t, h, "alice")
	boom := errors.New("broker down")
	f.climates[entry.EntryID].err = boom

	err := h.CallService(context.Background(), DomainClimate, ServiceTurnOff,
		ServiceCall{EntityID: "climate.bedroom_ac"})
	if !errors.Is(err, boom) {
		t.Errorf("CallService() error = %v, want entity error", err)
	}
}

func TestHost_CallServiceSwitch(t *testing.T) {
	h, f := newTestHost(t)
	entry := addTestEntry(t, h, "alice")
	s := f.switches[entry.EntryID]
	call := ServiceCall{EntityID: "switch.bedroom_ac_display_mode"}

	for _, service := range []string{ServiceTurnOff, ServiceToggle, ServiceToggle, ServiceTurnOn} {
		if err := h.CallService(context.Background(), DomainSwitch, service, call); err != nil {
			t.Fatalf("CallService(%s) error = %v", service, err)
		}
	}
	want := []string{"off", "on", "off", "on"}
	if !slices.Equal(s.calls, want) {
		t.Errorf("calls = %v, want %v", s.calls, want)
	}
}
