package hass

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gaugeValue finds the sample of a metric family with the given labels.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				if m.GetGauge() != nil {
					return m.GetGauge().GetValue(), true
				}
				return m.GetCounter().GetValue(), true
			}
		}
	}
	return 0, false
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetrics_TracksEntityState(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h, f := newTestHost(t)
	h.AddStateListener(m)
	h.OnServiceCall(m.ObserveServiceCall)
	entry := addTestEntry(t, h, "alice")

	climate := map[string]string{"entity_id": "climate.bedroom_ac"}
	if v, ok := gaugeValue(t, reg, "miraie_climate_target_temperature_celsius", climate); !ok || v != 24 {
		t.Errorf("target temperature = %v (found %v), want 24", v, ok)
	}
	if v, ok := gaugeValue(t, reg, "miraie_climate_current_temperature_celsius", climate); !ok || v != 27 {
		t.Errorf("current temperature = %v (found %v), want 27", v, ok)
	}
	if v, _ := gaugeValue(t, reg, "miraie_entity_on", climate); v != 1 {
		t.Errorf("climate on = %v, want 1", v)
	}

	c := f.climates[entry.EntryID]
	c.mu.Lock()
	c.mode = HVACModeOff
	c.available = false
	c.mu.Unlock()
	c.writer.WriteState(c)
	if v, _ := gaugeValue(t, reg, "miraie_entity_available", climate); v != 0 {
		t.Errorf("available = %v, want 0", v)
	}

	_ = h.CallService(context.Background(), DomainSwitch, ServiceTurnOff,
		ServiceCall{EntityID: "switch.bedroom_ac_display_mode"})
	_ = h.CallService(context.Background(), DomainSwitch, ServiceTurnOff,
		ServiceCall{EntityID: "switch.missing"})
	if v, _ := gaugeValue(t, reg, "miraie_service_calls_total",
		map[string]string{"service": "turn_off", "result": "error"}); v != 1 {
		t.Errorf("failed service calls = %v, want 1", v)
	}

	if _, err := h.UnloadEntry(context.Background(), entry.EntryID); err != nil {
		t.Fatal(err)
	}
	if _, ok := gaugeValue(t, reg, "miraie_entity_available", climate); ok {
		t.Error("series kept after entity removal")
	}
}

func TestMetrics_ObserveServiceCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveServiceCall(DomainClimate, ServiceSetFanMode, nil)
	m.ObserveServiceCall(DomainClimate, ServiceSetFanMode, nil)
	m.ObserveServiceCall(DomainClimate, ServiceSetFanMode, errors.New("boom"))

	labels := map[string]string{"domain": "climate", "service": "set_fan_mode", "result": "success"}
	if v, _ := gaugeValue(t, reg, "miraie_service_calls_total", labels); v != 2 {
		t.Errorf("successful calls = %v, want 2", v)
	}
}
