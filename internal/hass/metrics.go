package hass

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "miraie"

// Metrics exports entity state as Prometheus gauges. It is a StateListener
// and EntityListener; register it with Host.AddStateListener and pass
// ObserveServiceCall to Host.OnServiceCall.
type Metrics struct {
	available    *prometheus.GaugeVec
	on           *prometheus.GaugeVec
	targetTemp   *prometheus.GaugeVec
	currentTemp  *prometheus.GaugeVec
	serviceCalls *prometheus.CounterVec
}

// NewMetrics creates the gauges and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		available: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "entity",
				Name:      "available",
				Help:      "1 if the entity is available, 0 otherwise",
			},
			[]string{"entity_id", "domain"},
		),
		on: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "entity",
				Name:      "on",
				Help:      "1 if a switch is on or a climate entity is not off",
			},
			[]string{"entity_id", "domain"},
		),
		targetTemp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "climate",
				Name:      "target_temperature_celsius",
				Help:      "The target temperature in degrees celsius",
			},
			[]string{"entity_id"},
		),
		currentTemp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "climate",
				Name:      "current_temperature_celsius",
				Help:      "The room temperature in degrees celsius",
			},
			[]string{"entity_id"},
		),
		serviceCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "service_calls_total",
				Help:      "Service calls by domain, service and result",
			},
			[]string{"domain", "service", "result"},
		),
	}
	reg.MustRegister(m.available, m.on, m.targetTemp, m.currentTemp, m.serviceCalls)
	return m
}

// StateChanged updates the gauges of one entity.
func (m *Metrics) StateChanged(s State) {
	m.available.WithLabelValues(s.EntityID, s.Domain).Set(boolGauge(s.Available))
	if !s.Available {
		return
	}

	switch s.Domain {
	case DomainClimate:
		m.on.WithLabelValues(s.EntityID, s.Domain).Set(boolGauge(s.State != HVACModeOff))
		if t, ok := s.Float("temperature"); ok {
			m.targetTemp.WithLabelValues(s.EntityID).Set(t)
		}
		if t, ok := s.Float("current_temperature"); ok {
			m.currentTemp.WithLabelValues(s.EntityID).Set(t)
		}
	case DomainSwitch:
		m.on.WithLabelValues(s.EntityID, s.Domain).Set(boolGauge(s.State == StateOn))
	}
}

// EntityAdded is a no-op; series appear with the first state.
func (m *Metrics) EntityAdded(*RegisteredEntity) {}

// EntityRemoved drops the entity's series.
func (m *Metrics) EntityRemoved(re *RegisteredEntity) {
	m.available.DeleteLabelValues(re.EntityID, re.Domain)
	m.on.DeleteLabelValues(re.EntityID, re.Domain)
	m.targetTemp.DeleteLabelValues(re.EntityID)
	m.currentTemp.DeleteLabelValues(re.EntityID)
}

// ObserveServiceCall counts a service call outcome.
func (m *Metrics) ObserveServiceCall(domain, service string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.serviceCalls.WithLabelValues(domain, service, result).Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
