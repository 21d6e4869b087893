package hass

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeClimate is a ClimateEntity with recorded calls.
type fakeClimate struct {
	mu        sync.Mutex
	uniqueID  string
	name      string
	available bool
	mode      string
	target    float64
	current   float64
	fan       string
	swing     string
	preset    string
	calls     []string
	err       error

	writer  StateWriter
	removed bool
}

func newFakeClimate(uniqueID, name string) *fakeClimate {
	return &fakeClimate{
		uniqueID: uniqueID, name: name, available: true,
		mode: HVACModeCool, target: 24, current: 27,
		fan: "auto", swing: "on", preset: "none",
	}
}

func (c *fakeClimate) UniqueID() string { return c.uniqueID }
func (c *fakeClimate) Name() string     { return c.name }
func (c *fakeClimate) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}
func (c *fakeClimate) Icon() string { return "mdi:air-conditioner" }
func (c *fakeClimate) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifiers:  []DeviceIdentifier{{Domain: "test", ID: c.uniqueID}},
		Name:         c.name,
		Manufacturer: "Acme",
		Model:        "X1",
		SWVersion:    "1.0",
	}
}

func (c *fakeClimate) ClimateAttributes() ClimateAttributes {
	return ClimateAttributes{
		HVACModes:       []string{HVACModeAuto, HVACModeCool, HVACModeOff, HVACModeDry, HVACModeFanOnly},
		FanModes:        []string{"auto", "low", "high"},
		SwingModes:      []string{"on", "top"},
		PresetModes:     []string{"none", "eco"},
		MinTemp:         16,
		MaxTemp:         30,
		TargetTempStep:  1,
		Precision:       PrecisionWhole,
		TemperatureUnit: UnitCelsius,
		SupportedFeatures: FeatureTargetTemperature | FeatureFanMode | FeaturePresetMode |
			FeatureSwingMode | FeatureTurnOff | FeatureTurnOn,
	}
}

func (c *fakeClimate) HVACMode() string            { return c.mode }
func (c *fakeClimate) CurrentTemperature() float64 { return c.current }
func (c *fakeClimate) TargetTemperature() float64  { return c.target }
func (c *fakeClimate) FanMode() string             { return c.fan }
func (c *fakeClimate) SwingMode() string           { return c.swing }
func (c *fakeClimate) PresetMode() string          { return c.preset }

func (c *fakeClimate) record(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.err
}

func (c *fakeClimate) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeClimate) TurnOn(context.Context) error  { return c.record("turn_on") }
func (c *fakeClimate) TurnOff(context.Context) error { return c.record("turn_off") }
func (c *fakeClimate) SetTemperature(_ context.Context, t float64) error {
	return c.record("temperature=" + formatFloat(t))
}
func (c *fakeClimate) SetHVACMode(_ context.Context, m string) error   { return c.record("hvac=" + m) }
func (c *fakeClimate) SetFanMode(_ context.Context, m string) error    { return c.record("fan=" + m) }
func (c *fakeClimate) SetSwingMode(_ context.Context, m string) error  { return c.record("swing=" + m) }
func (c *fakeClimate) SetPresetMode(_ context.Context, m string) error { return c.record("preset=" + m) }

func (c *fakeClimate) AddedToHost(_ context.Context, w StateWriter) error {
	c.writer = w
	return nil
}

func (c *fakeClimate) WillRemoveFromHost(context.Context) error {
	c.removed = true
	return nil
}

// fakeSwitch is a SwitchEntity sharing its unique ID with a climate entity.
type fakeSwitch struct {
	uniqueID string
	name     string
	on       bool
	calls    []string
}

func (s *fakeSwitch) UniqueID() string               { return s.uniqueID }
func (s *fakeSwitch) Name() string                   { return s.name }
func (s *fakeSwitch) Available() bool                { return true }
func (s *fakeSwitch) DeviceInfo() DeviceInfo         { return DeviceInfo{Name: s.name} }
func (s *fakeSwitch) EntityCategory() EntityCategory { return CategoryConfig }
func (s *fakeSwitch) IsOn() bool                     { return s.on }
func (s *fakeSwitch) TurnOn(context.Context) error {
	s.calls = append(s.calls, "on")
	s.on = true
	return nil
}
func (s *fakeSwitch) TurnOff(context.Context) error {
	s.calls = append(s.calls, "off")
	s.on = false
	return nil
}

// fakeIntegration creates one climate and one switch per entry and can be
// told to fail setup a number of times.
type fakeIntegration struct {
	mu         sync.Mutex
	failures   int
	setups     int
	unloads    int
	refuse     bool
	climates   map[string]*fakeClimate
	switches   map[string]*fakeSwitch
	entityName string
}

func newFakeIntegration() *fakeIntegration {
	return &fakeIntegration{
		climates:   make(map[string]*fakeClimate),
		switches:   make(map[string]*fakeSwitch),
		entityName: "Bedroom AC",
	}
}

var errFakeSetup = errors.New("cloud unreachable")

func (f *fakeIntegration) Domain() string { return "test" }

func (f *fakeIntegration) SetupEntry(ctx context.Context, h *Host, entry *ConfigEntry) error {
	f.mu.Lock()
	f.setups++
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errFakeSetup
	}
	f.mu.Unlock()

	h.SetData("test", entry.EntryID, entry.Data["username"])
	return h.ForwardEntrySetups(ctx, entry, DomainClimate, DomainSwitch)
}

func (f *fakeIntegration) UnloadEntry(ctx context.Context, h *Host, entry *ConfigEntry) (bool, error) {
	f.mu.Lock()
	f.unloads++
	refuse := f.refuse
	f.mu.Unlock()
	if refuse {
		return false, nil
	}
	ok, err := h.UnloadPlatforms(ctx, entry, DomainClimate, DomainSwitch)
	if ok {
		h.PopData("test", entry.EntryID)
	}
	return ok, err
}

func (f *fakeIntegration) setupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setups
}

func (f *fakeIntegration) register(h *Host) {
	h.RegisterIntegration(f)
	h.RegisterPlatform("test", DomainClimate, func(ctx context.Context, _ *Host, entry *ConfigEntry, add AddEntitiesFunc) error {
		c := newFakeClimate("dev-"+entry.Data["username"], f.entityName)
		f.mu.Lock()
		f.climates[entry.EntryID] = c
		f.mu.Unlock()
		return add(ctx, c)
	})
	h.RegisterPlatform("test", DomainSwitch, func(ctx context.Context, _ *Host, entry *ConfigEntry, add AddEntitiesFunc) error {
		s := &fakeSwitch{uniqueID: "dev-" + entry.Data["username"], name: f.entityName + " display mode", on: true}
		f.mu.Lock()
		f.switches[entry.EntryID] = s
		f.mu.Unlock()
		return add(ctx, s)
	})
}

// recordingListener collects state writes and entity events.
type recordingListener struct {
	mu      sync.Mutex
	states  []State
	added   []string
	removed []string
}

func (l *recordingListener) StateChanged(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *recordingListener) EntityAdded(re *RegisteredEntity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.added = append(l.added, re.EntityID)
}

func (l *recordingListener) EntityRemoved(re *RegisteredEntity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = append(l.removed, re.EntityID)
}

func (l *recordingListener) stateCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

func newTestHost(t *testing.T) (*Host, *fakeIntegration) {
	t.Helper()
	h := NewHost(HostOptions{RetryInitial: 10 * time.Millisecond, RetryMax: 40 * time.Millisecond})
	f := newFakeIntegration()
	f.register(h)
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return h, f
}

func addTestEntry(t *testing.T, h *Host, username string) *ConfigEntry {
	t.Helper()
	entry, err := h.AddEntry(context.Background(), &ConfigEntry{
		Domain: "test",
		Title:  username,
		Data:   map[string]string{"username": username, "password": "pw"},
	})
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	return entry
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sleepShort() { time.Sleep(5 * time.Millisecond) }
