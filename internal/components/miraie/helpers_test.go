package miraie

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/miraie-core/internal/hass"
	"github.com/nerrad567/miraie-core/internal/miraieac"
)

// fakeDevice records commands and applies them to its status like the
// real device would once the cloud echoes them back.
type fakeDevice struct {
	id      string
	name    string
	details miraieac.Details

	mu        sync.Mutex
	status    miraieac.Status
	calls     []string
	err       error
	callbacks map[miraieac.CallbackID]func()
	nextID    miraieac.CallbackID
}

func newFakeDevice(id, name string) *fakeDevice {
	return &fakeDevice{
		id:   id,
		name: name,
		details: miraieac.Details{
			Brand:           "Panasonic",
			ModelNumber:     "CS-XU12",
			FirmwareVersion: "2.1.0",
		},
		status: miraieac.Status{
			IsOnline:        true,
			PowerMode:       miraieac.PowerOn,
			HVACMode:        miraieac.HVACCool,
			Temperature:     24,
			RoomTemperature: 28.5,
			FanMode:         miraieac.FanAuto,
			SwingMode:       miraieac.SwingAuto,
			PresetMode:      miraieac.PresetNone,
			DisplayMode:     miraieac.DisplayOn,
		},
		callbacks: make(map[miraieac.CallbackID]func()),
	}
}

func (d *fakeDevice) ID() string                { return d.id }
func (d *fakeDevice) FriendlyName() string      { return d.name }
func (d *fakeDevice) Details() miraieac.Details { return d.details }

func (d *fakeDevice) Status() miraieac.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *fakeDevice) RegisterCallback(fn func()) miraieac.CallbackID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.callbacks[d.nextID] = fn
	return d.nextID
}

func (d *fakeDevice) RemoveCallback(id miraieac.CallbackID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.callbacks, id)
}

func (d *fakeDevice) callbackCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.callbacks)
}

// update changes the status and fires the callbacks.
func (d *fakeDevice) update(fn func(*miraieac.Status)) {
	d.mu.Lock()
	fn(&d.status)
	fns := make([]func(), 0, len(d.callbacks))
	for _, cb := range d.callbacks {
		fns = append(fns, cb)
	}
	d.mu.Unlock()
	for _, cb := range fns {
		cb()
	}
}

func (d *fakeDevice) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) do(call string, apply func(*miraieac.Status)) error {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	err := d.err
	if err == nil {
		apply(&d.status)
	}
	d.mu.Unlock()
	return err
}

func (d *fakeDevice) TurnOn(context.Context) error {
	return d.do("power=on", func(s *miraieac.Status) { s.PowerMode = miraieac.PowerOn })
}

func (d *fakeDevice) TurnOff(context.Context) error {
	return d.do("power=off", func(s *miraieac.Status) { s.PowerMode = miraieac.PowerOff })
}

func (d *fakeDevice) SetTemperature(_ context.Context, t float64) error {
	return d.do(fmt.Sprintf("temperature=%v", t), func(s *miraieac.Status) { s.Temperature = t })
}

func (d *fakeDevice) SetHVACMode(_ context.Context, m miraieac.HVACMode) error {
	return d.do("hvac="+string(m), func(s *miraieac.Status) { s.HVACMode = m })
}

func (d *fakeDevice) SetFanMode(_ context.Context, m miraieac.FanMode) error {
	return d.do("fan="+string(m), func(s *miraieac.Status) { s.FanMode = m })
}

func (d *fakeDevice) SetSwingMode(_ context.Context, m miraieac.SwingMode) error {
	return d.do(fmt.Sprintf("swing=%d", m), func(s *miraieac.Status) { s.SwingMode = m })
}

func (d *fakeDevice) SetPresetMode(_ context.Context, m miraieac.PresetMode) error {
	return d.do("preset="+string(m), func(s *miraieac.Status) { s.PresetMode = m })
}

func (d *fakeDevice) SetDisplayMode(_ context.Context, m miraieac.DisplayMode) error {
	return d.do("display="+string(m), func(s *miraieac.Status) { s.DisplayMode = m })
}

// fakeSession hands out a fixed device list.
type fakeSession struct {
	devices []Device
	initErr error

	mu       sync.Mutex
	username string
	password string
	closed   bool
}

func (s *fakeSession) Init(_ context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
	return s.initErr
}

func (s *fakeSession) Devices() []Device { return s.devices }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var errCloudDown = errors.New("cloud unreachable")

// testHost wires the integration into a host whose sessions come from
// the returned slice, one per setup attempt.
func newTestHost(t *testing.T, sessions ...*fakeSession) (*hass.Host, *Integration) {
	t.Helper()
	h := hass.NewHost(hass.HostOptions{RetryInitial: time.Hour, RetryMax: time.Hour})
	var mu sync.Mutex
	next := 0
	integration := New(miraieac.Config{}, WithSessionFactory(func() Session {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(sessions) {
			t.Errorf("unexpected session %d", next+1)
			return &fakeSession{}
		}
		s := sessions[next]
		next++
		return s
	}))
	integration.Register(h)
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return h, integration
}

func addEntry(t *testing.T, h *hass.Host) (*hass.ConfigEntry, error) {
	t.Helper()
	return h.AddEntry(context.Background(), &hass.ConfigEntry{
		Domain: Domain,
		Title:  "user@example.com",
		Data:   map[string]string{ConfUsername: "user@example.com", ConfPassword: "hunter2"},
	})
}
