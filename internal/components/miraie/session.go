package miraie

import (
	"context"

	"github.com/nerrad567/miraie-core/internal/miraieac"
)

// Device is the part of *miraieac.Device used by the entities.
type Device interface {
	ID() string
	FriendlyName() string
	Details() miraieac.Details
	Status() miraieac.Status

	RegisterCallback(fn func()) miraieac.CallbackID
	RemoveCallback(id miraieac.CallbackID)

	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	SetTemperature(ctx context.Context, temperature float64) error
	SetHVACMode(ctx context.Context, mode miraieac.HVACMode) error
	SetFanMode(ctx context.Context, mode miraieac.FanMode) error
	SetSwingMode(ctx context.Context, mode miraieac.SwingMode) error
	SetPresetMode(ctx context.Context, mode miraieac.PresetMode) error
	SetDisplayMode(ctx context.Context, mode miraieac.DisplayMode) error
}

// Session is an authenticated hub session for one account.
type Session interface {
	Init(ctx context.Context, username, password string) error
	Devices() []Device
	Close() error
}

// SessionFactory creates an uninitialised session for a new entry.
type SessionFactory func() Session

// hubSession adapts *miraieac.Hub to Session.
type hubSession struct {
	hub *miraieac.Hub
}

func (s hubSession) Init(ctx context.Context, username, password string) error {
	return s.hub.Init(ctx, username, password)
}

func (s hubSession) Devices() []Device {
	devices := s.hub.Devices()
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, d)
	}
	return out
}

func (s hubSession) Close() error { return s.hub.Close() }
