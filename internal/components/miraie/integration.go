package miraie

import (
	"context"
	"fmt"

	"github.com/nerrad567/miraie-core/internal/hass"
	"github.com/nerrad567/miraie-core/internal/miraieac"
)

// Integration sets up MirAIe config entries.
type Integration struct {
	newSession SessionFactory
	logger     hass.Logger
}

// Option configures an Integration.
type Option func(*Integration)

// WithSessionFactory replaces the miraieac hub, typically with a fake in tests.
func WithSessionFactory(f SessionFactory) Option {
	return func(i *Integration) { i.newSession = f }
}

// WithLogger sets the logger used by the integration and its hubs.
func WithLogger(l hass.Logger) Option {
	return func(i *Integration) { i.logger = l }
}

// New creates the integration. Hubs are created from cfg unless a session
// factory is given.
func New(cfg miraieac.Config, opts ...Option) *Integration {
	i := &Integration{}
	for _, opt := range opts {
		opt(i)
	}
	if i.newSession == nil {
		var hubOpts []miraieac.Option
		if i.logger != nil {
			hubOpts = append(hubOpts, miraieac.WithLogger(i.logger))
		}
		i.newSession = func() Session {
			return hubSession{hub: miraieac.NewHub(cfg, hubOpts...)}
		}
	}
	return i
}

// Register adds the integration and its platforms to the host.
func (i *Integration) Register(h *hass.Host) {
	h.RegisterIntegration(i)
	h.RegisterPlatform(Domain, hass.DomainClimate, setupClimate)
	h.RegisterPlatform(Domain, hass.DomainSwitch, setupSwitch)
}

// Domain implements hass.Integration.
func (i *Integration) Domain() string { return Domain }

// SetupEntry logs in to the account, stores the session for the entry and
// sets up its platforms. Errors from the hub are returned unchanged; the
// host turns them into a setup retry.
func (i *Integration) SetupEntry(ctx context.Context, h *hass.Host, entry *hass.ConfigEntry) error {
	session := i.newSession()
	if err := session.Init(ctx, entry.Data[ConfUsername], entry.Data[ConfPassword]); err != nil {
		_ = session.Close() //nolint:errcheck // nothing to release after a failed init
		return err
	}
	h.SetData(Domain, entry.EntryID, session)

	if err := h.ForwardEntrySetups(ctx, entry, Platforms...); err != nil {
		h.PopData(Domain, entry.EntryID)
		_ = session.Close() //nolint:errcheck // setup already failed
		return err
	}

	if i.logger != nil {
		i.logger.Info("MirAIe entry set up", "entry_id", entry.EntryID, "devices", len(session.Devices()))
	}
	return nil
}

// UnloadEntry unloads the platforms and, only if that succeeded, drops and
// closes the entry's session.
func (i *Integration) UnloadEntry(ctx context.Context, h *hass.Host, entry *hass.ConfigEntry) (bool, error) {
	ok, err := h.UnloadPlatforms(ctx, entry, Platforms...)
	if !ok {
		return false, err
	}
	if v, found := h.PopData(Domain, entry.EntryID); found {
		if session, isSession := v.(Session); isSession {
			if cerr := session.Close(); cerr != nil && i.logger != nil {
				i.logger.Warn("closing MirAIe session", "entry_id", entry.EntryID, "error", cerr)
			}
		}
	}
	return true, err
}

// entrySession returns the session stored for an entry by SetupEntry.
func entrySession(h *hass.Host, entry *hass.ConfigEntry) (Session, error) {
	v, ok := h.GetData(Domain, entry.EntryID)
	if !ok {
		return nil, fmt.Errorf("%w: no MirAIe session for entry %s", hass.ErrEntryNotLoaded, entry.EntryID)
	}
	session, ok := v.(Session)
	if !ok {
		return nil, fmt.Errorf("unexpected data %T for entry %s", v, entry.EntryID)
	}
	return session, nil
}
