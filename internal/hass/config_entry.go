package hass

import (
	"context"
	"maps"
	"time"
)

// EntryState is the lifecycle state of a config entry.
type EntryState string

// Entry states.
const (
	EntryNotLoaded  EntryState = "not_loaded"
	EntryLoaded     EntryState = "loaded"
	EntrySetupError EntryState = "setup_error"
	EntrySetupRetry EntryState = "setup_retry"
	EntryFailUnload EntryState = "failed_unload"
)

// Entry sources.
const (
	SourceUser   = "user"
	SourceImport = "import"
)

// ConfigEntry is one configured instance of an integration, e.g. one
// MirAIe account.
type ConfigEntry struct {
	EntryID   string            `json:"entry_id"`
	Domain    string            `json:"domain"`
	Title     string            `json:"title"`
	// UniqueID identifies the configured account within the domain. At
	// most one entry per domain holds a given non-empty UniqueID.
	UniqueID  string            `json:"unique_id,omitempty"`
	Data      map[string]string `json:"-"`
	Source    string            `json:"source"`
	Disabled  bool              `json:"disabled"`
	State     EntryState        `json:"state"`
	Reason    string            `json:"reason,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a deep copy of the entry.
func (e *ConfigEntry) Clone() *ConfigEntry {
	c := *e
	c.Data = maps.Clone(e.Data)
	return &c
}

// Integration sets up and tears down config entries of one domain.
type Integration interface {
	Domain() string

	// SetupEntry connects the entry and forwards it to the integration's
	// platforms. A returned error leaves nothing registered.
	SetupEntry(ctx context.Context, h *Host, entry *ConfigEntry) error

	// UnloadEntry unloads the entry's platforms and releases its resources.
	// It reports whether the unload succeeded.
	UnloadEntry(ctx context.Context, h *Host, entry *ConfigEntry) (bool, error)
}

// PlatformSetupFunc creates the entities of one platform for an entry.
type PlatformSetupFunc func(ctx context.Context, h *Host, entry *ConfigEntry, add AddEntitiesFunc) error
