package hass

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type registryKey struct {
	domain   string
	platform string
	uniqueID string
}

// EntityRegistry assigns stable entity IDs. It wraps an EntityRepository
// with an in-memory cache; with a nil repository it only keeps the cache.
//
// All public methods are thread-safe.
type EntityRegistry struct {
	repo EntityRepository

	mu       sync.RWMutex
	byKey    map[registryKey]RegistryEntry
	entityID map[string]registryKey

	now func() time.Time
}

// NewEntityRegistry creates a registry. Call Load to populate it from repo.
func NewEntityRegistry(repo EntityRepository) *EntityRegistry {
	return &EntityRegistry{
		repo:     repo,
		byKey:    make(map[registryKey]RegistryEntry),
		entityID: make(map[string]registryKey),
		now:      time.Now,
	}
}

// Load reads every persisted row into the cache.
func (r *EntityRegistry) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	rows, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading entity registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		key := registryKey{row.Domain, row.Platform, row.UniqueID}
		r.byKey[key] = row
		r.entityID[row.EntityID] = key
	}
	return nil
}

// GetOrCreate returns the registry row for the key, creating one if needed.
// New entity IDs are <domain>.<slug(name)>, falling back to the unique ID
// and suffixed _2, _3, ... while taken.
func (r *EntityRegistry) GetOrCreate(ctx context.Context, domain, platform, uniqueID, entryID, name string) (RegistryEntry, error) {
	key := registryKey{domain, platform, uniqueID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if row, ok := r.byKey[key]; ok {
		if row.ConfigEntryID != entryID {
			if r.repo != nil {
				if err := r.repo.UpdateEntry(ctx, row.EntityID, entryID); err != nil {
					return RegistryEntry{}, err
				}
			}
			row.ConfigEntryID = entryID
			r.byKey[key] = row
		}
		return row, nil
	}

	objectID := Slugify(name)
	if objectID == "" {
		objectID = Slugify(uniqueID)
	}
	if objectID == "" {
		objectID = platform
	}
	base := domain + "." + objectID
	entityID := base
	for i := 2; ; i++ {
		if _, taken := r.entityID[entityID]; !taken {
			break
		}
		entityID = base + "_" + strconv.Itoa(i)
	}

	row := RegistryEntry{
		EntityID:      entityID,
		Domain:        domain,
		Platform:      platform,
		UniqueID:      uniqueID,
		ConfigEntryID: entryID,
		OriginalName:  name,
		CreatedAt:     r.now(),
	}
	if r.repo != nil {
		if err := r.repo.Create(ctx, row); err != nil {
			return RegistryEntry{}, err
		}
	}
	r.byKey[key] = row
	r.entityID[entityID] = key
	return row, nil
}

// Lookup returns the row for an entity ID.
func (r *EntityRegistry) Lookup(entityID string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.entityID[entityID]
	if !ok {
		return RegistryEntry{}, false
	}
	return r.byKey[key], true
}

// Len returns the number of registered entities.
func (r *EntityRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
