package hass

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Setup retry bounds.
const (
	defaultRetryInitial = time.Second
	defaultRetryMax     = 5 * time.Minute

	// retrySetupTimeout bounds one retried setup attempt.
	retrySetupTimeout = 2 * time.Minute
)

// Logger defines the logging interface used by the Host.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RegisteredEntity is an entity added to the host.
type RegisteredEntity struct {
	EntityID string
	Domain   string
	Platform string
	EntryID  string
	Entity   Entity
}

// HostOptions configures a Host. Every field is optional.
type HostOptions struct {
	// Entries persists config entries. Nil keeps entries in memory only.
	Entries EntryRepository

	// Registry assigns entity IDs. Nil uses an in-memory registry.
	Registry *EntityRegistry

	Logger Logger

	// RetryInitial and RetryMax bound the setup retry backoff.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

type entryRecord struct {
	entry     *ConfigEntry
	platforms []string

	// lifecycle serialises setup and unload of this entry.
	lifecycle  sync.Mutex
	retry      *time.Timer
	retryDelay time.Duration
}

// Host runs integrations: it owns config entries and their lifecycle, the
// entities those entries create, and the services that act on them.
//
// Thread Safety: All methods are safe for concurrent use.
type Host struct {
	repo     EntryRepository
	registry *EntityRegistry
	logger   Logger

	retryInitial time.Duration
	retryMax     time.Duration

	mu           sync.RWMutex
	integrations map[string]Integration
	platforms    map[string]map[string]PlatformSetupFunc
	entries      map[string]*entryRecord
	data         map[string]map[string]any
	entities     map[string]*RegisteredEntity
	byEntity     map[Entity]*RegisteredEntity
	states       map[string]State
	listeners    []StateListener
	onService    func(domain, service string, err error)
	stopped      bool

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// NewHost creates an empty host.
func NewHost(opts HostOptions) *Host {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Host{
		repo:         opts.Entries,
		registry:     opts.Registry,
		logger:       opts.Logger,
		retryInitial: opts.RetryInitial,
		retryMax:     opts.RetryMax,
		integrations: make(map[string]Integration),
		platforms:    make(map[string]map[string]PlatformSetupFunc),
		entries:      make(map[string]*entryRecord),
		data:         make(map[string]map[string]any),
		entities:     make(map[string]*RegisteredEntity),
		byEntity:     make(map[Entity]*RegisteredEntity),
		states:       make(map[string]State),
		ctx:          ctx,
		cancel:       cancel,
		now:          time.Now,
	}
	if h.registry == nil {
		h.registry = NewEntityRegistry(nil)
	}
	if h.logger == nil {
		h.logger = noopLogger{}
	}
	if h.retryInitial <= 0 {
		h.retryInitial = defaultRetryInitial
	}
	if h.retryMax <= 0 {
		h.retryMax = defaultRetryMax
	}
	return h
}

// =============================================================================
// Registration
// =============================================================================

// RegisterIntegration makes an integration available for its domain.
func (h *Host) RegisterIntegration(i Integration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.integrations[i.Domain()] = i
}

// RegisterPlatform registers the setup of one entity platform (climate,
// switch) for an integration domain.
func (h *Host) RegisterPlatform(domain, platform string, fn PlatformSetupFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.platforms[domain] == nil {
		h.platforms[domain] = make(map[string]PlatformSetupFunc)
	}
	h.platforms[domain][platform] = fn
}

// AddStateListener registers l for every future state write.
func (h *Host) AddStateListener(l StateListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// OnServiceCall registers fn to observe the outcome of every service call.
func (h *Host) OnServiceCall(fn func(domain, service string, err error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onService = fn
}

// =============================================================================
// Shared Data
// =============================================================================

// SetData stores per-entry runtime data of an integration (e.g. its hub).
func (h *Host) SetData(domain, entryID string, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.data[domain] == nil {
		h.data[domain] = make(map[string]any)
	}
	h.data[domain][entryID] = v
}

// GetData returns per-entry runtime data.
func (h *Host) GetData(domain, entryID string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.data[domain][entryID]
	return v, ok
}

// PopData removes and returns per-entry runtime data.
func (h *Host) PopData(domain, entryID string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.data[domain][entryID]
	if ok {
		delete(h.data[domain], entryID)
	}
	return v, ok
}

// =============================================================================
// Config Entries
// =============================================================================

// LoadEntries reads persisted entries and sets up every enabled one.
// Setup failures are handled by the retry schedule, not returned.
func (h *Host) LoadEntries(ctx context.Context) error {
	if h.repo == nil {
		return nil
	}
	entries, err := h.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading config entries: %w", err)
	}

	h.mu.Lock()
	var toSetup []string
	for _, e := range entries {
		if _, exists := h.entries[e.EntryID]; exists {
			continue
		}
		h.entries[e.EntryID] = &entryRecord{entry: e}
		if !e.Disabled {
			toSetup = append(toSetup, e.EntryID)
		}
	}
	h.mu.Unlock()

	for _, id := range toSetup {
		if err := h.SetupEntry(ctx, id); err != nil {
			h.logger.Warn("config entry setup failed", "entry_id", id, "error", err)
		}
	}
	h.logger.Info("config entries loaded", "count", len(entries))
	return nil
}

// AddEntry persists a new entry and sets it up. An empty EntryID is filled
// with a random UUID. An entry whose UniqueID is already held by another
// entry of the same domain is rejected with ErrEntryExists. The entry is
// kept even if setup fails; the returned error then wraps ErrSetupFailed.
func (h *Host) AddEntry(ctx context.Context, entry *ConfigEntry) (*ConfigEntry, error) {
	if entry.Domain == "" {
		return nil, fmt.Errorf("%w: domain is required", ErrIntegrationNotFound)
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, ErrHostStopped
	}
	if _, ok := h.integrations[entry.Domain]; !ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrIntegrationNotFound, entry.Domain)
	}
	e := entry.Clone()
	if e.EntryID == "" {
		e.EntryID = uuid.NewString()
	}
	if _, exists := h.entries[e.EntryID]; exists {
		h.mu.Unlock()
		return nil, ErrEntryExists
	}
	if other := h.entryByUniqueID(e.Domain, e.UniqueID); other != nil {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s account %q is configured as %q",
			ErrEntryExists, e.Domain, e.UniqueID, other.Title)
	}
	if e.Source == "" {
		e.Source = SourceUser
	}
	now := h.now()
	e.CreatedAt, e.UpdatedAt = now, now
	e.State = EntryNotLoaded
	h.entries[e.EntryID] = &entryRecord{entry: e}
	h.mu.Unlock()

	if h.repo != nil {
		if err := h.repo.Create(ctx, e); err != nil {
			h.mu.Lock()
			delete(h.entries, e.EntryID)
			h.mu.Unlock()
			return nil, err
		}
	}

	if e.Disabled {
		return e.Clone(), nil
	}
	err := h.SetupEntry(ctx, e.EntryID)
	out, _ := h.Entry(e.EntryID) //nolint:errcheck // just added
	return out, err
}

// entryByUniqueID returns the entry of domain holding uniqueID. Callers
// hold h.mu.
func (h *Host) entryByUniqueID(domain, uniqueID string) *ConfigEntry {
	if uniqueID == "" {
		return nil
	}
	for _, rec := range h.entries {
		if rec.entry.Domain == domain && rec.entry.UniqueID == uniqueID {
			return rec.entry
		}
	}
	return nil
}

// ImportEntry adds an entry, or updates title and data of an existing entry
// with the same ID, then sets it up. Used for entries from config.yaml.
func (h *Host) ImportEntry(ctx context.Context, entry *ConfigEntry) (*ConfigEntry, error) {
	h.mu.Lock()
	rec, exists := h.entries[entry.EntryID]
	h.mu.Unlock()
	if !exists || entry.EntryID == "" {
		e := entry.Clone()
		e.Source = SourceImport
		return h.AddEntry(ctx, e)
	}

	rec.lifecycle.Lock()
	h.mu.Lock()
	changed := rec.entry.Title != entry.Title || !maps.Equal(rec.entry.Data, entry.Data)
	if changed {
		rec.entry.Title = entry.Title
		rec.entry.Data = entry.Clone().Data
		rec.entry.UpdatedAt = h.now()
	}
	updated := rec.entry.Clone()
	h.mu.Unlock()
	rec.lifecycle.Unlock()

	if changed && h.repo != nil {
		if err := h.repo.Update(ctx, updated); err != nil {
			return nil, err
		}
	}
	if changed {
		return updated, h.ReloadEntry(ctx, updated.EntryID)
	}
	if updated.State == EntryNotLoaded && !updated.Disabled {
		return updated, h.SetupEntry(ctx, updated.EntryID)
	}
	return updated, nil
}

// Entry returns a copy of an entry.
func (h *Host) Entry(entryID string) (*ConfigEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.entries[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return rec.entry.Clone(), nil
}

// Entries returns copies of all entries, oldest first.
func (h *Host) Entries() []*ConfigEntry {
	h.mu.RLock()
	out := make([]*ConfigEntry, 0, len(h.entries))
	for _, rec := range h.entries {
		out = append(out, rec.entry.Clone())
	}
	h.mu.RUnlock()

	slices.SortFunc(out, func(a, b *ConfigEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.EntryID, b.EntryID)
	})
	return out
}

// EntryCounts returns the number of entries per state.
func (h *Host) EntryCounts() map[EntryState]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := make(map[EntryState]int)
	for _, rec := range h.entries {
		counts[rec.entry.State]++
	}
	return counts
}

// SetupEntry sets up a not-loaded entry. On failure the entry moves to
// setup_retry and another attempt is scheduled with exponential backoff;
// the returned error wraps ErrSetupFailed and the integration's error.
func (h *Host) SetupEntry(ctx context.Context, entryID string) error {
	rec, integration, err := h.lookupEntry(entryID)
	if err != nil {
		return err
	}

	rec.lifecycle.Lock()
	defer rec.lifecycle.Unlock()
	return h.setupLocked(ctx, rec, integration)
}

// setupLocked runs the setup. The caller holds rec.lifecycle.
func (h *Host) setupLocked(ctx context.Context, rec *entryRecord, integration Integration) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrHostStopped
	}
	entryID := rec.entry.EntryID
	if rec.entry.State == EntryLoaded {
		h.mu.Unlock()
		return nil
	}
	stopTimer(rec)
	entry := rec.entry.Clone()
	h.mu.Unlock()

	if integration == nil {
		h.setEntryState(rec, EntrySetupError, ErrIntegrationNotFound.Error())
		return fmt.Errorf("%w: %s", ErrIntegrationNotFound, entry.Domain)
	}

	h.logger.Info("setting up config entry", "entry_id", entryID, "domain", entry.Domain, "title", entry.Title)
	if err := integration.SetupEntry(ctx, h, entry); err != nil {
		//nolint:errcheck // entities of a failed setup are discarded
		h.removeEntryEntities(ctx, entryID, "")
		h.setEntryState(rec, EntrySetupRetry, err.Error())
		delay := h.scheduleRetry(rec)
		h.logger.Warn("config entry setup failed, will retry",
			"entry_id", entryID, "error", err, "retry_in", delay)
		return fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	h.mu.Lock()
	rec.retryDelay = 0
	h.mu.Unlock()
	h.setEntryState(rec, EntryLoaded, "")
	h.logger.Info("config entry loaded", "entry_id", entryID)
	return nil
}

// UnloadEntry unloads a loaded entry and cancels any pending retry.
// Entries that are not loaded unload trivially.
func (h *Host) UnloadEntry(ctx context.Context, entryID string) (bool, error) {
	rec, integration, err := h.lookupEntry(entryID)
	if err != nil {
		return false, err
	}

	rec.lifecycle.Lock()
	defer rec.lifecycle.Unlock()

	h.mu.Lock()
	stopTimer(rec)
	rec.retryDelay = 0
	state := rec.entry.State
	entry := rec.entry.Clone()
	h.mu.Unlock()

	if state != EntryLoaded && state != EntryFailUnload {
		h.setEntryState(rec, EntryNotLoaded, "")
		return true, nil
	}
	if integration == nil {
		h.setEntryState(rec, EntryFailUnload, ErrIntegrationNotFound.Error())
		return false, ErrIntegrationNotFound
	}

	ok, err := integration.UnloadEntry(ctx, h, entry)
	if err != nil || !ok {
		reason := "unload refused"
		if err != nil {
			reason = err.Error()
		}
		h.setEntryState(rec, EntryFailUnload, reason)
		return false, err
	}

	h.mu.Lock()
	rec.platforms = nil
	h.mu.Unlock()
	h.setEntryState(rec, EntryNotLoaded, "")
	h.logger.Info("config entry unloaded", "entry_id", entryID)
	return true, nil
}

// ReloadEntry unloads and sets up an entry again.
func (h *Host) ReloadEntry(ctx context.Context, entryID string) error {
	ok, err := h.UnloadEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unload of %s refused", ErrEntryNotLoaded, entryID)
	}
	return h.SetupEntry(ctx, entryID)
}

// RemoveEntry unloads and deletes an entry.
func (h *Host) RemoveEntry(ctx context.Context, entryID string) error {
	ok, err := h.UnloadEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unload of %s refused", ErrEntryNotLoaded, entryID)
	}
	if h.repo != nil {
		if err := h.repo.Delete(ctx, entryID); err != nil && !errors.Is(err, ErrEntryNotFound) {
			return err
		}
	}
	h.mu.Lock()
	delete(h.entries, entryID)
	h.mu.Unlock()
	h.logger.Info("config entry removed", "entry_id", entryID)
	return nil
}

// Shutdown unloads every loaded entry and stops pending retries.
func (h *Host) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	ids := make([]string, 0, len(h.entries))
	for id, rec := range h.entries {
		stopTimer(rec)
		ids = append(ids, id)
	}
	h.mu.Unlock()
	h.cancel()

	var errs []error
	for _, id := range ids {
		if _, err := h.UnloadEntry(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("unloading %s: %w", id, err))
		}
	}

	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	return errors.Join(errs...)
}

func (h *Host) lookupEntry(entryID string) (*entryRecord, Integration, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.entries[entryID]
	if !ok {
		return nil, nil, ErrEntryNotFound
	}
	return rec, h.integrations[rec.entry.Domain], nil
}

func (h *Host) setEntryState(rec *entryRecord, state EntryState, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec.entry.State = state
	rec.entry.Reason = reason
}

// scheduleRetry arms the retry timer and returns its delay.
// The caller holds rec.lifecycle.
func (h *Host) scheduleRetry(rec *entryRecord) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.ctx.Err() != nil {
		return 0
	}

	delay := rec.retryDelay
	if delay == 0 {
		delay = h.retryInitial
	}
	rec.retryDelay = min(delay*2, h.retryMax)

	rec.retry = time.AfterFunc(delay, func() { h.retrySetup(rec) })
	return delay
}

// retrySetup is run by the retry timer. An unload or manual setup that
// happened while the timer fired wins.
func (h *Host) retrySetup(rec *entryRecord) {
	ctx, cancel := context.WithTimeout(h.ctx, retrySetupTimeout)
	defer cancel()
	if ctx.Err() != nil {
		return
	}

	rec.lifecycle.Lock()
	defer rec.lifecycle.Unlock()

	h.mu.RLock()
	state := rec.entry.State
	integration := h.integrations[rec.entry.Domain]
	h.mu.RUnlock()
	if state != EntrySetupRetry {
		return
	}
	//nolint:errcheck // failure reschedules and is logged by setupLocked
	h.setupLocked(ctx, rec, integration)
}

// stopTimer cancels a pending retry. The caller holds h.mu.
func stopTimer(rec *entryRecord) {
	if rec.retry != nil {
		rec.retry.Stop()
		rec.retry = nil
	}
}

// =============================================================================
// Platforms and Entities
// =============================================================================

// ForwardEntrySetups runs the setup of each platform for the entry.
// It stops at the first failing platform.
func (h *Host) ForwardEntrySetups(ctx context.Context, entry *ConfigEntry, platforms ...string) error {
	for _, platform := range platforms {
		h.mu.RLock()
		fn := h.platforms[entry.Domain][platform]
		h.mu.RUnlock()
		if fn == nil {
			return fmt.Errorf("%w: %s.%s", ErrPlatformNotFound, entry.Domain, platform)
		}

		add := func(ctx context.Context, entities ...Entity) error {
			return h.addEntities(ctx, entry, platform, entities)
		}
		if err := fn(ctx, h, entry, add); err != nil {
			return fmt.Errorf("setting up %s platform: %w", platform, err)
		}

		h.mu.Lock()
		if rec, ok := h.entries[entry.EntryID]; ok && !slices.Contains(rec.platforms, platform) {
			rec.platforms = append(rec.platforms, platform)
		}
		h.mu.Unlock()
	}
	return nil
}

// UnloadPlatforms removes the entry's entities of the given platforms.
// It reports false if any entity failed to detach cleanly; the entities
// are removed either way.
func (h *Host) UnloadPlatforms(ctx context.Context, entry *ConfigEntry, platforms ...string) (bool, error) {
	var errs []error
	for _, platform := range platforms {
		errs = append(errs, h.removeEntryEntities(ctx, entry.EntryID, platform))
	}
	h.mu.Lock()
	if rec, ok := h.entries[entry.EntryID]; ok {
		rec.platforms = slices.DeleteFunc(rec.platforms, func(p string) bool {
			return slices.Contains(platforms, p)
		})
	}
	h.mu.Unlock()

	err := errors.Join(errs...)
	return err == nil, err
}

func (h *Host) addEntities(ctx context.Context, entry *ConfigEntry, domain string, entities []Entity) error {
	for _, e := range entities {
		if err := checkDomain(domain, e); err != nil {
			return err
		}

		row, err := h.registry.GetOrCreate(ctx, domain, entry.Domain, e.UniqueID(), entry.EntryID, e.Name())
		if err != nil {
			return fmt.Errorf("registering entity %s: %w", e.UniqueID(), err)
		}

		re := &RegisteredEntity{
			EntityID: row.EntityID,
			Domain:   domain,
			Platform: entry.Domain,
			EntryID:  entry.EntryID,
			Entity:   e,
		}

		h.mu.Lock()
		if _, exists := h.entities[re.EntityID]; exists {
			h.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrEntityExists, re.EntityID)
		}
		h.entities[re.EntityID] = re
		h.byEntity[e] = re
		listeners := slices.Clone(h.listeners)
		h.mu.Unlock()

		if lc, ok := e.(Lifecycle); ok {
			if err := lc.AddedToHost(ctx, h); err != nil {
				h.mu.Lock()
				delete(h.entities, re.EntityID)
				delete(h.byEntity, e)
				h.mu.Unlock()
				return fmt.Errorf("adding %s: %w", re.EntityID, err)
			}
		}

		for _, l := range listeners {
			if el, ok := l.(EntityListener); ok {
				el.EntityAdded(re)
			}
		}
		h.logger.Debug("entity added", "entity_id", re.EntityID, "unique_id", e.UniqueID())
		h.WriteState(e)
	}
	return nil
}

// removeEntryEntities removes the entry's entities of one domain, or of
// every domain when domain is empty.
func (h *Host) removeEntryEntities(ctx context.Context, entryID, domain string) error {
	h.mu.Lock()
	var removed []*RegisteredEntity
	for id, re := range h.entities {
		if re.EntryID != entryID || (domain != "" && re.Domain != domain) {
			continue
		}
		removed = append(removed, re)
		delete(h.entities, id)
		delete(h.byEntity, re.Entity)
		delete(h.states, id)
	}
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()

	var errs []error
	for _, re := range removed {
		if lc, ok := re.Entity.(Lifecycle); ok {
			if err := lc.WillRemoveFromHost(ctx); err != nil {
				errs = append(errs, fmt.Errorf("removing %s: %w", re.EntityID, err))
			}
		}
		for _, l := range listeners {
			if el, ok := l.(EntityListener); ok {
				el.EntityRemoved(re)
			}
		}
		h.logger.Debug("entity removed", "entity_id", re.EntityID)
	}
	return errors.Join(errs...)
}

func checkDomain(domain string, e Entity) error {
	if e == nil || !reflect.TypeOf(e).Comparable() {
		return fmt.Errorf("hass: entity of type %T cannot be registered", e)
	}
	switch domain {
	case DomainClimate:
		if _, ok := e.(ClimateEntity); ok {
			return nil
		}
	case DomainSwitch:
		if _, ok := e.(SwitchEntity); ok {
			return nil
		}
	default:
		return fmt.Errorf("%w: %s", ErrPlatformNotFound, domain)
	}
	return fmt.Errorf("hass: %T is not a %s entity", e, domain)
}

// WriteState renders the entity's current state, stores it and pushes it
// to every listener. Writes for entities that are no longer added are
// dropped.
func (h *Host) WriteState(e Entity) {
	h.mu.RLock()
	re, ok := h.byEntity[e]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("dropping state write of removed entity", "unique_id", e.UniqueID())
		return
	}

	s := renderState(re, h.now())

	h.mu.Lock()
	if _, still := h.entities[re.EntityID]; !still {
		h.mu.Unlock()
		return
	}
	h.states[re.EntityID] = s
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()

	for _, l := range listeners {
		l.StateChanged(s.clone())
	}
}

// Entities returns the added entities ordered by entity ID.
func (h *Host) Entities() []*RegisteredEntity {
	h.mu.RLock()
	out := make([]*RegisteredEntity, 0, len(h.entities))
	for _, re := range h.entities {
		out = append(out, re)
	}
	h.mu.RUnlock()
	slices.SortFunc(out, func(a, b *RegisteredEntity) int { return strings.Compare(a.EntityID, b.EntityID) })
	return out
}

// Entity returns an added entity.
func (h *Host) Entity(entityID string) (*RegisteredEntity, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	re, ok := h.entities[entityID]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return re, nil
}

// States returns the last written state of every entity, ordered by entity ID.
func (h *Host) States() []State {
	h.mu.RLock()
	out := make([]State, 0, len(h.states))
	for _, s := range h.states {
		out = append(out, s.clone())
	}
	h.mu.RUnlock()
	slices.SortFunc(out, func(a, b State) int { return strings.Compare(a.EntityID, b.EntityID) })
	return out
}

// State returns the last written state of an entity.
func (h *Host) State(entityID string) (State, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.states[entityID]
	if !ok {
		return State{}, ErrEntityNotFound
	}
	return s.clone(), nil
}
