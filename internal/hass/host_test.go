package hass

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestHost_SetupEntry(t *testing.T) {
	h, f := newTestHost(t)
	listener := &recordingListener{}
	h.AddStateListener(listener)

	entry := addTestEntry(t, h, "alice")

	if entry.State != EntryLoaded {
		t.Fatalf("entry state = %q, want loaded", entry.State)
	}
	if entry.EntryID == "" || entry.Source != SourceUser {
		t.Errorf("entry = %+v, want generated ID and user source", entry)
	}
	if v, ok := h.GetData("test", entry.EntryID); !ok || v != "alice" {
		t.Errorf("GetData() = %v, %v, want alice", v, ok)
	}

	entities := h.Entities()
	if len(entities) != 2 {
		t.Fatalf("Entities() = %d, want 2", len(entities))
	}
	if entities[0].EntityID != "climate.bedroom_ac" || entities[1].EntityID != "switch.bedroom_ac_display_mode" {
		t.Errorf("entity IDs = %s, %s", entities[0].EntityID, entities[1].EntityID)
	}
	// Climate and switch share a unique ID without colliding.
	if entities[0].Entity.UniqueID() != entities[1].Entity.UniqueID() {
		t.Error("expected shared unique ID")
	}

	if f.climates[entry.EntryID].writer == nil {
		t.Error("AddedToHost not called with a writer")
	}
	if listener.stateCount() != 2 {
		t.Errorf("state writes = %d, want 2 initial writes", listener.stateCount())
	}
	if len(listener.added) != 2 {
		t.Errorf("EntityAdded calls = %d, want 2", len(listener.added))
	}

	s, err := h.State("climate.bedroom_ac")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if s.State != HVACModeCool || s.Attributes["temperature"] != 24.0 || s.Attributes["icon"] != "mdi:air-conditioner" {
		t.Errorf("climate state = %+v", s)
	}
	sw, _ := h.State("switch.bedroom_ac_display_mode")
	if sw.State != StateOn {
		t.Errorf("switch state = %q, want on", sw.State)
	}
}

func TestHost_WriteState(t *testing.T) {
	h, f := newTestHost(t)
	listener := &recordingListener{}
	h.AddStateListener(listener)
	entry := addTestEntry(t, h, "alice")

	c := f.climates[entry.EntryID]
	c.mu.Lock()
	c.available = false
	c.mu.Unlock()
	c.writer.WriteState(c)

	s, _ := h.State("climate.bedroom_ac")
	if s.State != StateUnavailable || s.Available {
		t.Errorf("state = %q available=%v, want unavailable", s.State, s.Available)
	}
	if listener.stateCount() != 3 {
		t.Errorf("state writes = %d, want 3", listener.stateCount())
	}
	// Listeners get their own attribute map.
	listener.states[2].Attributes["temperature"] = 99.0
	if s2, _ := h.State("climate.bedroom_ac"); s2.Attributes["temperature"] == 99.0 {
		t.Error("listener mutation leaked into host state")
	}
}

func TestHost_UnloadEntry(t *testing.T) {
	h, f := newTestHost(t)
	listener := &recordingListener{}
	h.AddStateListener(listener)
	entry := addTestEntry(t, h, "alice")
	c := f.climates[entry.EntryID]

	ok, err := h.UnloadEntry(context.Background(), entry.EntryID)
	if err != nil || !ok {
		t.Fatalf("UnloadEntry() = %v, %v, want true", ok, err)
	}
	if len(h.Entities()) != 0 || len(h.States()) != 0 {
		t.Error("entities or states left after unload")
	}
	if !c.removed {
		t.Error("WillRemoveFromHost not called")
	}
	if _, ok := h.GetData("test", entry.EntryID); ok {
		t.Error("data left after unload")
	}
	if len(listener.removed) != 2 {
		t.Errorf("EntityRemoved calls = %d, want 2", len(listener.removed))
	}

	// Writes after removal are dropped.
	before := listener.stateCount()
	c.writer.WriteState(c)
	if listener.stateCount() != before {
		t.Error("state written for removed entity")
	}

	got, _ := h.Entry(entry.EntryID)
	if got.State != EntryNotLoaded {
		t.Errorf("state = %q, want not_loaded", got.State)
	}
}

func TestHost_UnloadRefused(t *testing.T) {
	h, f := newTestHost(t)
	entry := addTestEntry(t, h, "alice")
	f.refuse = true

	ok, err := h.UnloadEntry(context.Background(), entry.EntryID)
	if ok || err != nil {
		t.Fatalf("UnloadEntry() = %v, %v, want false, nil", ok, err)
	}
	got, _ := h.Entry(entry.EntryID)
	if got.State != EntryFailUnload {
		t.Errorf("state = %q, want failed_unload", got.State)
	}
	if _, ok := h.GetData("test", entry.EntryID); !ok {
		t.Error("data removed although unload was refused")
	}
	f.refuse = false
}

func TestHost_SetupRetry(t *testing.T) {
	h, f := newTestHost(t)
	f.failures = 2

	entry, err := h.AddEntry(context.Background(), &ConfigEntry{
		Domain: "test",
		Data:   map[string]string{"username": "bob"},
	})
	if !errors.Is(err, ErrSetupFailed) || !errors.Is(err, errFakeSetup) {
		t.Fatalf("AddEntry() error = %v, want ErrSetupFailed wrapping the cause", err)
	}
	if entry.State != EntrySetupRetry || entry.Reason == "" {
		t.Errorf("entry = %+v, want setup_retry with reason", entry)
	}
	if len(h.Entities()) != 0 {
		t.Error("entities registered after failed setup")
	}

	waitFor(t, func() bool {
		e, _ := h.Entry(entry.EntryID)
		return e.State == EntryLoaded
	})
	if got := f.setupCount(); got != 3 {
		t.Errorf("setup attempts = %d, want 3", got)
	}
	if len(h.Entities()) != 2 {
		t.Errorf("Entities() = %d after retry, want 2", len(h.Entities()))
	}
}

func TestHost_UnloadCancelsRetry(t *testing.T) {
	h, f := newTestHost(t)
	f.failures = 100

	entry, _ := h.AddEntry(context.Background(), &ConfigEntry{
		Domain: "test",
		Data:   map[string]string{"username": "bob"},
	})
	ok, err := h.UnloadEntry(context.Background(), entry.EntryID)
	if !ok || err != nil {
		t.Fatalf("UnloadEntry() = %v, %v", ok, err)
	}
	attempts := f.setupCount()

	got, _ := h.Entry(entry.EntryID)
	if got.State != EntryNotLoaded {
		t.Errorf("state = %q, want not_loaded", got.State)
	}
	// Longer than RetryMax: no further attempt may run.
	for i := 0; i < 20; i++ {
		if f.setupCount() != attempts {
			t.Fatal("setup retried after unload")
		}
		sleepShort()
	}
}

func TestHost_ReloadAndRemove(t *testing.T) {
	h, f := newTestHost(t)
	entry := addTestEntry(t, h, "alice")

	if err := h.ReloadEntry(context.Background(), entry.EntryID); err != nil {
		t.Fatalf("ReloadEntry() error = %v", err)
	}
	if f.setupCount() != 2 {
		t.Errorf("setups = %d, want 2", f.setupCount())
	}
	// Same entity IDs after reload.
	if _, err := h.Entity("climate.bedroom_ac"); err != nil {
		t.Errorf("Entity() after reload error = %v", err)
	}

	if err := h.RemoveEntry(context.Background(), entry.EntryID); err != nil {
		t.Fatalf("RemoveEntry() error = %v", err)
	}
	if _, err := h.Entry(entry.EntryID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Entry() after remove error = %v, want ErrEntryNotFound", err)
	}
	if len(h.Entities()) != 0 {
		t.Error("entities left after remove")
	}
}

func TestHost_EntityIDCollision(t *testing.T) {
	h, _ := newTestHost(t)
	addTestEntry(t, h, "alice")
	addTestEntry(t, h, "bob")

	if _, err := h.Entity("climate.bedroom_ac_2"); err != nil {
		t.Errorf("second climate entity: %v", err)
	}
	if _, err := h.Entity("switch.bedroom_ac_display_mode_2"); err != nil {
		t.Errorf("second switch entity: %v", err)
	}
}

func TestHost_UnknownIntegration(t *testing.T) {
	h, _ := newTestHost(t)
	_, err := h.AddEntry(context.Background(), &ConfigEntry{Domain: "nope"})
	if !errors.Is(err, ErrIntegrationNotFound) {
		t.Errorf("AddEntry() error = %v, want ErrIntegrationNotFound", err)
	}
	if err := h.SetupEntry(context.Background(), "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("SetupEntry() error = %v, want ErrEntryNotFound", err)
	}
}

func TestHost_MissingPlatform(t *testing.T) {
	h := NewHost(HostOptions{RetryInitial: 10 * time.Millisecond})
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	h.RegisterIntegration(newFakeIntegration())

	_, err := h.AddEntry(context.Background(), &ConfigEntry{Domain: "test", Data: map[string]string{}})
	if !errors.Is(err, ErrPlatformNotFound) {
		t.Errorf("AddEntry() error = %v, want ErrPlatformNotFound", err)
	}
}

func TestHost_AddEntryUniqueID(t *testing.T) {
	h, _ := newTestHost(t)
	ctx := context.Background()

	first, err := h.AddEntry(ctx, &ConfigEntry{Domain: "test", Title: "alice", UniqueID: "alice",
		Data: map[string]string{"username": "alice"}})
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	if first.UniqueID != "alice" {
		t.Errorf("UniqueID = %q, want alice", first.UniqueID)
	}

	_, err = h.AddEntry(ctx, &ConfigEntry{Domain: "test", Title: "again", UniqueID: "alice",
		Data: map[string]string{"username": "alice"}})
	if !errors.Is(err, ErrEntryExists) {
		t.Errorf("duplicate AddEntry() error = %v, want ErrEntryExists", err)
	}

	// Entries without a unique ID never conflict.
	addTestEntry(t, h, "bob")
	addTestEntry(t, h, "carol")

	// The ID is free again once the entry is removed.
	if err := h.RemoveEntry(ctx, first.EntryID); err != nil {
		t.Fatalf("RemoveEntry() error = %v", err)
	}
	if _, err := h.AddEntry(ctx, &ConfigEntry{Domain: "test", Title: "alice", UniqueID: "alice",
		Data: map[string]string{"username": "alice"}}); err != nil {
		t.Errorf("AddEntry() after remove error = %v", err)
	}
}

func TestHost_AddEntryUniqueIDConcurrent(t *testing.T) {
	h, _ := newTestHost(t)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		added   int
		refused int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.AddEntry(context.Background(), &ConfigEntry{Domain: "test", Title: "alice",
				UniqueID: "alice", Data: map[string]string{"username": "alice"}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				added++
			case errors.Is(err, ErrEntryExists):
				refused++
			default:
				t.Errorf("AddEntry() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if added != 1 || refused != callers-1 {
		t.Errorf("added = %d refused = %d, want 1 and %d", added, refused, callers-1)
	}
	if n := len(h.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestHost_ImportEntry(t *testing.T) {
	h, f := newTestHost(t)
	in := &ConfigEntry{
		EntryID: "fixed-id",
		Domain:  "test",
		Title:   "alice",
		Data:    map[string]string{"username": "alice"},
	}

	first, err := h.ImportEntry(context.Background(), in)
	if err != nil {
		t.Fatalf("ImportEntry() error = %v", err)
	}
	if first.Source != SourceImport || first.State != EntryLoaded {
		t.Errorf("imported entry = %+v", first)
	}

	// Unchanged import is a no-op.
	if _, err := h.ImportEntry(context.Background(), in); err != nil {
		t.Fatalf("second ImportEntry() error = %v", err)
	}
	if f.setupCount() != 1 {
		t.Errorf("setups = %d after unchanged import, want 1", f.setupCount())
	}

	in.Title = "Alice"
	updated, err := h.ImportEntry(context.Background(), in)
	if err != nil {
		t.Fatalf("changed ImportEntry() error = %v", err)
	}
	if updated.Title != "Alice" || f.setupCount() != 2 {
		t.Errorf("title = %q setups = %d, want reload", updated.Title, f.setupCount())
	}
}

func TestHost_Data(t *testing.T) {
	h := NewHost(HostOptions{})
	h.SetData("d", "e1", 42)

	if v, ok := h.GetData("d", "e1"); !ok || v != 42 {
		t.Errorf("GetData() = %v, %v", v, ok)
	}
	if v, ok := h.PopData("d", "e1"); !ok || v != 42 {
		t.Errorf("PopData() = %v, %v", v, ok)
	}
	if _, ok := h.PopData("d", "e1"); ok {
		t.Error("PopData() twice returned ok")
	}
	if _, ok := h.GetData("other", "e1"); ok {
		t.Error("GetData() on unknown domain returned ok")
	}
}

func TestHost_Shutdown(t *testing.T) {
	h, f := newTestHost(t)
	entry := addTestEntry(t, h, "alice")

	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if f.climates[entry.EntryID].removed != true {
		t.Error("entities not removed on shutdown")
	}
	if _, err := h.AddEntry(context.Background(), &ConfigEntry{Domain: "test"}); !errors.Is(err, ErrHostStopped) {
		t.Errorf("AddEntry() after Shutdown error = %v, want ErrHostStopped", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Bedroom AC":              "bedroom_ac",
		"Bedroom AC display mode": "bedroom_ac_display_mode",
		"  Living--Room (2) ":     "living_room_2",
		"a1b2-c3":                 "a1b2_c3",
		"!!!":                     "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
