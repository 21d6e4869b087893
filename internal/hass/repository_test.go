package hass

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/miraie-core/internal/infrastructure/database"
	"github.com/nerrad567/miraie-core/migrations"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestSQLiteEntryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEntryRepository(openTestDB(t).DB)
	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	entry := &ConfigEntry{
		EntryID:   "entry-1",
		Domain:    "miraie",
		Title:     "Home",
		UniqueID:  "alice",
		Data:      map[string]string{"username": "alice", "password": "pw"},
		Source:    SourceUser,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, entry); !errors.Is(err, ErrEntryExists) {
		t.Errorf("Create() duplicate error = %v, want ErrEntryExists", err)
	}

	twin := entry.Clone()
	twin.EntryID = "entry-2"
	if err := repo.Create(ctx, twin); !errors.Is(err, ErrEntryExists) {
		t.Errorf("Create() same account error = %v, want ErrEntryExists", err)
	}
	twin.UniqueID = ""
	if err := repo.Create(ctx, twin); err != nil {
		t.Errorf("Create() without unique ID error = %v", err)
	}
	if err := repo.Delete(ctx, "entry-2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := repo.Get(ctx, "entry-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Home" || got.UniqueID != "alice" || got.Data["username"] != "alice" || got.Source != SourceUser {
		t.Errorf("Get() = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	got.Title = "Cottage"
	got.Disabled = true
	got.UpdatedAt = created.Add(time.Hour)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Title != "Cottage" || !list[0].Disabled {
		t.Errorf("List() = %+v", list)
	}

	if err := repo.Delete(ctx, "entry-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, "entry-1"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrEntryNotFound", err)
	}
	if err := repo.Delete(ctx, "entry-1"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrEntryNotFound", err)
	}
	if err := repo.Update(ctx, got); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Update() missing error = %v, want ErrEntryNotFound", err)
	}
}

func TestEntityRegistry_PersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	reg := NewEntityRegistry(NewSQLiteEntityRepository(db.DB))
	if err := reg.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	climate, err := reg.GetOrCreate(ctx, DomainClimate, "miraie", "dev1", "entry-1", "Bedroom AC")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	sw, err := reg.GetOrCreate(ctx, DomainSwitch, "miraie", "dev1", "entry-1", "Bedroom AC display mode")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if climate.EntityID != "climate.bedroom_ac" || sw.EntityID != "switch.bedroom_ac_display_mode" {
		t.Errorf("entity IDs = %s, %s", climate.EntityID, sw.EntityID)
	}

	// A new registry over the same database sees the same IDs, even if the
	// device was renamed and moved to another entry.
	reloaded := NewEntityRegistry(NewSQLiteEntityRepository(db.DB))
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reloaded.Len())
	}
	again, err := reloaded.GetOrCreate(ctx, DomainClimate, "miraie", "dev1", "entry-2", "Guest Room")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if again.EntityID != "climate.bedroom_ac" || again.ConfigEntryID != "entry-2" {
		t.Errorf("GetOrCreate() after reload = %+v", again)
	}

	rows, err := NewSQLiteEntityRepository(db.DB).List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, row := range rows {
		if row.EntityID == "climate.bedroom_ac" && row.ConfigEntryID != "entry-2" {
			t.Errorf("persisted config_entry_id = %s, want entry-2", row.ConfigEntryID)
		}
	}
}

func TestEntityRegistry_Fallbacks(t *testing.T) {
	ctx := context.Background()
	reg := NewEntityRegistry(nil)

	tests := []struct {
		uniqueID string
		name     string
		want     string
	}{
		{"AB-12", "", "climate.ab_12"},
		{"cd-34", "Lounge", "climate.lounge"},
		{"ef-56", "Lounge", "climate.lounge_2"},
		{"gh-78", "Lounge!", "climate.lounge_3"},
		{"", "", "climate.miraie"},
	}
	for _, tt := range tests {
		row, err := reg.GetOrCreate(ctx, DomainClimate, "miraie", tt.uniqueID, "e", tt.name)
		if err != nil {
			t.Fatalf("GetOrCreate(%q) error = %v", tt.uniqueID, err)
		}
		if row.EntityID != tt.want {
			t.Errorf("GetOrCreate(%q, %q) = %s, want %s", tt.uniqueID, tt.name, row.EntityID, tt.want)
		}
	}
	if _, ok := reg.Lookup("climate.lounge_2"); !ok {
		t.Error("Lookup(climate.lounge_2) not found")
	}
}

func TestHost_LoadEntriesFromRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSQLiteEntryRepository(db.DB)

	first := NewHost(HostOptions{Entries: repo, Registry: NewEntityRegistry(NewSQLiteEntityRepository(db.DB))})
	newFakeIntegration().register(first)
	entry, err := first.AddEntry(ctx, &ConfigEntry{Domain: "test", Title: "alice", Data: map[string]string{"username": "alice"}})
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	if err := first.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	registry := NewEntityRegistry(NewSQLiteEntityRepository(db.DB))
	if err := registry.Load(ctx); err != nil {
		t.Fatal(err)
	}
	second := NewHost(HostOptions{Entries: repo, Registry: registry})
	f := newFakeIntegration()
	f.entityName = "Renamed"
	f.register(second)
	t.Cleanup(func() { _ = second.Shutdown(ctx) })

	if err := second.LoadEntries(ctx); err != nil {
		t.Fatalf("LoadEntries() error = %v", err)
	}
	got, err := second.Entry(entry.EntryID)
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	if got.State != EntryLoaded {
		t.Errorf("State = %s, want loaded", got.State)
	}
	// Entity IDs come from the registry, not the new name.
	if _, err := second.Entity("climate.bedroom_ac"); err != nil {
		t.Errorf("Entity(climate.bedroom_ac) error = %v", err)
	}
}
