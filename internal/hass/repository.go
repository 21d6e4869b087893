package hass

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EntryRepository persists config entries.
type EntryRepository interface {
	// Get returns ErrEntryNotFound if the entry does not exist.
	Get(ctx context.Context, entryID string) (*ConfigEntry, error)

	// List returns all entries ordered by creation time.
	List(ctx context.Context) ([]*ConfigEntry, error)

	// Create returns ErrEntryExists if the entry ID is taken.
	Create(ctx context.Context, entry *ConfigEntry) error

	// Update returns ErrEntryNotFound if the entry does not exist.
	Update(ctx context.Context, entry *ConfigEntry) error

	// Delete returns ErrEntryNotFound if the entry does not exist.
	Delete(ctx context.Context, entryID string) error
}

// RegistryEntry is one row of the entity registry.
type RegistryEntry struct {
	EntityID      string
	Domain        string
	Platform      string
	UniqueID      string
	ConfigEntryID string
	OriginalName  string
	CreatedAt     time.Time
}

// EntityRepository persists entity registry rows.
type EntityRepository interface {
	List(ctx context.Context) ([]RegistryEntry, error)

	// Create returns ErrEntityExists if the entity ID or the
	// (domain, platform, unique_id) key is taken.
	Create(ctx context.Context, e RegistryEntry) error

	// UpdateEntry moves a registry row to a new config entry.
	UpdateEntry(ctx context.Context, entityID, configEntryID string) error
}

// SQLiteEntryRepository implements EntryRepository on the config_entries table.
type SQLiteEntryRepository struct {
	db *sql.DB
}

// NewSQLiteEntryRepository creates a repository on an open, migrated database.
func NewSQLiteEntryRepository(db *sql.DB) *SQLiteEntryRepository {
	return &SQLiteEntryRepository{db: db}
}

const entryColumns = `entry_id, domain, title, unique_id, data, source, disabled, created_at, updated_at`

// Get retrieves an entry by ID.
func (r *SQLiteEntryRepository) Get(ctx context.Context, entryID string) (*ConfigEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM config_entries WHERE entry_id = ?`, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("querying config entry: %w", err)
	}
	return entry, nil
}

// List retrieves all entries.
func (r *SQLiteEntryRepository) List(ctx context.Context) ([]*ConfigEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM config_entries ORDER BY created_at, entry_id`)
	if err != nil {
		return nil, fmt.Errorf("querying config entries: %w", err)
	}
	defer rows.Close()

	var entries []*ConfigEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning config entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating config entries: %w", err)
	}
	return entries, nil
}

// Create inserts a new entry.
func (r *SQLiteEntryRepository) Create(ctx context.Context, entry *ConfigEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("marshalling entry data: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO config_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntryID,
		entry.Domain,
		entry.Title,
		entry.UniqueID,
		string(data),
		entry.Source,
		boolToInt(entry.Disabled),
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEntryExists
		}
		return fmt.Errorf("inserting config entry: %w", err)
	}
	return nil
}

// Update modifies title, data and the disabled flag.
func (r *SQLiteEntryRepository) Update(ctx context.Context, entry *ConfigEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("marshalling entry data: %w", err)
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE config_entries SET title = ?, data = ?, disabled = ?, updated_at = ? WHERE entry_id = ?`,
		entry.Title,
		string(data),
		boolToInt(entry.Disabled),
		entry.UpdatedAt.UTC().Format(time.RFC3339),
		entry.EntryID,
	)
	if err != nil {
		return fmt.Errorf("updating config entry: %w", err)
	}
	return requireOneRow(result, ErrEntryNotFound)
}

// Delete removes an entry.
func (r *SQLiteEntryRepository) Delete(ctx context.Context, entryID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM config_entries WHERE entry_id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("deleting config entry: %w", err)
	}
	return requireOneRow(result, ErrEntryNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*ConfigEntry, error) {
	var (
		entry     ConfigEntry
		data      string
		disabled  int
		createdAt string
		updatedAt string
	)
	if err := s.Scan(&entry.EntryID, &entry.Domain, &entry.Title, &entry.UniqueID, &data, &entry.Source,
		&disabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &entry.Data); err != nil {
		return nil, fmt.Errorf("unmarshalling entry data: %w", err)
	}
	entry.Disabled = disabled != 0
	entry.State = EntryNotLoaded
	entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // written by Create
	entry.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // written by Create/Update
	return &entry, nil
}

// SQLiteEntityRepository implements EntityRepository on the entity_registry table.
type SQLiteEntityRepository struct {
	db *sql.DB
}

// NewSQLiteEntityRepository creates a repository on an open, migrated database.
func NewSQLiteEntityRepository(db *sql.DB) *SQLiteEntityRepository {
	return &SQLiteEntityRepository{db: db}
}

// List retrieves all registry rows.
func (r *SQLiteEntityRepository) List(ctx context.Context) ([]RegistryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entity_id, domain, platform, unique_id, config_entry_id, original_name, created_at
		FROM entity_registry
		ORDER BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("querying entity registry: %w", err)
	}
	defer rows.Close()

	var entries []RegistryEntry
	for rows.Next() {
		var (
			e         RegistryEntry
			createdAt string
		)
		if err := rows.Scan(&e.EntityID, &e.Domain, &e.Platform, &e.UniqueID,
			&e.ConfigEntryID, &e.OriginalName, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning entity registry: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // written by Create
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity registry: %w", err)
	}
	return entries, nil
}

// Create inserts a registry row.
func (r *SQLiteEntityRepository) Create(ctx context.Context, e RegistryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entity_registry
			(entity_id, domain, platform, unique_id, config_entry_id, original_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.EntityID, e.Domain, e.Platform, e.UniqueID, e.ConfigEntryID, e.OriginalName,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEntityExists
		}
		return fmt.Errorf("inserting entity registry row: %w", err)
	}
	return nil
}

// UpdateEntry moves a registry row to another config entry.
func (r *SQLiteEntityRepository) UpdateEntry(ctx context.Context, entityID, configEntryID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE entity_registry SET config_entry_id = ? WHERE entity_id = ?`, configEntryID, entityID)
	if err != nil {
		return fmt.Errorf("updating entity registry row: %w", err)
	}
	return requireOneRow(result, ErrEntityNotFound)
}

func requireOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
