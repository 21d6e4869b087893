// Package audit records who changed what through the API: accounts added,
// reloaded or removed, admin logins and service calls.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions.
const (
	ActionLogin       = "login"
	ActionEntryCreate = "entry_create"
	ActionEntryReload = "entry_reload"
	ActionEntryDelete = "entry_delete"
	ActionServiceCall = "service_call"
)

// Target types.
const (
	TargetSession = "session"
	TargetEntry   = "config_entry"
	TargetEntity  = "entity"
)

// Outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Record is one audit trail row.
type Record struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Outcome    string         `json:"outcome"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	Action     string
	TargetType string
	TargetID   string
	Limit      int // default 50, max 200
	Offset     int
}

// Page is one page of records, newest first.
type Page struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// timeFormat has fixed-width fractions so created_at sorts as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Page size bounds.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Repository stores audit records.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	List(ctx context.Context, f Filter) (*Page, error)
}

// SQLiteRepository stores audit records in the audit_logs table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates an audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Create inserts r, filling ID, Outcome and CreatedAt when empty.
func (s *SQLiteRepository) Create(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Outcome == "" {
		r.Outcome = OutcomeOK
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	var details sql.NullString
	if len(r.Details) > 0 {
		b, err := json.Marshal(r.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		details = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, target_type, target_id, actor, outcome, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Action, r.TargetType,
		nullable(r.TargetID), nullable(r.Actor),
		r.Outcome, details,
		r.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// List returns the records matching f, newest first.
func (s *SQLiteRepository) List(ctx context.Context, f Filter) (*Page, error) {
	f.Limit = min(max(f.Limit, 0), maxLimit)
	if f.Limit == 0 {
		f.Limit = defaultLimit
	}
	f.Offset = max(f.Offset, 0)

	var conds []string
	var args []any
	for col, v := range map[string]string{
		"action":      f.Action,
		"target_type": f.TargetType,
		"target_id":   f.TargetID,
	} {
		if v != "" {
			conds = append(conds, col+" = ?")
			args = append(args, v)
		}
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	//nolint:gosec // where holds fixed column names and placeholders only
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit records: %w", err)
	}

	//nolint:gosec // where holds fixed column names and placeholders only
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, target_type, target_id, actor, outcome, details, created_at
		 FROM audit_logs`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	page := &Page{Records: []Record{}, Total: total, Limit: f.Limit, Offset: f.Offset}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		page.Records = append(page.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit records: %w", err)
	}
	return page, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		r                        Record
		targetID, actor, details sql.NullString
		createdAt                string
	)
	if err := rows.Scan(&r.ID, &r.Action, &r.TargetType, &targetID, &actor,
		&r.Outcome, &details, &createdAt); err != nil {
		return Record{}, fmt.Errorf("scanning audit record: %w", err)
	}
	r.TargetID = targetID.String
	r.Actor = actor.String
	if details.Valid {
		if err := json.Unmarshal([]byte(details.String), &r.Details); err != nil {
			return Record{}, fmt.Errorf("decoding audit details of %s: %w", r.ID, err)
		}
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing audit timestamp %q: %w", createdAt, err)
	}
	r.CreatedAt = t
	return r, nil
}
