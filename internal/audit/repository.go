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

// Entity types.
const (
	EntityRule      = "rule"
	EntityDashboard = "dashboard"
)

// timeFormat has fixed-width fractions so created_at sorts as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is one recorded edit.
type Entry struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id,omitempty"`
	Controllers []string       `json:"controllers"`
	Failed      bool           `json:"failed"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Filter controls which entries List returns. Zero fields match everything.
type Filter struct {
	Action       string
	EntityType   string
	EntityID     string
	ControllerID string // entries touching this controller
	Limit        int    // default 50, max 200
	Offset       int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for audit storage.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) (*ListResult, error)
}

// SQLiteRepository stores entries in the audit_logs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry, filling ID and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.Action == "" || e.EntityType == "" {
		return fmt.Errorf("%w: action and entity type are required", ErrInvalidEntry)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Controllers == nil {
		e.Controllers = []string{}
	}

	controllers, err := json.Marshal(e.Controllers)
	if err != nil {
		return fmt.Errorf("encoding audit controllers: %w", err)
	}
	var details *string
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encoding audit details: %w", err)
		}
		s := string(b)
		details = &s
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, controllers, failed, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.EntityType, nullable(e.EntityID), string(controllers),
		boolToInt(e.Failed), details, e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// List returns entries matching f, newest first.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) (*ListResult, error) {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where, args := f.where()

	var total int
	//nolint:gosec // WHERE holds placeholders only
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	//nolint:gosec // WHERE holds placeholders only
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, entity_type, entity_id, controllers, failed, details, created_at
		FROM audit_logs`+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return &ListResult{Entries: entries, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v string) {
		if v != "" {
			conds = append(conds, cond)
			args = append(args, v)
		}
	}
	add("action = ?", f.Action)
	add("entity_type = ?", f.EntityType)
	add("entity_id = ?", f.EntityID)
	add("EXISTS (SELECT 1 FROM json_each(audit_logs.controllers) WHERE json_each.value = ?)", f.ControllerID)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                    Entry
		entityID, details    sql.NullString
		controllers, created string
		failed               int
	)
	if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &entityID, &controllers, &failed, &details, &created); err != nil {
		return Entry{}, fmt.Errorf("scanning audit entry: %w", err)
	}
	e.EntityID = entityID.String
	e.Failed = failed != 0
	if err := json.Unmarshal([]byte(controllers), &e.Controllers); err != nil {
		return Entry{}, fmt.Errorf("decoding audit controllers for %s: %w", e.ID, err)
	}
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
			return Entry{}, fmt.Errorf("decoding audit details for %s: %w", e.ID, err)
		}
	}
	t, err := time.Parse(timeFormat, created)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing audit timestamp %q: %w", created, err)
	}
	e.CreatedAt = t
	return e, nil
}

// nullable maps "" to NULL for optional TEXT columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
