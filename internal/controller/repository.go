package controller

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Directory is the upstream source of truth for controllers, normally the
// controller REST backend. It returns fully populated controllers: module
// tree, rule groups and raw rules.
type Directory interface {
	ListControllers(ctx context.Context) ([]Controller, error)
}

// Repository defines the interface for the local controller snapshot.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Controller, error)
	List(ctx context.Context) ([]Controller, error)
	Save(ctx context.Context, c *Controller) error
	ReplaceAll(ctx context.Context, controllers []Controller) error
}

// SQLiteRepository implements Repository using SQLite.
// Each controller is stored as a single JSON document.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a stored controller by its identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Controller, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM controller_snapshots WHERE id = ?`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrControllerNotFound
		}
		return nil, fmt.Errorf("querying controller snapshot: %w", err)
	}

	var c Controller
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, fmt.Errorf("decoding controller snapshot %s: %w", id, err)
	}
	return &c, nil
}

// List retrieves all stored controllers in their original directory order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Controller, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, payload FROM controller_snapshots ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("querying controller snapshots: %w", err)
	}
	defer rows.Close()

	var controllers []Controller
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scanning controller snapshot: %w", err)
		}
		var c Controller
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("decoding controller snapshot %s: %w", id, err)
		}
		controllers = append(controllers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating controller snapshots: %w", err)
	}
	return controllers, nil
}

// Save inserts or replaces a single controller, keeping its position.
func (r *SQLiteRepository) Save(ctx context.Context, c *Controller) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidController)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding controller %s: %w", c.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO controller_snapshots (id, name, position, payload, fetched_at)
		VALUES (?, ?, COALESCE((SELECT MAX(position) + 1 FROM controller_snapshots), 0), ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at`,
		c.ID, c.Name, string(payload), formatTime(c.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("saving controller snapshot: %w", err)
	}
	return nil
}

// ReplaceAll atomically swaps the stored snapshot for the given controllers.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, controllers []Controller) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM controller_snapshots`); err != nil {
		return fmt.Errorf("clearing controller snapshots: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO controller_snapshots (id, name, position, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i := range controllers {
		c := &controllers[i]
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encoding controller %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, i, string(payload), formatTime(c.FetchedAt)); err != nil {
			return fmt.Errorf("inserting controller snapshot %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing controller snapshots: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
