package layout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for dashboard persistence.
type Repository interface {
	Get(ctx context.Context, controllerID string) (*Dashboard, error)
	Save(ctx context.Context, d *Dashboard) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed dashboard repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves the dashboard stored for a controller.
func (r *SQLiteRepository) Get(ctx context.Context, controllerID string) (*Dashboard, error) {
	var (
		d                    Dashboard
		widgets              string
		generated            int
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT controller_id, columns, widgets, generated, created_at, updated_at
		FROM dashboards WHERE controller_id = ?`, controllerID,
	).Scan(&d.ControllerID, &d.Columns, &widgets, &generated, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDashboardNotFound
		}
		return nil, fmt.Errorf("querying dashboard: %w", err)
	}

	if err := json.Unmarshal([]byte(widgets), &d.Widgets); err != nil {
		return nil, fmt.Errorf("decoding widgets for %s: %w", controllerID, err)
	}
	d.Generated = generated != 0
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &d, nil
}

// Save inserts or replaces a dashboard. CreatedAt is kept on update.
func (r *SQLiteRepository) Save(ctx context.Context, d *Dashboard) error {
	if d.ControllerID == "" {
		return fmt.Errorf("%w: controller id is required", ErrInvalidWidget)
	}
	if d.Columns < 1 {
		return ErrInvalidColumns
	}
	widgets := d.Widgets
	if widgets == nil {
		widgets = []Widget{}
	}
	payload, err := json.Marshal(widgets)
	if err != nil {
		return fmt.Errorf("encoding widgets: %w", err)
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dashboards (controller_id, columns, widgets, generated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(controller_id) DO UPDATE SET
			columns = excluded.columns,
			widgets = excluded.widgets,
			generated = excluded.generated,
			updated_at = excluded.updated_at`,
		d.ControllerID, d.Columns, string(payload), boolToInt(d.Generated),
		d.CreatedAt.Format(time.RFC3339), d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving dashboard: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
