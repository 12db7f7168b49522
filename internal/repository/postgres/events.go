package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RMahshie/smbv/internal/repository"
	"github.com/RMahshie/smbv/pkg/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS output_events (
		id          UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		model       TEXT NOT NULL,
		frequency   DOUBLE PRECISION,
		sweep_start DOUBLE PRECISION,
		sweep_stop  DOUBLE PRECISION,
		points      INTEGER,
		power       DOUBLE PRECISION,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS output_events_created_at_idx ON output_events (created_at DESC);`

// PostgresEventRepository implements EventRepository for PostgreSQL
type PostgresEventRepository struct {
	db *sql.DB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository
func NewPostgresEventRepository(db *sql.DB) repository.EventRepository {
	return &PostgresEventRepository{db: db}
}

// EnsureSchema creates the journal table if it does not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create output_events table: %w", err)
	}
	return nil
}

// Record inserts a new output event
func (r *PostgresEventRepository) Record(ctx context.Context, event *models.OutputEvent) error {
	query := `
		INSERT INTO output_events (id, kind, model, frequency, sweep_start, sweep_stop, points, power, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Kind,
		event.Model,
		event.Frequency,
		event.Start,
		event.Stop,
		event.Points,
		event.Power,
		event.CreatedAt)

	return err
}

// ListRecent retrieves the newest events first
func (r *PostgresEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.OutputEvent, error) {
	query := `
		SELECT id, kind, model, frequency, sweep_start, sweep_stop, points, power, created_at
		FROM output_events
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.OutputEvent, 0)
	for rows.Next() {
		var event models.OutputEvent
		var frequency, start, stop, power sql.NullFloat64
		var points sql.NullInt64

		err := rows.Scan(
			&event.ID,
			&event.Kind,
			&event.Model,
			&frequency,
			&start,
			&stop,
			&points,
			&power,
			&event.CreatedAt)

		if err != nil {
			return nil, err
		}

		if frequency.Valid {
			event.Frequency = &frequency.Float64
		}
		if start.Valid {
			event.Start = &start.Float64
		}
		if stop.Valid {
			event.Stop = &stop.Float64
		}
		if points.Valid {
			n := int(points.Int64)
			event.Points = &n
		}
		if power.Valid {
			event.Power = &power.Float64
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
