package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskcal/taskcal/internal/domain/repository"
)

type eventRepo struct{ pool *pgxpool.Pool }

const eventColumns = `
	id, user_id, title, description, all_day, start_at, end_at, color,
	location, meta, created_at, updated_at
`

func (r *eventRepo) List(ctx context.Context, userID string, rng repository.EventRange) ([]repository.Event, error) {
	// Range uses overlap semantics: an event is included when it ends after
	// the range start and starts before the range end.
	const query = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR COALESCE(end_at, start_at) >= $2)
		  AND ($3::timestamptz IS NULL OR start_at <= $3)
		ORDER BY start_at ASC
	`
	var start, end *time.Time
	if !rng.Start.IsZero() {
		start = &rng.Start
	}
	if !rng.End.IsZero() {
		end = &rng.End
	}

	rows, err := r.pool.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []repository.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepo) Get(ctx context.Context, id string) (*repository.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

func (r *eventRepo) Create(ctx context.Context, e *repository.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	const query = `
		INSERT INTO events (id, user_id, title, description, all_day, start_at,
			end_at, color, location, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		e.ID, e.UserID, e.Title, e.Description, e.AllDay, e.Start, e.End,
		e.Color, e.Location, metaJSON,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapError(err)
}

func (r *eventRepo) Update(ctx context.Context, e *repository.Event) error {
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	const query = `
		UPDATE events
		SET title = $2, description = $3, all_day = $4, start_at = $5,
		    end_at = $6, color = $7, location = $8, meta = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		e.ID, e.Title, e.Description, e.AllDay, e.Start, e.End, e.Color,
		e.Location, metaJSON,
	).Scan(&e.UpdatedAt)
	if err == pgx.ErrNoRows {
		return repository.ErrNotFound
	}
	return mapError(err)
}

func (r *eventRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM events WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*repository.Event, error) {
	var (
		e        repository.Event
		metaJSON []byte
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.Title, &e.Description, &e.AllDay, &e.Start,
		&e.End, &e.Color, &e.Location, &metaJSON, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &e.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	return &e, nil
}
