package pg

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskcal/taskcal/internal/domain/repository"
)

type todoRepo struct{ pool *pgxpool.Pool }

const todoColumns = `
	id, title, description, urgency, status, due_at, assignee_id, created_by,
	created_at, updated_at
`

func (r *todoRepo) List(ctx context.Context, f repository.TodoFilter) ([]repository.Todo, error) {
	const query = `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR assignee_id = $2)
		ORDER BY
			CASE status WHEN 'todo' THEN 0 WHEN 'in_progress' THEN 1 ELSE 2 END,
			urgency DESC,
			due_at NULLS LAST
	`
	rows, err := r.pool.Query(ctx, query, f.Status, f.AssigneeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []repository.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *todoRepo) Get(ctx context.Context, id string) (*repository.Todo, error) {
	const query = `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`
	return scanTodo(r.pool.QueryRow(ctx, query, id))
}

func (r *todoRepo) Create(ctx context.Context, t *repository.Todo) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO todos (id, title, description, urgency, status, due_at,
			assignee_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.Urgency, t.Status, t.DueAt,
		t.AssigneeID, t.CreatedBy,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapError(err)
}

func (r *todoRepo) Update(ctx context.Context, t *repository.Todo) error {
	const query = `
		UPDATE todos
		SET title = $2, description = $3, urgency = $4, status = $5,
		    due_at = $6, assignee_id = NULLIF($7, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.Urgency, t.Status, t.DueAt, t.AssigneeID,
	).Scan(&t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return repository.ErrNotFound
	}
	return mapError(err)
}

func (r *todoRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM todos WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanTodo(row pgx.Row) (*repository.Todo, error) {
	var (
		t        repository.Todo
		assignee *string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Urgency, &t.Status, &t.DueAt,
		&assignee, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if assignee != nil {
		t.AssigneeID = *assignee
	}
	return &t, nil
}
