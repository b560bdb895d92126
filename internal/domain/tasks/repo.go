package tasks

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, tenantID int64, title string) (*Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (tenant_id, title)
		VALUES ($1,$2)
		RETURNING id, tenant_id, title, created_at
	`, tenantID, title)
	var t Task
	if err := row.Scan(&t.ID, &t.TenantID, &t.Title, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) ListByTenant(ctx context.Context, tenantID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, title, created_at
		FROM tasks
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Title, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
