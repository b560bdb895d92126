package tenants

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("tenants: not found")

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const tenantCols = `id, name, slug, maintenance_hours_per_month, maintenance_carryover_mode, created_at, updated_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.MaintenanceHoursPerMonth,
		&t.MaintenanceCarryoverMode,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantCols+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantCols+` FROM tenants WHERE slug = $1`, slug)
	return scanTenant(row)
}

func (r *Repo) List(ctx context.Context) ([]Tenant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tenantCols+` FROM tenants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Slug,
			&t.MaintenanceHoursPerMonth,
			&t.MaintenanceCarryoverMode,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, name, slug string, hoursPerMonth float64, mode CarryoverMode) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tenants (name, slug, maintenance_hours_per_month, maintenance_carryover_mode)
		VALUES ($1,$2,$3,$4)
		RETURNING `+tenantCols, name, slug, hoursPerMonth, string(mode))
	return scanTenant(row)
}

// Update перезаписывает только переданные поля (nil — оставить как есть).
type Update struct {
	Name          *string
	HoursPerMonth *float64
	CarryoverMode *CarryoverMode
}

func (r *Repo) Update(ctx context.Context, id int64, u Update) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenants SET
			name = COALESCE($2, name),
			maintenance_hours_per_month = COALESCE($3, maintenance_hours_per_month),
			maintenance_carryover_mode = COALESCE($4, maintenance_carryover_mode),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+tenantCols, id, u.Name, u.HoursPerMonth, carryoverPtr(u.CarryoverMode))
	return scanTenant(row)
}

func carryoverPtr(m *CarryoverMode) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}
