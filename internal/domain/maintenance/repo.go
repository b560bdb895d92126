package maintenance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCycleConflict — проигрыш гонки создания цикла за месяц.
// Транзиентная ошибка: вызывающий перечитывает цикл.
var ErrCycleConflict = errors.New("maintenance: cycle already exists for month")

var ErrUnknownFeature = errors.New("maintenance: unknown feature id")

const uniqueViolation = "23505"

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const cycleCols = `id, tenant_id, month, base_hours, carried_hours, used_hours, status, created_at, updated_at`

func scanCycle(row pgx.Row) (*Cycle, error) {
	var c Cycle
	if err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Month,
		&c.BaseHours,
		&c.CarriedHours,
		&c.UsedHours,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCycle возвращает (nil, nil), если цикла за месяц нет.
func (r *Repo) GetCycle(ctx context.Context, tenantID int64, month string) (*Cycle, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+cycleCols+`
		FROM maintenance_cycles
		WHERE tenant_id = $1 AND month = $2
	`, tenantID, month)
	c, err := scanCycle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// CreateCycle полагается на UNIQUE (tenant_id, month): дубль превращается
// в ErrCycleConflict, а не в молчаливую перезапись.
func (r *Repo) CreateCycle(ctx context.Context, c *Cycle) (*Cycle, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO maintenance_cycles (tenant_id, month, base_hours, carried_hours, used_hours, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+cycleCols,
		c.TenantID, c.Month, c.BaseHours, c.CarriedHours, c.UsedHours, string(c.Status))
	created, err := scanCycle(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrCycleConflict
		}
		return nil, err
	}
	return created, nil
}

// CyclePatch — частичная правка: nil-поле остаётся нетронутым.
type CyclePatch struct {
	BaseHours    *float64
	CarriedHours *float64
	UsedHours    *float64
}

func (r *Repo) UpdateCycleFields(ctx context.Context, cycleID int64, p CyclePatch) (*Cycle, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE maintenance_cycles SET
			base_hours    = COALESCE($2, base_hours),
			carried_hours = COALESCE($3, carried_hours),
			used_hours    = COALESCE($4, used_hours),
			updated_at    = NOW()
		WHERE id = $1
		RETURNING `+cycleCols,
		cycleID, p.BaseHours, p.CarriedHours, p.UsedHours)
	return scanCycle(row)
}

// CreateEntryAndAccrue пишет запись и увеличивает used_hours цикла одним
// атомарным дельта-апдейтом в одной транзакции: либо видно обе записи,
// либо ни одной.
func (r *Repo) CreateEntryAndAccrue(ctx context.Context, e *TimeEntry) (*TimeEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO maintenance_time_entries (tenant_id, cycle_id, task_id, entry_date, duration_hours, included_in_plan, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, e.TenantID, e.CycleID, e.TaskID, e.Date, e.DurationHours, e.IncludedInPlan, e.Notes)
	out := *e
	if err := row.Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE maintenance_cycles
		SET used_hours = used_hours + $2, updated_at = NOW()
		WHERE id = $1
	`, e.CycleID, e.DurationHours); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

const entryCols = `e.id, e.tenant_id, e.cycle_id, e.task_id, e.entry_date, e.duration_hours, e.included_in_plan, e.notes, e.created_at, c.month, COALESCE(t.title, '')`

func (r *Repo) listEntries(ctx context.Context, where string, args ...any) ([]EntryWithContext, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryCols+`
		FROM maintenance_time_entries e
		JOIN maintenance_cycles c ON c.id = e.cycle_id
		LEFT JOIN tasks t ON t.id = e.task_id
		WHERE `+where+`
		ORDER BY e.entry_date DESC, e.id DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []EntryWithContext{}
	for rows.Next() {
		var e EntryWithContext
		if err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.CycleID,
			&e.TaskID,
			&e.Date,
			&e.DurationHours,
			&e.IncludedInPlan,
			&e.Notes,
			&e.CreatedAt,
			&e.Month,
			&e.TaskTitle,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) ListEntriesByTenant(ctx context.Context, tenantID int64) ([]EntryWithContext, error) {
	return r.listEntries(ctx, `e.tenant_id = $1`, tenantID)
}

func (r *Repo) ListEntriesByCycle(ctx context.Context, tenantID, cycleID int64) ([]EntryWithContext, error) {
	return r.listEntries(ctx, `e.tenant_id = $1 AND e.cycle_id = $2`, tenantID, cycleID)
}

func (r *Repo) ListFeatures(ctx context.Context) ([]Feature, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM maintenance_features ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feature
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Description); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repo) CreateFeature(ctx context.Context, name, description string) (*Feature, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO maintenance_features (name, description)
		VALUES ($1,$2)
		RETURNING id, name, description
	`, name, description)
	var f Feature
	if err := row.Scan(&f.ID, &f.Name, &f.Description); err != nil {
		return nil, err
	}
	return &f, nil
}

// CountFeatures — сколько из переданных id реально существует.
func (r *Repo) CountFeatures(ctx context.Context, ids []int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM maintenance_features WHERE id = ANY($1)`, ids,
	).Scan(&n)
	return n, err
}

// ReplaceTenantFeatures заменяет набор назначений тенанта целиком.
func (r *Repo) ReplaceTenantFeatures(ctx context.Context, tenantID int64, ids []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM tenant_maintenance_features WHERE tenant_id = $1`, tenantID,
	); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := tx.Exec(ctx, `
			INSERT INTO tenant_maintenance_features (tenant_id, feature_id)
			VALUES ($1,$2)
		`, tenantID, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) ListTenantFeatures(ctx context.Context, tenantID int64) ([]Feature, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.name, f.description
		FROM maintenance_features f
		JOIN tenant_maintenance_features tf ON tf.feature_id = f.id
		WHERE tf.tenant_id = $1
		ORDER BY f.name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feature
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Description); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
