package api

import (
	"context"

	"github.com/agencydesk/agencydesk/internal/domain/tasks"
	"github.com/agencydesk/agencydesk/internal/domain/tenants"
)

// TenantStore реализуется *tenants.Repo.
type TenantStore interface {
	GetByID(ctx context.Context, id int64) (*tenants.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*tenants.Tenant, error)
	List(ctx context.Context) ([]tenants.Tenant, error)
	Create(ctx context.Context, name, slug string, hoursPerMonth float64, mode tenants.CarryoverMode) (*tenants.Tenant, error)
	Update(ctx context.Context, id int64, u tenants.Update) (*tenants.Tenant, error)
}

// TaskStore реализуется *tasks.Repo.
type TaskStore interface {
	Create(ctx context.Context, tenantID int64, title string) (*tasks.Task, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]tasks.Task, error)
}
