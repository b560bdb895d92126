package tenants

import "time"

type CarryoverMode string

const (
	CarryoverCarry CarryoverMode = "carry"
	CarryoverNone  CarryoverMode = "none"
)

type Tenant struct {
	ID                       int64
	Name                     string
	Slug                     string
	MaintenanceHoursPerMonth float64
	MaintenanceCarryoverMode CarryoverMode
	CreatedAt                time.Time
	UpdatedAt                time.Time
}
