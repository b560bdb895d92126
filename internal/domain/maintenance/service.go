package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agencydesk/agencydesk/internal/domain/tenants"
	"github.com/agencydesk/agencydesk/internal/infra/metrics"
)

// Store — хранилище циклов и записей. Реализуется *Repo,
// в тестах подменяется in-memory фейком.
type Store interface {
	GetCycle(ctx context.Context, tenantID int64, month string) (*Cycle, error)
	CreateCycle(ctx context.Context, c *Cycle) (*Cycle, error)
	UpdateCycleFields(ctx context.Context, cycleID int64, p CyclePatch) (*Cycle, error)
	CreateEntryAndAccrue(ctx context.Context, e *TimeEntry) (*TimeEntry, error)
	ListEntriesByTenant(ctx context.Context, tenantID int64) ([]EntryWithContext, error)
	ListEntriesByCycle(ctx context.Context, tenantID, cycleID int64) ([]EntryWithContext, error)
	ListFeatures(ctx context.Context) ([]Feature, error)
	CreateFeature(ctx context.Context, name, description string) (*Feature, error)
	CountFeatures(ctx context.Context, ids []int64) (int, error)
	ReplaceTenantFeatures(ctx context.Context, tenantID int64, ids []int64) error
	ListTenantFeatures(ctx context.Context, tenantID int64) ([]Feature, error)
}

// Directory — справочник тенантов, читается только при создании цикла.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*tenants.Tenant, error)
}

// EntryInput — параметры новой записи времени.
type EntryInput struct {
	Date           time.Time
	DurationHours  float64
	TaskID         *int64
	IncludedInPlan bool
	Notes          string
}

// EntryPolicy проверяет запись перед проведением. По умолчанию проверок
// нет: отрицательные и нулевые часы принимаются как есть, лимит плана не
// сверяется. Вся будущая валидация должна жить здесь, не в учёте.
type EntryPolicy func(EntryInput) error

type Service struct {
	store  Store
	dir    Directory
	log    *slog.Logger
	m      *metrics.Metrics
	now    func() time.Time
	policy EntryPolicy
}

type Option func(*Service)

// WithClock подменяет источник времени (тесты фиксируют месяц).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithEntryPolicy(p EntryPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.m = m }
}

func NewService(store Store, dir Directory, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		dir:   dir,
		log:   log,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetOrCreateCurrentCycle возвращает цикл текущего месяца, создавая его
// при первом обращении. Повторный вызов в том же месяце идемпотентен.
//
// При создании базовые часы и перенос снимаются один раз:
// последующие правки плана тенанта или прошлого цикла на уже созданный
// цикл не влияют.
func (s *Service) GetOrCreateCurrentCycle(ctx context.Context, tenantID int64) (*Cycle, error) {
	month := MonthKey(s.now())

	cycle, err := s.store.GetCycle(ctx, tenantID, month)
	if err != nil {
		return nil, err
	}
	if cycle != nil {
		return cycle, nil
	}

	tenant, err := s.dir.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	carried := 0.0
	if tenant.MaintenanceCarryoverMode == tenants.CarryoverCarry {
		carried, err = s.carryoverFor(ctx, tenantID, month)
		if err != nil {
			return nil, err
		}
	}

	created, err := s.store.CreateCycle(ctx, &Cycle{
		TenantID:     tenantID,
		Month:        month,
		BaseHours:    tenant.MaintenanceHoursPerMonth,
		CarriedHours: carried,
		UsedHours:    0,
		Status:       StatusOpen,
	})
	if errors.Is(err, ErrCycleConflict) {
		// Гонка создания: конкурент успел первым, его цикл и есть истина.
		s.countConflict()
		s.log.Debug("cycle create lost race, re-reading", "tenant_id", tenantID, "month", month)
		cycle, rerr := s.store.GetCycle(ctx, tenantID, month)
		if rerr != nil {
			return nil, rerr
		}
		if cycle == nil {
			return nil, fmt.Errorf("maintenance: cycle vanished after conflict for tenant %d month %s", tenantID, month)
		}
		return cycle, nil
	}
	if err != nil {
		return nil, err
	}

	if s.m != nil {
		s.m.CyclesCreated.Inc()
		s.m.CarryoverHours.Add(carried)
	}
	s.log.Info("maintenance cycle created",
		"tenant_id", tenantID,
		"month", month,
		"base_hours", created.BaseHours,
		"carried_hours", created.CarriedHours,
	)
	return created, nil
}

// carryoverFor — остаток прошлого месяца, не ниже нуля. Нет прошлого
// цикла (первый месяц тенанта или пропуск) — переносить нечего.
func (s *Service) carryoverFor(ctx context.Context, tenantID int64, month string) (float64, error) {
	prevMonth, err := PreviousMonthKey(month)
	if err != nil {
		return 0, err
	}
	prev, err := s.store.GetCycle(ctx, tenantID, prevMonth)
	if err != nil {
		return 0, err
	}
	if prev == nil {
		return 0, nil
	}
	if remaining := prev.Remaining(); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// UpdateCycle — админская правка текущего цикла. Цикла ещё нет —
// он создаётся со значениями по умолчанию и тут же перезаписывается.
// Границы значений не проверяются.
func (s *Service) UpdateCycle(ctx context.Context, tenantID int64, patch CyclePatch) (*Cycle, error) {
	cycle, err := s.GetOrCreateCurrentCycle(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateCycleFields(ctx, cycle.ID, patch)
}

// RecordTimeEntry проводит запись по текущему циклу: вставка записи и
// инкремент used_hours выполняются в store как одна транзакция.
func (s *Service) RecordTimeEntry(ctx context.Context, tenantID int64, in EntryInput) (*TimeEntry, error) {
	if s.policy != nil {
		if err := s.policy(in); err != nil {
			return nil, err
		}
	}

	cycle, err := s.GetOrCreateCurrentCycle(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.CreateEntryAndAccrue(ctx, &TimeEntry{
		TenantID:       tenantID,
		CycleID:        cycle.ID,
		TaskID:         in.TaskID,
		Date:           in.Date,
		DurationHours:  in.DurationHours,
		IncludedInPlan: in.IncludedInPlan,
		Notes:          in.Notes,
	})
	if err != nil {
		return nil, err
	}

	if s.m != nil {
		s.m.EntriesRecorded.Inc()
	}
	s.log.Info("time entry recorded",
		"tenant_id", tenantID,
		"cycle_id", cycle.ID,
		"duration_hours", in.DurationHours,
	)
	return entry, nil
}

func (s *Service) ListEntries(ctx context.Context, tenantID int64) ([]EntryWithContext, error) {
	return s.store.ListEntriesByTenant(ctx, tenantID)
}

func (s *Service) ListEntriesForCycle(ctx context.Context, tenantID, cycleID int64) ([]EntryWithContext, error) {
	return s.store.ListEntriesByCycle(ctx, tenantID, cycleID)
}

// CurrentSummary — сводка текущего цикла. Remaining не клэмпится.
func (s *Service) CurrentSummary(ctx context.Context, tenantID int64) (*Summary, error) {
	cycle, err := s.GetOrCreateCurrentCycle(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Month:          cycle.Month,
		BaseHours:      cycle.BaseHours,
		CarriedHours:   cycle.CarriedHours,
		UsedHours:      cycle.UsedHours,
		TotalAvailable: cycle.TotalAvailable(),
		Remaining:      cycle.Remaining(),
	}, nil
}

func (s *Service) ListFeatures(ctx context.Context) ([]Feature, error) {
	return s.store.ListFeatures(ctx)
}

func (s *Service) CreateFeature(ctx context.Context, name, description string) (*Feature, error) {
	return s.store.CreateFeature(ctx, name, description)
}

// AssignFeatures заменяет набор фич тенанта. Единственный валидируемый
// вход модуля: все id должны существовать до какой-либо записи.
func (s *Service) AssignFeatures(ctx context.Context, tenantID int64, featureIDs []int64) error {
	if _, err := s.dir.GetByID(ctx, tenantID); err != nil {
		return err
	}
	// Дубли в запросе схлопываем: в хранилище пары (tenant, feature)
	// уникальны, повторная вставка уронила бы транзакцию.
	ids := uniqueIDs(featureIDs)
	if len(ids) > 0 {
		n, err := s.store.CountFeatures(ctx, ids)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return ErrUnknownFeature
		}
	}
	return s.store.ReplaceTenantFeatures(ctx, tenantID, ids)
}

func (s *Service) ListTenantFeatures(ctx context.Context, tenantID int64) ([]Feature, error) {
	return s.store.ListTenantFeatures(ctx, tenantID)
}

func (s *Service) countConflict() {
	if s.m != nil {
		s.m.CycleConflicts.Inc()
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
