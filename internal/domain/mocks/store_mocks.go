package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agencydesk/agencydesk/internal/domain/maintenance"
	"github.com/agencydesk/agencydesk/internal/domain/tenants"
)

// MockStore — in-memory реализация maintenance.Store для тестов.
type MockStore struct {
	mu sync.Mutex

	nextCycleID int64
	nextEntryID int64

	Cycles   map[string]*maintenance.Cycle // key: "tenantID|month"
	Entries  []maintenance.EntryWithContext
	Features map[int64]maintenance.Feature
	Assigned map[int64][]int64

	// ConflictsOnCreate заставляет столько ближайших CreateCycle
	// вернуть ErrCycleConflict (имитация проигранной гонки).
	ConflictsOnCreate int
	CreateCycleCalls  int
}

func NewMockStore() *MockStore {
	return &MockStore{
		Cycles:   map[string]*maintenance.Cycle{},
		Features: map[int64]maintenance.Feature{},
		Assigned: map[int64][]int64{},
	}
}

func cycleKey(tenantID int64, month string) string {
	return fmt.Sprintf("%d|%s", tenantID, month)
}

func (s *MockStore) GetCycle(_ context.Context, tenantID int64, month string) (*maintenance.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Cycles[cycleKey(tenantID, month)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MockStore) CreateCycle(_ context.Context, c *maintenance.Cycle) (*maintenance.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCycleCalls++
	key := cycleKey(c.TenantID, c.Month)
	if s.ConflictsOnCreate > 0 {
		s.ConflictsOnCreate--
		// Проигранная гонка: победитель уже записал строку.
		if _, exists := s.Cycles[key]; !exists {
			s.nextCycleID++
			winner := *c
			winner.ID = s.nextCycleID
			s.Cycles[key] = &winner
		}
		return nil, maintenance.ErrCycleConflict
	}
	if _, exists := s.Cycles[key]; exists {
		return nil, maintenance.ErrCycleConflict
	}
	s.nextCycleID++
	stored := *c
	stored.ID = s.nextCycleID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.Cycles[key] = &stored
	cp := stored
	return &cp, nil
}

func (s *MockStore) UpdateCycleFields(_ context.Context, cycleID int64, p maintenance.CyclePatch) (*maintenance.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.Cycles {
		if c.ID != cycleID {
			continue
		}
		if p.BaseHours != nil {
			c.BaseHours = *p.BaseHours
		}
		if p.CarriedHours != nil {
			c.CarriedHours = *p.CarriedHours
		}
		if p.UsedHours != nil {
			c.UsedHours = *p.UsedHours
		}
		c.UpdatedAt = time.Now()
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("mocks: cycle %d not found", cycleID)
}

func (s *MockStore) CreateEntryAndAccrue(_ context.Context, e *maintenance.TimeEntry) (*maintenance.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cycle *maintenance.Cycle
	for _, c := range s.Cycles {
		if c.ID == e.CycleID {
			cycle = c
			break
		}
	}
	if cycle == nil {
		return nil, fmt.Errorf("mocks: cycle %d not found", e.CycleID)
	}
	s.nextEntryID++
	stored := *e
	stored.ID = s.nextEntryID
	stored.CreatedAt = time.Now()
	cycle.UsedHours += e.DurationHours
	s.Entries = append(s.Entries, maintenance.EntryWithContext{
		TimeEntry: stored,
		Month:     cycle.Month,
	})
	cp := stored
	return &cp, nil
}

func (s *MockStore) ListEntriesByTenant(_ context.Context, tenantID int64) ([]maintenance.EntryWithContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []maintenance.EntryWithContext{}
	for _, e := range s.Entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MockStore) ListEntriesByCycle(_ context.Context, tenantID, cycleID int64) ([]maintenance.EntryWithContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []maintenance.EntryWithContext{}
	for _, e := range s.Entries {
		if e.TenantID == tenantID && e.CycleID == cycleID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MockStore) ListFeatures(_ context.Context) ([]maintenance.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []maintenance.Feature{}
	for _, f := range s.Features {
		out = append(out, f)
	}
	return out, nil
}

func (s *MockStore) CreateFeature(_ context.Context, name, description string) (*maintenance.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.Features) + 1)
	f := maintenance.Feature{ID: id, Name: name, Description: description}
	s.Features[id] = f
	return &f, nil
}

func (s *MockStore) CountFeatures(_ context.Context, ids []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]struct{}{}
	n := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := s.Features[id]; ok {
			n++
		}
	}
	return n, nil
}

func (s *MockStore) ReplaceTenantFeatures(_ context.Context, tenantID int64, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Как в БД: пара (tenant, feature) уникальна, дубль — ошибка вставки.
	seen := map[int64]struct{}{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("mocks: duplicate assignment (%d, %d)", tenantID, id)
		}
		seen[id] = struct{}{}
	}
	s.Assigned[tenantID] = append([]int64{}, ids...)
	return nil
}

func (s *MockStore) ListTenantFeatures(_ context.Context, tenantID int64) ([]maintenance.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []maintenance.Feature{}
	for _, id := range s.Assigned[tenantID] {
		if f, ok := s.Features[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// MockDirectory — in-memory maintenance.Directory.
type MockDirectory struct {
	Tenants map[int64]*tenants.Tenant
}

func NewMockDirectory(ts ...*tenants.Tenant) *MockDirectory {
	d := &MockDirectory{Tenants: map[int64]*tenants.Tenant{}}
	for _, t := range ts {
		d.Tenants[t.ID] = t
	}
	return d
}

func (d *MockDirectory) GetByID(_ context.Context, id int64) (*tenants.Tenant, error) {
	t, ok := d.Tenants[id]
	if !ok {
		return nil, tenants.ErrNotFound
	}
	cp := *t
	return &cp, nil
}
