package maintenance_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/agencydesk/agencydesk/internal/domain/maintenance"
	"github.com/agencydesk/agencydesk/internal/domain/mocks"
	"github.com/agencydesk/agencydesk/internal/domain/tenants"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedClock(year int, month time.Month) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, 15, 10, 0, 0, 0, time.UTC)
	}
}

func carryTenant(id int64, hours float64) *tenants.Tenant {
	return &tenants.Tenant{
		ID:                       id,
		Name:                     "Acme Web",
		Slug:                     "acme",
		MaintenanceHoursPerMonth: hours,
		MaintenanceCarryoverMode: tenants.CarryoverCarry,
	}
}

func TestGetOrCreateCurrentCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("first month, no previous cycle", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Month != "2025-03" {
			t.Errorf("month = %q, want 2025-03", c.Month)
		}
		if c.BaseHours != 10 || c.CarriedHours != 0 || c.UsedHours != 0 {
			t.Errorf("got base=%v carried=%v used=%v, want 10/0/0", c.BaseHours, c.CarriedHours, c.UsedHours)
		}
		if c.Status != maintenance.StatusOpen {
			t.Errorf("status = %q, want open", c.Status)
		}
	})

	t.Run("idempotent within the month", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		first, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("cycle IDs differ: %d vs %d", first.ID, second.ID)
		}
		if *first != *second {
			t.Errorf("cycle values differ: %+v vs %+v", first, second)
		}
		if store.CreateCycleCalls != 1 {
			t.Errorf("CreateCycle called %d times, want 1", store.CreateCycleCalls)
		}
	})

	t.Run("carryover of unused hours", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedCycle(t, store, 1, "2025-02", 10, 0, 4)
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.CarriedHours != 6 {
			t.Errorf("carried = %v, want 6", c.CarriedHours)
		}
		if c.TotalAvailable() != 16 {
			t.Errorf("total available = %v, want 16", c.TotalAvailable())
		}
	})

	t.Run("carryover chains through carried hours", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedCycle(t, store, 1, "2025-02", 10, 5, 8)
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.CarriedHours != 7 {
			t.Errorf("carried = %v, want 10+5-8=7", c.CarriedHours)
		}
	})

	t.Run("fully used previous month carries nothing", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedCycle(t, store, 1, "2025-02", 10, 2, 12)
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.CarriedHours != 0 {
			t.Errorf("carried = %v, want 0", c.CarriedHours)
		}
	})

	t.Run("overused previous month never carries negative", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedCycle(t, store, 1, "2025-02", 10, 0, 15)
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.CarriedHours != 0 {
			t.Errorf("carried = %v, want 0", c.CarriedHours)
		}
	})

	t.Run("carryover crosses the year boundary", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedCycle(t, store, 1, "2024-12", 10, 0, 3)
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.January)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Month != "2025-01" {
			t.Errorf("month = %q, want 2025-01", c.Month)
		}
		if c.CarriedHours != 7 {
			t.Errorf("carried = %v, want 7", c.CarriedHours)
		}
	})

	t.Run("carryover disabled for mode none", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedCycle(t, store, 1, "2025-02", 10, 0, 0)
		tenant := carryTenant(1, 10)
		tenant.MaintenanceCarryoverMode = tenants.CarryoverNone
		svc := maintenance.NewService(store, mocks.NewMockDirectory(tenant), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.CarriedHours != 0 {
			t.Errorf("carried = %v, want 0 for mode none", c.CarriedHours)
		}
	})

	t.Run("gap month does not backfill", func(t *testing.T) {
		store := mocks.NewMockStore()
		// январь есть, февраля нет; в марте переносить нечего
		seedCycle(t, store, 1, "2025-01", 10, 0, 0)
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.CarriedHours != 0 {
			t.Errorf("carried = %v, want 0 when previous month is missing", c.CarriedHours)
		}
	})

	t.Run("base hours snapshot ignores later plan changes", func(t *testing.T) {
		store := mocks.NewMockStore()
		dir := mocks.NewMockDirectory(carryTenant(1, 10))
		svc := maintenance.NewService(store, dir, testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		first, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		dir.Tenants[1].MaintenanceHoursPerMonth = 40

		again, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.BaseHours != first.BaseHours {
			t.Errorf("base hours changed retroactively: %v -> %v", first.BaseHours, again.BaseHours)
		}
	})

	t.Run("lost create race resolves to the winner", func(t *testing.T) {
		store := mocks.NewMockStore()
		store.ConflictsOnCreate = 1
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("conflict must resolve via re-read, got: %v", err)
		}
		if c == nil || c.Month != "2025-03" {
			t.Fatalf("expected winner cycle for 2025-03, got %+v", c)
		}
	})

	t.Run("unknown tenant", func(t *testing.T) {
		svc := maintenance.NewService(mocks.NewMockStore(), mocks.NewMockDirectory(), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		if _, err := svc.GetOrCreateCurrentCycle(ctx, 99); !errors.Is(err, tenants.ErrNotFound) {
			t.Errorf("err = %v, want tenants.ErrNotFound", err)
		}
	})
}

func TestRecordTimeEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("accrues exactly the entry duration", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		if _, err := svc.UpdateCycle(ctx, 1, maintenance.CyclePatch{UsedHours: ptr(2.0)}); err != nil {
			t.Fatalf("seed used hours: %v", err)
		}

		entry, err := svc.RecordTimeEntry(ctx, 1, maintenance.EntryInput{
			Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			DurationHours: 1.5,
			Notes:         "plugin updates",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cycle, err := svc.GetOrCreateCurrentCycle(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cycle.UsedHours != 3.5 {
			t.Errorf("used = %v, want 3.5", cycle.UsedHours)
		}
		if entry.CycleID != cycle.ID {
			t.Errorf("entry charged to cycle %d, want %d", entry.CycleID, cycle.ID)
		}
	})

	t.Run("used hours grow monotonically", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		prev := 0.0
		for _, d := range []float64{0.5, 1, 2.25} {
			if _, err := svc.RecordTimeEntry(ctx, 1, maintenance.EntryInput{
				Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
				DurationHours: d,
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			c, err := svc.GetOrCreateCurrentCycle(ctx, 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.UsedHours < prev {
				t.Errorf("used hours decreased: %v -> %v", prev, c.UsedHours)
			}
			if want := prev + d; c.UsedHours != want {
				t.Errorf("used = %v, want %v", c.UsedHours, want)
			}
			prev = c.UsedHours
		}
	})

	t.Run("negative duration passes without a policy", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		if _, err := svc.RecordTimeEntry(ctx, 1, maintenance.EntryInput{
			Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			DurationHours: -1,
		}); err != nil {
			t.Errorf("engine must stay permissive, got: %v", err)
		}
	})

	t.Run("entry policy can reject", func(t *testing.T) {
		store := mocks.NewMockStore()
		rejected := errors.New("duration must be positive")
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)),
			maintenance.WithEntryPolicy(func(in maintenance.EntryInput) error {
				if in.DurationHours <= 0 {
					return rejected
				}
				return nil
			}))

		if _, err := svc.RecordTimeEntry(ctx, 1, maintenance.EntryInput{DurationHours: -1}); !errors.Is(err, rejected) {
			t.Errorf("err = %v, want policy rejection", err)
		}
		if len(store.Entries) != 0 {
			t.Errorf("rejected entry must not be written, got %d entries", len(store.Entries))
		}
	})

	t.Run("entries are listed with the cycle month", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		entry, err := svc.RecordTimeEntry(ctx, 1, maintenance.EntryInput{
			Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			DurationHours: 2,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		all, err := svc.ListEntries(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 1 || all[0].ID != entry.ID || all[0].Month != "2025-03" {
			t.Errorf("unexpected listing: %+v", all)
		}

		byCycle, err := svc.ListEntriesForCycle(ctx, 1, entry.CycleID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(byCycle) != 1 {
			t.Errorf("expected 1 entry for cycle, got %d", len(byCycle))
		}
	})
}

func TestUpdateCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("partial patch keeps other fields", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedCycle(t, store, 1, "2025-02", 10, 0, 4)
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		// создаётся цикл марта с carried=6
		c, err := svc.UpdateCycle(ctx, 1, maintenance.CyclePatch{BaseHours: ptr(20.0)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.BaseHours != 20 {
			t.Errorf("base = %v, want 20", c.BaseHours)
		}
		if c.CarriedHours != 6 {
			t.Errorf("carried = %v, must stay 6", c.CarriedHours)
		}
		if c.UsedHours != 0 {
			t.Errorf("used = %v, must stay 0", c.UsedHours)
		}
	})

	t.Run("creates the cycle when absent", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.UpdateCycle(ctx, 1, maintenance.CyclePatch{UsedHours: ptr(3.0)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Month != "2025-03" || c.UsedHours != 3 {
			t.Errorf("got %+v, want fresh 2025-03 cycle with used=3", c)
		}
	})

	t.Run("no validation on override", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
			maintenance.WithClock(fixedClock(2025, time.March)))

		c, err := svc.UpdateCycle(ctx, 1, maintenance.CyclePatch{UsedHours: ptr(999.0), BaseHours: ptr(-5.0)})
		if err != nil {
			t.Fatalf("override must always succeed: %v", err)
		}
		if c.UsedHours != 999 || c.BaseHours != -5 {
			t.Errorf("override not applied: %+v", c)
		}
	})
}

func TestCurrentSummary(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockStore()
	seedCycle(t, store, 1, "2025-02", 10, 0, 4)
	svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog,
		maintenance.WithClock(fixedClock(2025, time.March)))

	if _, err := svc.RecordTimeEntry(ctx, 1, maintenance.EntryInput{
		Date:          time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		DurationHours: 20,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := svc.CurrentSummary(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Month != "2025-03" || s.BaseHours != 10 || s.CarriedHours != 6 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.TotalAvailable != 16 {
		t.Errorf("totalAvailable = %v, want 16", s.TotalAvailable)
	}
	// перерасход: remaining отрицательный, не клэмпится
	if s.Remaining != -4 {
		t.Errorf("remaining = %v, want -4", s.Remaining)
	}
}

func TestAssignFeatures(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown ids before any write", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog)
		f, err := svc.CreateFeature(ctx, "uptime-monitoring", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		err = svc.AssignFeatures(ctx, 1, []int64{f.ID, 777})
		if !errors.Is(err, maintenance.ErrUnknownFeature) {
			t.Fatalf("err = %v, want ErrUnknownFeature", err)
		}
		if len(store.Assigned[1]) != 0 {
			t.Errorf("assignments written despite validation failure: %v", store.Assigned[1])
		}
	})

	t.Run("replaces the assignment set", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog)
		a, _ := svc.CreateFeature(ctx, "backups", "")
		b, _ := svc.CreateFeature(ctx, "seo-report", "")

		if err := svc.AssignFeatures(ctx, 1, []int64{a.ID}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := svc.AssignFeatures(ctx, 1, []int64{b.ID}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		fs, err := svc.ListTenantFeatures(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fs) != 1 || fs[0].ID != b.ID {
			t.Errorf("expected only %q assigned, got %+v", b.Name, fs)
		}
	})

	t.Run("duplicate ids collapse to one assignment", func(t *testing.T) {
		store := mocks.NewMockStore()
		svc := maintenance.NewService(store, mocks.NewMockDirectory(carryTenant(1, 10)), testLog)
		f, err := svc.CreateFeature(ctx, "backups", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := svc.AssignFeatures(ctx, 1, []int64{f.ID, f.ID}); err != nil {
			t.Fatalf("duplicate ids in the request must not fail: %v", err)
		}
		fs, err := svc.ListTenantFeatures(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fs) != 1 || fs[0].ID != f.ID {
			t.Errorf("expected a single assignment, got %+v", fs)
		}
	})

	t.Run("unknown tenant", func(t *testing.T) {
		svc := maintenance.NewService(mocks.NewMockStore(), mocks.NewMockDirectory(), testLog)
		if err := svc.AssignFeatures(ctx, 42, nil); !errors.Is(err, tenants.ErrNotFound) {
			t.Errorf("err = %v, want tenants.ErrNotFound", err)
		}
	})
}

func seedCycle(t *testing.T, store *mocks.MockStore, tenantID int64, month string, base, carried, used float64) {
	t.Helper()
	if _, err := store.CreateCycle(context.Background(), &maintenance.Cycle{
		TenantID:     tenantID,
		Month:        month,
		BaseHours:    base,
		CarriedHours: carried,
		UsedHours:    used,
		Status:       maintenance.StatusOpen,
	}); err != nil {
		t.Fatalf("seed cycle %s: %v", month, err)
	}
}

func ptr(f float64) *float64 { return &f }
