package repo

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/creator-payments/internal/domain"
)

func seedSlot(t *testing.T, s *Store, id, date, start string) {
	t.Helper()
	now := time.Now().UTC()
	slot := &domain.AvailabilitySlot{ID: id, CreatorID: "cr1", Date: date, StartTime: start, CreatedAt: now, UpdatedAt: now}
	if err := s.DB.Create(slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
}

func TestClaimSlot_OnlyFirstClaimWins(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()
	seedSlot(t, s, "s1", "2026-10-20", "10:00")

	ok, err := s.ClaimSlot(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = s.ClaimSlot(ctx, "s1")
	if err != nil || ok {
		t.Fatalf("second claim should lose: ok=%v err=%v", ok, err)
	}

	got, err := s.GetSlot(ctx, "s1")
	if err != nil || !got.Purchased {
		t.Fatalf("slot not purchased: %+v err=%v", got, err)
	}
}

func TestClaimSlot_UnknownSlot(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ok, err := s.ClaimSlot(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestReleaseSlot_AllowsReclaim(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()
	seedSlot(t, s, "s1", "2026-10-20", "10:00")

	if ok, _ := s.ClaimSlot(ctx, "s1"); !ok {
		t.Fatalf("claim failed")
	}
	if err := s.ReleaseSlot(ctx, "s1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := s.ClaimSlot(ctx, "s1"); err != nil || !ok {
		t.Fatalf("reclaim after release: ok=%v err=%v", ok, err)
	}
}

func TestClaimSlot_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "slots.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := NewStore(db)
	seedSlot(t, s, "s1", "2026-10-20", "10:00")

	const n = 16
	var (
		wg   sync.WaitGroup
		wins int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClaimSlot(context.Background(), "s1")
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestGetSlotAt(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()
	seedSlot(t, s, "s1", "2026-10-20", "10:00")
	seedSlot(t, s, "s2", "2026-10-20", "10:30")

	got, err := s.GetSlotAt(ctx, "cr1", "2026-10-20", "10:30")
	if err != nil || got.ID != "s2" {
		t.Fatalf("expected s2, got %+v err=%v", got, err)
	}
	if _, err := s.GetSlotAt(ctx, "cr1", "2026-10-20", "11:00"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveStreams_FiltersStatusAndWindow(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 20, 13, 0, 0, 0, time.UTC)

	streams := []domain.LiveStream{
		{ID: "live", CreatorID: "cr1", Title: "a", ScheduledAt: base, DurationMinutes: 60, Status: domain.StreamScheduled},
		{ID: "ended", CreatorID: "cr1", Title: "b", ScheduledAt: base, DurationMinutes: 60, Status: domain.StreamEnded},
		{ID: "later", CreatorID: "cr1", Title: "c", ScheduledAt: base.Add(5 * time.Hour), DurationMinutes: 60, Status: domain.StreamScheduled},
		{ID: "other", CreatorID: "cr2", Title: "d", ScheduledAt: base, DurationMinutes: 60, Status: domain.StreamLive},
	}
	if err := s.DB.Create(&streams).Error; err != nil {
		t.Fatalf("seed streams: %v", err)
	}

	got, err := s.ListActiveStreams(ctx, "cr1", base.Add(30*time.Minute), base.Add(time.Hour), 24*time.Hour)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "live" {
		t.Fatalf("expected only the scheduled overlapping stream, got %+v", got)
	}
}

func TestListConfirmedCalls_ByDate(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()
	calls := []domain.Call{
		{ID: "c1", CreatorID: "cr1", BuyerID: "b1", SlotID: "s1", Date: "2026-10-20", StartTime: "10:00", DurationMinutes: 30, PriceCents: 100, Currency: "brl", PaymentIntentID: "pi_1", Status: domain.CallConfirmed},
		{ID: "c2", CreatorID: "cr1", BuyerID: "b1", SlotID: "s2", Date: "2026-10-21", StartTime: "10:00", DurationMinutes: 30, PriceCents: 100, Currency: "brl", PaymentIntentID: "pi_2", Status: domain.CallConfirmed},
		{ID: "c3", CreatorID: "cr1", BuyerID: "b1", SlotID: "s3", Date: "2026-10-20", StartTime: "11:00", DurationMinutes: 30, PriceCents: 100, Currency: "brl", PaymentIntentID: "pi_3", Status: "cancelled"},
	}
	if err := s.DB.Create(&calls).Error; err != nil {
		t.Fatalf("seed calls: %v", err)
	}
	got, err := s.ListConfirmedCalls(ctx, "cr1", "2026-10-20")
	if err != nil || len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("expected c1 only, got %+v err=%v", got, err)
	}
}
