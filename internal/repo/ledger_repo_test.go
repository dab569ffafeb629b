package repo

import (
	"context"
	"testing"

	"github.com/tbourn/creator-payments/internal/domain"
)

func TestUpsertTransaction_SamePaymentIntentConverges(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()

	first, err := s.UpsertTransaction(ctx, &domain.Transaction{
		PaymentIntentID: "pi_1", BuyerID: "b1", CreatorID: "cr1",
		ProductType: domain.ProductPack, ProductID: "p1",
		GrossCents: 10000, PlatformFeeCents: 1500, CreatorShareCents: 8500, Currency: "brl",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, err := s.UpsertTransaction(ctx, &domain.Transaction{
		PaymentIntentID: "pi_1", BuyerID: "b1", CreatorID: "cr1",
		ProductType: domain.ProductPack, ProductID: "p1",
		GrossCents: 10000, PlatformFeeCents: 1400, CreatorShareCents: 8600, Currency: "brl",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected stable id %q, got %q", first.ID, second.ID)
	}
	if second.PlatformFeeCents != 1400 || second.CreatorShareCents != 8600 {
		t.Fatalf("expected refreshed amounts, got %+v", second)
	}

	var n int64
	s.DB.Model(&domain.Transaction{}).Where("payment_intent_id = ?", "pi_1").Count(&n)
	if n != 1 {
		t.Fatalf("expected 1 transaction row, got %d", n)
	}

	got, err := GetTransactionByPaymentIntent(ctx, s.DB, "pi_1")
	if err != nil || got.ID != first.ID {
		t.Fatalf("lookup by payment intent: %+v err=%v", got, err)
	}
}

func TestCreatePackPurchase_InsertOrIgnore(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()
	p := func() *domain.PackPurchase {
		return &domain.PackPurchase{
			BuyerID: "b1", PackID: "p1", CreatorID: "cr1", TransactionID: "t1",
			PaymentIntentID: "pi_1", AmountCents: 10000, PlatformFeeCents: 1500,
			CreatorShareCents: 8500, Currency: "brl",
		}
	}

	created, err := s.CreatePackPurchase(ctx, p())
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	created, err = s.CreatePackPurchase(ctx, p())
	if err != nil || created {
		t.Fatalf("replay should be ignored: created=%v err=%v", created, err)
	}
}

func TestCreateLiveTicket_InsertOrIgnore(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()
	lt := func() *domain.LiveTicket {
		return &domain.LiveTicket{
			BuyerID: "b1", LiveStreamID: "ls1", CreatorID: "cr1", TransactionID: "t1",
			PaymentIntentID: "pi_2", AmountCents: 5000, PlatformFeeCents: 750,
			CreatorShareCents: 4250, Currency: "brl",
		}
	}

	if created, err := s.CreateLiveTicket(ctx, lt()); err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	if created, err := s.CreateLiveTicket(ctx, lt()); err != nil || created {
		t.Fatalf("replay should be ignored: created=%v err=%v", created, err)
	}
}

func TestCreateCall_SlotIsUnique(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()
	call := func(pi string) *domain.Call {
		return &domain.Call{
			CreatorID: "cr1", BuyerID: "b1", SlotID: "s1", Date: "2026-10-20",
			StartTime: "10:00", DurationMinutes: 30, PriceCents: 8000,
			Currency: "brl", PaymentIntentID: pi,
		}
	}

	if err := s.CreateCall(ctx, call("pi_1")); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := s.CreateCall(ctx, call("pi_2")); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestListPurchases_GroupsByKind(t *testing.T) {
	s := NewStore(newRepoDB(t))
	ctx := context.Background()

	_, _ = s.CreatePackPurchase(ctx, &domain.PackPurchase{BuyerID: "b1", PackID: "p1", CreatorID: "cr1", TransactionID: "t1", PaymentIntentID: "pi_1", Currency: "brl"})
	_, _ = s.CreateLiveTicket(ctx, &domain.LiveTicket{BuyerID: "b1", LiveStreamID: "ls1", CreatorID: "cr1", TransactionID: "t2", PaymentIntentID: "pi_2", Currency: "brl"})
	_ = s.CreateCall(ctx, &domain.Call{CreatorID: "cr1", BuyerID: "b1", SlotID: "s1", Date: "2026-10-20", StartTime: "10:00", DurationMinutes: 30, Currency: "brl", PaymentIntentID: "pi_3"})
	_, _ = s.CreatePackPurchase(ctx, &domain.PackPurchase{BuyerID: "b2", PackID: "p1", CreatorID: "cr1", TransactionID: "t4", PaymentIntentID: "pi_4", Currency: "brl"})

	got, err := s.ListPurchases(ctx, "b1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got.Packs) != 1 || len(got.Tickets) != 1 || len(got.Calls) != 1 {
		t.Fatalf("unexpected grouping: %+v", got)
	}
}
