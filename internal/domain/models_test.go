package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func allModels() []any {
	return []any{
		&CreatorProfile{}, &BuyerProfile{}, &Pack{}, &LiveStream{}, &AvailabilitySlot{}, &Plan{},
		&Transaction{}, &PackPurchase{}, &LiveTicket{}, &Call{}, &Subscription{},
		&ProcessedWebhookEvent{}, &Payout{},
	}
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(CreatorProfile{}).TableName():        "creator_profiles",
		(BuyerProfile{}).TableName():          "buyer_profiles",
		(Pack{}).TableName():                  "packs",
		(LiveStream{}).TableName():            "live_streams",
		(AvailabilitySlot{}).TableName():      "availability_slots",
		(Plan{}).TableName():                  "plans",
		(Transaction{}).TableName():           "transactions",
		(PackPurchase{}).TableName():          "pack_purchases",
		(LiveTicket{}).TableName():            "live_tickets",
		(Call{}).TableName():                  "calls",
		(Subscription{}).TableName():          "subscriptions",
		(ProcessedWebhookEvent{}).TableName(): "processed_webhook_events",
		(Payout{}).TableName():                "payouts",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_UniqueIndexes(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range allModels() {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	checks := []struct {
		model any
		index string
	}{
		{&AvailabilitySlot{}, "ux_slot_creator_date_time"},
		{&Subscription{}, "ux_subscription_client_creator"},
		{&Transaction{}, "PaymentIntentID"},
		{&PackPurchase{}, "PaymentIntentID"},
		{&LiveTicket{}, "PaymentIntentID"},
		{&Call{}, "SlotID"},
		{&Payout{}, "IdempotencyKey"},
	}
	for _, c := range checks {
		if !m.HasIndex(c.model, c.index) {
			t.Fatalf("expected index %s on %T", c.index, c.model)
		}
	}
}

func TestCall_SlotIsUnique(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Call{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	base := Call{
		CreatorID: "c1", BuyerID: "b1", SlotID: "s1", Date: "2026-10-20", StartTime: "10:00",
		DurationMinutes: 30, PriceCents: 5000, Currency: "brl", PaymentIntentID: "pi_1", Status: CallConfirmed,
	}
	first := base
	first.ID = "call-1"
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("insert first: %v", err)
	}
	second := base
	second.ID = "call-2"
	second.PaymentIntentID = "pi_2"
	if err := db.Create(&second).Error; err == nil {
		t.Fatalf("expected unique violation for second call on the same slot")
	}
}

func TestParseProductType(t *testing.T) {
	for _, s := range []string{"pack", "live_ticket", "video-call", "subscription"} {
		if p, ok := ParseProductType(s); !ok || string(p) != s {
			t.Fatalf("ParseProductType(%q) = %q, %v", s, p, ok)
		}
	}
	for _, s := range []string{"", "video_call", "PACK", "tip"} {
		if _, ok := ParseProductType(s); ok {
			t.Fatalf("ParseProductType(%q) should fail", s)
		}
	}
}

func TestProductType_NeedsStoredPrice(t *testing.T) {
	if ProductVideoCall.NeedsStoredPrice() || ProductPack.NeedsStoredPrice() {
		t.Fatalf("video-call and pack resolve prices without a stored reference")
	}
	if !ProductLiveTicket.NeedsStoredPrice() || !ProductSubscription.NeedsStoredPrice() {
		t.Fatalf("live tickets and subscriptions need a stored price")
	}
}

func TestLiveStream_End(t *testing.T) {
	start := time.Date(2026, 10, 20, 19, 0, 0, 0, time.UTC)
	s := LiveStream{ScheduledAt: start, DurationMinutes: 90}
	if got := s.End(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("End() = %v", got)
	}
}

func TestCreatorProfile_ConnectedAccount(t *testing.T) {
	if (CreatorProfile{}).ConnectedAccount() != "" {
		t.Fatalf("nil account should render empty")
	}
	acct := "acct_123"
	if (CreatorProfile{StripeAccountID: &acct}).ConnectedAccount() != acct {
		t.Fatalf("account not returned")
	}
}
