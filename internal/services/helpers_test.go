package services

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/creator-payments/internal/domain"
	"github.com/tbourn/creator-payments/internal/events"
	"github.com/tbourn/creator-payments/internal/payments"
	"github.com/tbourn/creator-payments/internal/payments/paymentstest"
	"github.com/tbourn/creator-payments/internal/repo"
)

const (
	testCreator = "cr-0001"
	testBuyer   = "buyer-0001"
	testAccount = "acct_test_1"
	testDate    = "2026-11-02"
)

// newStore opens a private in-memory ledger per test.
func newStore(t *testing.T) *repo.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, repo.AutoMigrate(db))
	return repo.NewStore(db)
}

// newFileStore opens a file-backed ledger for tests that race goroutines.
func newFileStore(t *testing.T) *repo.Store {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, repo.AutoMigrate(db))
	return repo.NewStore(db)
}

func ptr[T any](v T) *T { return &v }

func seedCreator(t *testing.T, s *repo.Store, withAccount bool) *domain.CreatorProfile {
	t.Helper()
	c := &domain.CreatorProfile{
		ID:               testCreator,
		DisplayName:      "Ana",
		CallPrice30Cents: 5000,
		CallPrice60Cents: 9000,
		Currency:         "brl",
	}
	if withAccount {
		c.StripeAccountID = ptr(testAccount)
	}
	require.NoError(t, s.DB.Create(c).Error)
	return c
}

func seedSlot(t *testing.T, s *repo.Store, id, start string, purchased bool) {
	t.Helper()
	require.NoError(t, s.DB.Create(&domain.AvailabilitySlot{
		ID:        id,
		CreatorID: testCreator,
		Date:      testDate,
		StartTime: start,
	}).Error)
	if purchased {
		require.NoError(t, s.DB.Model(&domain.AvailabilitySlot{}).Where("id = ?", id).Update("purchased", true).Error)
	}
}

func seedPack(t *testing.T, s *repo.Store, id string, priceID *string) {
	t.Helper()
	require.NoError(t, s.DB.Create(&domain.Pack{
		ID:            id,
		CreatorID:     testCreator,
		Title:         "Summer pack",
		PriceCents:    10000,
		Currency:      "brl",
		StripePriceID: priceID,
	}).Error)
}

func seedPlan(t *testing.T, s *repo.Store, id, priceID string) {
	t.Helper()
	require.NoError(t, s.DB.Create(&domain.Plan{
		ID:            id,
		CreatorID:     testCreator,
		Name:          "Monthly",
		StripePriceID: priceID,
		PriceCents:    2990,
		Currency:      "brl",
	}).Error)
}

func count(t *testing.T, s *repo.Store, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := s.DB.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func slotPurchased(t *testing.T, s *repo.Store, id string) bool {
	t.Helper()
	var slot domain.AvailabilitySlot
	require.NoError(t, s.DB.First(&slot, "id = ?", id).Error)
	return slot.Purchased
}

func newFakeProvider() *paymentstest.Fake {
	f := paymentstest.New()
	f.Accounts[testAccount] = &payments.Account{ID: testAccount, PayoutsEnabled: true, ChargesEnabled: true}
	return f
}

func newWebhookService(store WebhookStore, p payments.Provider) (*WebhookService, *events.Recorder) {
	rec := &events.Recorder{}
	return &WebhookService{Store: store, Provider: p, Publisher: rec, SlotMinutes: 30}, rec
}

// paidCheckout builds a paid one-time checkout event for productType.
func paidCheckout(eventID, paymentIntent string, pt domain.ProductType, productID string, extra map[string]string) *payments.Event {
	md := map[string]string{
		"product_id":   productID,
		"product_type": string(pt),
		"creator_id":   testCreator,
		"buyer_id":     testBuyer,
	}
	for k, v := range extra {
		md[k] = v
	}
	return &payments.Event{
		ID:      eventID,
		Type:    payments.EventCheckoutCompleted,
		RawType: "checkout.session.completed",
		Account: testAccount,
		Checkout: &payments.CheckoutCompleted{
			SessionID:         "cs_" + eventID,
			Mode:              payments.ModePayment,
			PaymentStatus:     "paid",
			ClientReferenceID: testBuyer,
			PaymentIntentID:   paymentIntent,
			AmountTotal:       10000,
			Currency:          "brl",
			Metadata:          md,
		},
	}
}

func addIntent(f *paymentstest.Fake, id string, amount, fee int64) {
	f.PaymentIntents[id] = &payments.PaymentIntent{ID: id, Amount: amount, ApplicationFee: fee, Currency: "brl", Status: "succeeded"}
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
