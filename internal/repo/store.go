package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/creator-payments/internal/domain"
)

// Store binds the repository functions to one *gorm.DB so services can
// depend on narrow interfaces instead of the repo package.
type Store struct {
	DB *gorm.DB
}

// NewStore returns a Store over db.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// Ping checks connectivity to the underlying database.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) GetCreator(ctx context.Context, id string) (*domain.CreatorProfile, error) {
	return GetCreator(ctx, s.DB, id)
}

func (s *Store) GetPack(ctx context.Context, id, creatorID string) (*domain.Pack, error) {
	return GetPack(ctx, s.DB, id, creatorID)
}

func (s *Store) SetPackPriceIfUnset(ctx context.Context, packID, priceID string) (string, error) {
	return SetPackPriceIfUnset(ctx, s.DB, packID, priceID)
}

func (s *Store) GetLiveStream(ctx context.Context, id, creatorID string) (*domain.LiveStream, error) {
	return GetLiveStream(ctx, s.DB, id, creatorID)
}

func (s *Store) GetPlan(ctx context.Context, id, creatorID string) (*domain.Plan, error) {
	return GetPlan(ctx, s.DB, id, creatorID)
}

func (s *Store) GetPlanByPrice(ctx context.Context, priceID string) (*domain.Plan, error) {
	return GetPlanByPrice(ctx, s.DB, priceID)
}

func (s *Store) SetBuyerCustomerID(ctx context.Context, buyerID, customerID string) error {
	return SetBuyerCustomerID(ctx, s.DB, buyerID, customerID)
}

func (s *Store) GetSlot(ctx context.Context, id string) (*domain.AvailabilitySlot, error) {
	return GetSlot(ctx, s.DB, id)
}

func (s *Store) GetSlotAt(ctx context.Context, creatorID, date, startTime string) (*domain.AvailabilitySlot, error) {
	return GetSlotAt(ctx, s.DB, creatorID, date, startTime)
}

func (s *Store) ClaimSlot(ctx context.Context, id string) (bool, error) {
	return ClaimSlot(ctx, s.DB, id)
}

func (s *Store) ReleaseSlot(ctx context.Context, id string) error {
	return ReleaseSlot(ctx, s.DB, id)
}

func (s *Store) ListActiveStreams(ctx context.Context, creatorID string, from, to time.Time, lookback time.Duration) ([]domain.LiveStream, error) {
	return ListActiveStreams(ctx, s.DB, creatorID, from, to, lookback)
}

func (s *Store) ListConfirmedCalls(ctx context.Context, creatorID, date string) ([]domain.Call, error) {
	return ListConfirmedCalls(ctx, s.DB, creatorID, date)
}

func (s *Store) UpsertTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	return UpsertTransaction(ctx, s.DB, t)
}

func (s *Store) CreatePackPurchase(ctx context.Context, p *domain.PackPurchase) (bool, error) {
	return CreatePackPurchase(ctx, s.DB, p)
}

func (s *Store) CreateLiveTicket(ctx context.Context, lt *domain.LiveTicket) (bool, error) {
	return CreateLiveTicket(ctx, s.DB, lt)
}

func (s *Store) CreateCall(ctx context.Context, c *domain.Call) error {
	return CreateCall(ctx, s.DB, c)
}

func (s *Store) ListPurchases(ctx context.Context, buyerID string) (*Purchases, error) {
	return ListPurchases(ctx, s.DB, buyerID)
}

func (s *Store) UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	return UpsertSubscription(ctx, s.DB, sub)
}

func (s *Store) SetSubscriptionStatus(ctx context.Context, providerID, status string, cancelledAt *time.Time) (int64, error) {
	return SetSubscriptionStatus(ctx, s.DB, providerID, status, cancelledAt)
}

func (s *Store) HasProcessedEvent(ctx context.Context, eventID string) (bool, error) {
	return HasProcessedEvent(ctx, s.DB, eventID)
}

func (s *Store) RecordProcessedEvent(ctx context.Context, eventID, eventType string) error {
	return RecordProcessedEvent(ctx, s.DB, eventID, eventType)
}

func (s *Store) ReservePayout(ctx context.Context, creatorID, key string, amountCents int64, currency string, now time.Time) (*domain.Payout, error) {
	return ReservePayout(ctx, s.DB, creatorID, key, amountCents, currency, now)
}

func (s *Store) GetPayoutByKey(ctx context.Context, key string) (*domain.Payout, error) {
	return GetPayoutByKey(ctx, s.DB, key)
}

func (s *Store) LatestInFlightPayout(ctx context.Context, creatorID string, since time.Time) (*domain.Payout, error) {
	return LatestInFlightPayout(ctx, s.DB, creatorID, since)
}

func (s *Store) MarkPayoutFailed(ctx context.Context, id, reason string) error {
	return MarkPayoutFailed(ctx, s.DB, id, reason)
}

func (s *Store) ResolvePayout(ctx context.Context, id, providerID, status string, arrival *time.Time) (*domain.Payout, error) {
	return ResolvePayout(ctx, s.DB, id, providerID, status, arrival)
}

// ListPayoutsPage returns a page of payouts and the creator's total count.
func (s *Store) ListPayoutsPage(ctx context.Context, creatorID string, offset, limit int) ([]domain.Payout, int64, error) {
	total, err := CountPayouts(ctx, s.DB, creatorID)
	if err != nil {
		return nil, 0, err
	}
	items, err := ListPayoutsPage(ctx, s.DB, creatorID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
