// Package repo implements the data persistence layer for the payments
// ledger. This file provides repository helpers for Payout, the reservation
// record that makes creator withdrawals safe to retry.
//
// Error semantics:
//   - ReservePayout returns ErrDuplicate when the idempotency key is taken.
//   - Lookups return ErrNotFound when nothing matches.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/creator-payments/internal/domain"
)

// ReservePayout inserts a pending payout under key. It returns ErrDuplicate
// when the key was already used.
func ReservePayout(ctx context.Context, db *gorm.DB, creatorID, key string, amountCents int64, currency string, now time.Time) (*domain.Payout, error) {
	p := &domain.Payout{
		ID:             uuid.NewString(),
		CreatorID:      creatorID,
		IdempotencyKey: key,
		AmountCents:    amountCents,
		Currency:       currency,
		Status:         domain.PayoutPending,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return p, nil
}

// GetPayoutByKey fetches the payout reserved under key.
func GetPayoutByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Payout, error) {
	var p domain.Payout
	if err := db.WithContext(ctx).First(&p, "idempotency_key = ?", key).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// LatestInFlightPayout returns the creator's most recent pending or
// in-transit payout created at or after since.
func LatestInFlightPayout(ctx context.Context, db *gorm.DB, creatorID string, since time.Time) (*domain.Payout, error) {
	var p domain.Payout
	err := db.WithContext(ctx).
		Where("creator_id = ? AND status IN ? AND created_at >= ?",
			creatorID, []string{domain.PayoutPending, domain.PayoutInTransit}, since.UTC()).
		Order("created_at DESC").
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// MarkPayoutFailed records a provider rejection on a reserved payout.
func MarkPayoutFailed(ctx context.Context, db *gorm.DB, id, reason string) error {
	return db.WithContext(ctx).
		Model(&domain.Payout{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         domain.PayoutFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// ResolvePayout stores the provider's payout id, status, and arrival date.
func ResolvePayout(ctx context.Context, db *gorm.DB, id, providerID, status string, arrival *time.Time) (*domain.Payout, error) {
	updates := map[string]any{
		"stripe_payout_id": providerID,
		"status":           status,
		"updated_at":       time.Now().UTC(),
	}
	if arrival != nil {
		updates["arrival_date"] = arrival.UTC()
	}
	if err := db.WithContext(ctx).Model(&domain.Payout{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	var p domain.Payout
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CountPayouts returns how many payouts a creator has requested.
func CountPayouts(ctx context.Context, db *gorm.DB, creatorID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Payout{}).Where("creator_id = ?", creatorID).Count(&n).Error
	return n, err
}

// ListPayoutsPage returns a page of a creator's payouts, newest first.
func ListPayoutsPage(ctx context.Context, db *gorm.DB, creatorID string, offset, limit int) ([]domain.Payout, error) {
	var out []domain.Payout
	err := db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
