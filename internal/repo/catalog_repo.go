// Package repo implements the data persistence layer for the payments
// ledger. This file covers the catalog side: creators, buyers, packs, live
// streams, and plans. These rows are owned by the wider storefront; the
// payments service reads them and writes back provider references only.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/creator-payments/internal/domain"
)

// GetCreator fetches a creator profile by id.
func GetCreator(ctx context.Context, db *gorm.DB, id string) (*domain.CreatorProfile, error) {
	var c domain.CreatorProfile
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// GetPack fetches a pack owned by creatorID.
func GetPack(ctx context.Context, db *gorm.DB, id, creatorID string) (*domain.Pack, error) {
	var p domain.Pack
	if err := db.WithContext(ctx).
		Where("id = ? AND creator_id = ?", id, creatorID).
		First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// SetPackPriceIfUnset stores priceID on a pack that has no provider price yet
// and returns the price the pack ends up with. When a concurrent checkout won
// the race, its price is returned instead of priceID.
func SetPackPriceIfUnset(ctx context.Context, db *gorm.DB, packID, priceID string) (string, error) {
	tx := db.WithContext(ctx).
		Model(&domain.Pack{}).
		Where("id = ? AND stripe_price_id IS NULL", packID).
		Updates(map[string]any{"stripe_price_id": priceID, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return "", tx.Error
	}
	if tx.RowsAffected == 1 {
		return priceID, nil
	}

	var p domain.Pack
	if err := db.WithContext(ctx).Select("stripe_price_id").First(&p, "id = ?", packID).Error; err != nil {
		return "", notFound(err)
	}
	if p.StripePriceID == nil {
		return "", ErrNotFound
	}
	return *p.StripePriceID, nil
}

// GetLiveStream fetches a live stream owned by creatorID.
func GetLiveStream(ctx context.Context, db *gorm.DB, id, creatorID string) (*domain.LiveStream, error) {
	var s domain.LiveStream
	if err := db.WithContext(ctx).
		Where("id = ? AND creator_id = ?", id, creatorID).
		First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// GetPlan fetches a plan owned by creatorID.
func GetPlan(ctx context.Context, db *gorm.DB, id, creatorID string) (*domain.Plan, error) {
	var p domain.Plan
	if err := db.WithContext(ctx).
		Where("id = ? AND creator_id = ?", id, creatorID).
		First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// GetPlanByPrice resolves a plan from the provider price id on a subscription.
func GetPlanByPrice(ctx context.Context, db *gorm.DB, priceID string) (*domain.Plan, error) {
	var p domain.Plan
	if err := db.WithContext(ctx).First(&p, "stripe_price_id = ?", priceID).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// SetBuyerCustomerID records the provider customer for a buyer, creating the
// profile row when the buyer has none. An existing customer id is kept.
func SetBuyerCustomerID(ctx context.Context, db *gorm.DB, buyerID, customerID string) error {
	now := time.Now().UTC()
	tx := db.WithContext(ctx).
		Model(&domain.BuyerProfile{}).
		Where("id = ? AND (stripe_customer_id IS NULL OR stripe_customer_id = '')", buyerID).
		Updates(map[string]any{"stripe_customer_id": customerID, "updated_at": now})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected > 0 {
		return nil
	}

	err := db.WithContext(ctx).Create(&domain.BuyerProfile{
		ID:               buyerID,
		StripeCustomerID: &customerID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}).Error
	if IsDuplicate(err) {
		// Profile exists and already carries a customer.
		return nil
	}
	return err
}
