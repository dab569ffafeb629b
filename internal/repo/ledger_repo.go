// Package repo implements the data persistence layer for the payments
// ledger. This file writes the money-movement records: transactions,
// purchases, tickets, and calls.
//
// Every write here is safe to repeat. Transactions upsert on the payment
// intent; purchases and tickets insert-or-ignore on it; calls are unique per
// slot and only inserted after a successful slot claim.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/creator-payments/internal/domain"
)

// UpsertTransaction inserts or refreshes the transaction for t.PaymentIntentID
// and returns the stored row (with its original id on conflict).
func UpsertTransaction(ctx context.Context, db *gorm.DB, t *domain.Transaction) (*domain.Transaction, error) {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.StatusCompleted
	}
	t.CreatedAt, t.UpdatedAt = now, now

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_intent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gross_cents", "platform_fee_cents", "creator_share_cents",
			"currency", "status", "metadata", "updated_at",
		}),
	}).Create(t).Error
	if err != nil {
		return nil, err
	}

	var stored domain.Transaction
	if err := db.WithContext(ctx).First(&stored, "payment_intent_id = ?", t.PaymentIntentID).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

// CreatePackPurchase records a pack grant. It reports false when a row for
// the same payment intent already exists.
func CreatePackPurchase(ctx context.Context, db *gorm.DB, p *domain.PackPurchase) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.StatusCompleted
	}
	p.CreatedAt = time.Now().UTC()
	tx := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payment_intent_id"}}, DoNothing: true}).
		Create(p)
	return tx.RowsAffected > 0, tx.Error
}

// CreateLiveTicket records a live stream ticket. It reports false when a row
// for the same payment intent already exists.
func CreateLiveTicket(ctx context.Context, db *gorm.DB, lt *domain.LiveTicket) (bool, error) {
	if lt.ID == "" {
		lt.ID = uuid.NewString()
	}
	if lt.Status == "" {
		lt.Status = domain.StatusCompleted
	}
	lt.CreatedAt = time.Now().UTC()
	tx := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payment_intent_id"}}, DoNothing: true}).
		Create(lt)
	return tx.RowsAffected > 0, tx.Error
}

// CreateCall inserts a confirmed call. A second call for the same slot fails
// with ErrDuplicate.
func CreateCall(ctx context.Context, db *gorm.DB, c *domain.Call) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.CallConfirmed
	}
	c.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetTransactionByPaymentIntent fetches the transaction for a payment intent.
func GetTransactionByPaymentIntent(ctx context.Context, db *gorm.DB, paymentIntentID string) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := db.WithContext(ctx).First(&t, "payment_intent_id = ?", paymentIntentID).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// Purchases groups everything a buyer has bought.
type Purchases struct {
	Packs   []domain.PackPurchase `json:"packs"`
	Tickets []domain.LiveTicket   `json:"tickets"`
	Calls   []domain.Call         `json:"calls"`
}

// ListPurchases returns a buyer's packs, tickets, and calls, newest first.
func ListPurchases(ctx context.Context, db *gorm.DB, buyerID string) (*Purchases, error) {
	out := &Purchases{}
	q := db.WithContext(ctx)
	if err := q.Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&out.Packs).Error; err != nil {
		return nil, err
	}
	if err := q.Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&out.Tickets).Error; err != nil {
		return nil, err
	}
	if err := q.Where("buyer_id = ?", buyerID).Order("date DESC, start_time DESC").Find(&out.Calls).Error; err != nil {
		return nil, err
	}
	return out, nil
}
