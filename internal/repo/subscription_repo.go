package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/creator-payments/internal/domain"
)

// UpsertSubscription inserts or updates the subscription for
// (ClientID, CreatorID) and returns the stored row.
func UpsertSubscription(ctx context.Context, db *gorm.DB, s *domain.Subscription) (*domain.Subscription, error) {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = domain.SubscriptionPending
	}
	s.CreatedAt, s.UpdatedAt = now, now

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}, {Name: "creator_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id", "stripe_subscription_id", "stripe_customer_id", "status",
			"current_period_start", "current_period_end", "cancel_at_period_end",
			"cancelled_at", "updated_at",
		}),
	}).Create(s).Error
	if err != nil {
		return nil, err
	}

	var stored domain.Subscription
	if err := db.WithContext(ctx).
		Where("client_id = ? AND creator_id = ?", s.ClientID, s.CreatorID).
		First(&stored).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

// GetSubscriptionByProviderID fetches the subscription mirrored from a
// provider subscription id.
func GetSubscriptionByProviderID(ctx context.Context, db *gorm.DB, providerID string) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := db.WithContext(ctx).First(&s, "stripe_subscription_id = ?", providerID).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// SetSubscriptionStatus moves every row mirroring providerID to status. When
// status is cancelled, cancelledAt is stamped as well. It returns the number
// of rows changed; zero means the subscription is unknown locally.
func SetSubscriptionStatus(ctx context.Context, db *gorm.DB, providerID, status string, cancelledAt *time.Time) (int64, error) {
	updates := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	if cancelledAt != nil {
		updates["cancelled_at"] = cancelledAt.UTC()
	}
	tx := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("stripe_subscription_id = ?", providerID).
		Updates(updates)
	return tx.RowsAffected, tx.Error
}
