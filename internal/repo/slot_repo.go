// Package repo implements the data persistence layer for the payments
// ledger. This file holds the calendar queries: availability slots and the
// creator's streams and calls used for overlap checks.
//
// Slot ownership is decided by ClaimSlot's conditional update alone. Reads
// here are advisory and may be stale by the time a payment settles.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/creator-payments/internal/domain"
)

// GetSlot fetches a slot by id.
func GetSlot(ctx context.Context, db *gorm.DB, id string) (*domain.AvailabilitySlot, error) {
	var s domain.AvailabilitySlot
	if err := db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// GetSlotAt fetches the creator's slot starting at date/startTime.
func GetSlotAt(ctx context.Context, db *gorm.DB, creatorID, date, startTime string) (*domain.AvailabilitySlot, error) {
	var s domain.AvailabilitySlot
	if err := db.WithContext(ctx).
		Where("creator_id = ? AND date = ? AND start_time = ?", creatorID, date, startTime).
		First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ClaimSlot marks a slot purchased if and only if it is still free. It
// returns false when another writer got there first (or the slot is gone).
func ClaimSlot(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	tx := db.WithContext(ctx).
		Model(&domain.AvailabilitySlot{}).
		Where("id = ? AND purchased = ?", id, false).
		Updates(map[string]any{"purchased": true, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// ReleaseSlot reverts a claim. Only the compensation path after a failed
// Call insert should call this.
func ReleaseSlot(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.AvailabilitySlot{}).
		Where("id = ? AND purchased = ?", id, true).
		Updates(map[string]any{"purchased": false, "updated_at": time.Now().UTC()}).Error
}

// ListActiveStreams returns the creator's scheduled or live streams that
// start before `to` and could still be running at `from`. lookback bounds how
// long a stream may last so the query stays indexable.
func ListActiveStreams(ctx context.Context, db *gorm.DB, creatorID string, from, to time.Time, lookback time.Duration) ([]domain.LiveStream, error) {
	var out []domain.LiveStream
	err := db.WithContext(ctx).
		Where("creator_id = ? AND status IN ? AND scheduled_at < ? AND scheduled_at >= ?",
			creatorID, []string{domain.StreamScheduled, domain.StreamLive}, to.UTC(), from.UTC().Add(-lookback)).
		Order("scheduled_at ASC").
		Find(&out).Error
	return out, err
}

// ListConfirmedCalls returns the creator's confirmed calls on date.
func ListConfirmedCalls(ctx context.Context, db *gorm.DB, creatorID, date string) ([]domain.Call, error) {
	var out []domain.Call
	err := db.WithContext(ctx).
		Where("creator_id = ? AND date = ? AND status = ?", creatorID, date, domain.CallConfirmed).
		Order("start_time ASC").
		Find(&out).Error
	return out, err
}
