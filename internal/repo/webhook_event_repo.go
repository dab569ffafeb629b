// Package repo implements the data persistence layer for the payments
// ledger. This file provides the processed-event journal that makes webhook
// application exactly-once.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/creator-payments/internal/domain"
)

// HasProcessedEvent reports whether eventID was already fully applied.
func HasProcessedEvent(ctx context.Context, db *gorm.DB, eventID string) (bool, error) {
	var ev domain.ProcessedWebhookEvent
	err := db.WithContext(ctx).Select("event_id").First(&ev, "event_id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordProcessedEvent journals eventID. It returns ErrDuplicate when a
// concurrent delivery recorded it first.
func RecordProcessedEvent(ctx context.Context, db *gorm.DB, eventID, eventType string) error {
	ev := &domain.ProcessedWebhookEvent{
		EventID:     eventID,
		Type:        eventType,
		ProcessedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
