package domain

import "time"

// ProcessedWebhookEvent marks a provider event whose side effects were fully
// applied. A row means redelivery is a no-op; no row means retry is required.
type ProcessedWebhookEvent struct {
	EventID     string    `gorm:"type:varchar(255);primaryKey"`
	Type        string    `gorm:"type:varchar(128);not null"`
	ProcessedAt time.Time `gorm:"not null;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (ProcessedWebhookEvent) TableName() string { return "processed_webhook_events" }

// Payout states. Pending and in-transit payouts count toward the cooldown.
const (
	PayoutPending   = "pending"
	PayoutInTransit = "in_transit"
	PayoutPaid      = "paid"
	PayoutFailed    = "failed"
	PayoutCanceled  = "canceled"
)

// Payout is a creator withdrawal, reserved under the caller's idempotency
// key before the provider is called and updated with the provider's answer.
type Payout struct {
	ID             string     `json:"id"                      gorm:"type:char(36);primaryKey"`
	CreatorID      string     `json:"creator_id"              gorm:"type:char(36);not null;index:idx_payout_creator_created,priority:1"`
	IdempotencyKey string     `json:"-"                       gorm:"type:varchar(255);not null;uniqueIndex"`
	AmountCents    int64      `json:"amount"                  gorm:"not null"`
	Currency       string     `json:"currency"                gorm:"type:varchar(3);not null"`
	Status         string     `json:"status"                  gorm:"type:varchar(16);not null;default:'pending';index"`
	StripePayoutID *string    `json:"stripe_payout_id,omitempty" gorm:"type:varchar(255)"`
	ArrivalDate    *time.Time `json:"arrival_date,omitempty"`
	FailureReason  string     `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at"              gorm:"index:idx_payout_creator_created,priority:2"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (Payout) TableName() string { return "payouts" }

// Resolved reports whether the provider has acknowledged this payout.
func (p Payout) Resolved() bool { return p.StripePayoutID != nil && *p.StripePayoutID != "" }

// InFlight reports whether the payout still counts toward the cooldown.
func (p Payout) InFlight() bool {
	return p.Status == PayoutPending || p.Status == PayoutInTransit
}
