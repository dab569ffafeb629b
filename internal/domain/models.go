package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Purchase and booking states.
const (
	StatusCompleted = "completed"
	CallConfirmed   = "confirmed"
)

// Subscription states.
const (
	SubscriptionPending   = "pending"
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Transaction is the canonical record of a provider payment. It is keyed by
// the payment intent so repeated deliveries of the same payment converge on
// one row.
//
// Amounts are minor units (cents) in Currency.
type Transaction struct {
	ID                string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	PaymentIntentID   string         `json:"payment_intent_id"  gorm:"type:varchar(255);not null;uniqueIndex"`
	BuyerID           string         `json:"buyer_id"           gorm:"type:varchar(64);not null;index"`
	CreatorID         string         `json:"creator_id"         gorm:"type:char(36);not null;index"`
	ProductType       ProductType    `json:"product_type"       gorm:"type:varchar(32);not null"`
	ProductID         string         `json:"product_id"         gorm:"type:varchar(64);not null"`
	GrossCents        int64          `json:"gross"              gorm:"not null"`
	PlatformFeeCents  int64          `json:"platform_fee"       gorm:"not null"`
	CreatorShareCents int64          `json:"creator_share"      gorm:"not null"`
	Currency          string         `json:"currency"           gorm:"type:varchar(3);not null"`
	Status            string         `json:"status"             gorm:"type:varchar(16);not null;default:'completed'"`
	Metadata          datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Transaction.
func (Transaction) TableName() string { return "transactions" }

// PackPurchase grants a buyer access to a pack. One row per payment intent.
type PackPurchase struct {
	ID                string    `json:"id"                gorm:"type:char(36);primaryKey"`
	BuyerID           string    `json:"buyer_id"          gorm:"type:varchar(64);not null;index"`
	PackID            string    `json:"pack_id"           gorm:"type:char(36);not null;index"`
	CreatorID         string    `json:"creator_id"        gorm:"type:char(36);not null"`
	TransactionID     string    `json:"transaction_id"    gorm:"type:char(36);not null"`
	PaymentIntentID   string    `json:"payment_intent_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	AmountCents       int64     `json:"amount"            gorm:"not null"`
	PlatformFeeCents  int64     `json:"platform_fee"      gorm:"not null"`
	CreatorShareCents int64     `json:"creator_share"     gorm:"not null"`
	Currency          string    `json:"currency"          gorm:"type:varchar(3);not null"`
	Status            string    `json:"status"            gorm:"type:varchar(16);not null;default:'completed'"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName returns the database table name for PackPurchase.
func (PackPurchase) TableName() string { return "pack_purchases" }

// LiveTicket grants a buyer entry to a live stream. One row per payment intent.
type LiveTicket struct {
	ID                string    `json:"id"                gorm:"type:char(36);primaryKey"`
	BuyerID           string    `json:"buyer_id"          gorm:"type:varchar(64);not null;index"`
	LiveStreamID      string    `json:"live_stream_id"    gorm:"type:char(36);not null;index"`
	CreatorID         string    `json:"creator_id"        gorm:"type:char(36);not null"`
	TransactionID     string    `json:"transaction_id"    gorm:"type:char(36);not null"`
	PaymentIntentID   string    `json:"payment_intent_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	AmountCents       int64     `json:"amount"            gorm:"not null"`
	PlatformFeeCents  int64     `json:"platform_fee"      gorm:"not null"`
	CreatorShareCents int64     `json:"creator_share"     gorm:"not null"`
	Currency          string    `json:"currency"          gorm:"type:varchar(3);not null"`
	Status            string    `json:"status"            gorm:"type:varchar(16);not null;default:'completed'"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName returns the database table name for LiveTicket.
func (LiveTicket) TableName() string { return "live_tickets" }

// Call is a confirmed one-on-one booking. SlotID is unique: a slot backs at
// most one call.
type Call struct {
	ID              string    `json:"id"                gorm:"type:char(36);primaryKey"`
	CreatorID       string    `json:"creator_id"        gorm:"type:char(36);not null;index:idx_call_creator_date,priority:1"`
	BuyerID         string    `json:"buyer_id"          gorm:"type:varchar(64);not null;index"`
	SlotID          string    `json:"slot_id"           gorm:"type:char(36);not null;uniqueIndex"`
	Date            string    `json:"date"              gorm:"type:char(10);not null;index:idx_call_creator_date,priority:2"`
	StartTime       string    `json:"start_time"        gorm:"type:char(5);not null"`
	DurationMinutes int       `json:"duration_minutes"  gorm:"not null;check:duration_minutes IN (30,60)"`
	PriceCents      int64     `json:"price"             gorm:"not null"`
	Currency        string    `json:"currency"          gorm:"type:varchar(3);not null"`
	PaymentIntentID string    `json:"payment_intent_id" gorm:"type:varchar(255);not null;index"`
	Status          string    `json:"status"            gorm:"type:varchar(16);not null;default:'confirmed'"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName returns the database table name for Call.
func (Call) TableName() string { return "calls" }

// Subscription mirrors a provider subscription between a client and a
// creator. (client_id, creator_id) is unique; every lifecycle event upserts.
type Subscription struct {
	ID                   string     `json:"id"                     gorm:"type:char(36);primaryKey"`
	ClientID             string     `json:"client_id"              gorm:"type:varchar(64);not null;uniqueIndex:ux_subscription_client_creator,priority:1"`
	CreatorID            string     `json:"creator_id"             gorm:"type:char(36);not null;uniqueIndex:ux_subscription_client_creator,priority:2"`
	PlanID               string     `json:"plan_id"                gorm:"type:char(36);not null"`
	StripeSubscriptionID string     `json:"-"                      gorm:"type:varchar(255);not null;index"`
	StripeCustomerID     string     `json:"-"                      gorm:"type:varchar(255)"`
	Status               string     `json:"status"                 gorm:"type:varchar(16);not null;default:'pending'"`
	CurrentPeriodStart   *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"   gorm:"not null;default:false"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }
