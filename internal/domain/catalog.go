// Package domain defines the persistence models for the storefront's
// payment-and-booking ledger. These types are mapped with GORM and shared by
// the repository and service layers.
package domain

import "time"

// ProductType is the closed set of things a buyer can check out.
type ProductType string

const (
	ProductPack         ProductType = "pack"
	ProductLiveTicket   ProductType = "live_ticket"
	ProductVideoCall    ProductType = "video-call"
	ProductSubscription ProductType = "subscription"
)

// ParseProductType maps a wire value to a ProductType. The boolean is false
// for anything outside the closed set.
func ParseProductType(s string) (ProductType, bool) {
	switch p := ProductType(s); p {
	case ProductPack, ProductLiveTicket, ProductVideoCall, ProductSubscription:
		return p, true
	}
	return "", false
}

// NeedsStoredPrice reports whether checkout must find an existing provider
// price for this product. Video calls are priced from creator rates and packs
// get a price minted on first checkout.
func (p ProductType) NeedsStoredPrice() bool {
	return p != ProductVideoCall && p != ProductPack
}

// Live stream states.
const (
	StreamScheduled = "scheduled"
	StreamLive      = "live"
	StreamEnded     = "ended"
	StreamCancelled = "cancelled"
)

// CreatorProfile carries the payout and pricing settings of a creator.
//
// StripeAccountID is the connected merchant account; nil means the creator
// has not finished onboarding and can neither sell nor withdraw.
type CreatorProfile struct {
	ID               string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	DisplayName      string    `json:"display_name"       gorm:"type:varchar(255);not null;default:''"`
	StripeAccountID  *string   `json:"-"                  gorm:"type:varchar(255);index"`
	CallPrice30Cents int64     `json:"call_price_30"      gorm:"not null;default:0"`
	CallPrice60Cents int64     `json:"call_price_60"      gorm:"not null;default:0"`
	Currency         string    `json:"currency"           gorm:"type:varchar(3);not null;default:'brl'"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for CreatorProfile.
func (CreatorProfile) TableName() string { return "creator_profiles" }

// ConnectedAccount returns the creator's merchant account id, or "".
func (c CreatorProfile) ConnectedAccount() string {
	if c.StripeAccountID == nil {
		return ""
	}
	return *c.StripeAccountID
}

// BuyerProfile stores the provider customer created for a buyer's first
// subscription checkout.
type BuyerProfile struct {
	ID               string    `json:"id"         gorm:"type:char(36);primaryKey"`
	StripeCustomerID *string   `json:"-"          gorm:"type:varchar(255);index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for BuyerProfile.
func (BuyerProfile) TableName() string { return "buyer_profiles" }

// Pack is a bundle of content sold for a one-time price.
type Pack struct {
	ID            string    `json:"id"          gorm:"type:char(36);primaryKey"`
	CreatorID     string    `json:"creator_id"  gorm:"type:char(36);not null;index"`
	Title         string    `json:"title"       gorm:"type:varchar(255);not null"`
	PriceCents    int64     `json:"price"       gorm:"not null"`
	Currency      string    `json:"currency"    gorm:"type:varchar(3);not null;default:'brl'"`
	StripePriceID *string   `json:"-"           gorm:"type:varchar(255)"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Pack.
func (Pack) TableName() string { return "packs" }

// LiveStream is a ticketed broadcast. Its window blocks overlapping calls
// while it is scheduled or live.
type LiveStream struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	CreatorID       string    `json:"creator_id"       gorm:"type:char(36);not null;index:idx_stream_creator_start,priority:1"`
	Title           string    `json:"title"            gorm:"type:varchar(255);not null"`
	ScheduledAt     time.Time `json:"scheduled_at"     gorm:"not null;index:idx_stream_creator_start,priority:2"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null;default:60"`
	Status          string    `json:"status"           gorm:"type:varchar(16);not null;default:'scheduled'"`
	StripePriceID   *string   `json:"-"                gorm:"type:varchar(255)"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for LiveStream.
func (LiveStream) TableName() string { return "live_streams" }

// End returns the instant the stream window closes.
func (s LiveStream) End() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// AvailabilitySlot is a bookable call window on a creator's calendar.
//
// Purchased flips false→true once, through a conditional update. The only
// other writer is the compensating release after a failed Call insert.
type AvailabilitySlot struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	CreatorID string    `json:"creator_id" gorm:"type:char(36);not null;uniqueIndex:ux_slot_creator_date_time,priority:1"`
	Date      string    `json:"date"       gorm:"type:char(10);not null;uniqueIndex:ux_slot_creator_date_time,priority:2"` // YYYY-MM-DD
	StartTime string    `json:"start_time" gorm:"type:char(5);not null;uniqueIndex:ux_slot_creator_date_time,priority:3"`  // HH:MM
	Purchased bool      `json:"purchased"  gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for AvailabilitySlot.
func (AvailabilitySlot) TableName() string { return "availability_slots" }

// Plan is a creator's subscription tier, matched by provider price id when
// subscription events arrive.
type Plan struct {
	ID            string    `json:"id"         gorm:"type:char(36);primaryKey"`
	CreatorID     string    `json:"creator_id" gorm:"type:char(36);not null;index"`
	Name          string    `json:"name"       gorm:"type:varchar(255);not null"`
	StripePriceID string    `json:"-"          gorm:"type:varchar(255);not null;uniqueIndex"`
	PriceCents    int64     `json:"price"      gorm:"not null;default:0"`
	Currency      string    `json:"currency"   gorm:"type:varchar(3);not null;default:'brl'"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Plan.
func (Plan) TableName() string { return "plans" }
