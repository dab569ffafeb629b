// Package payments wraps the hosted payment provider behind a narrow
// interface. Services never see provider SDK types: checkout, payout,
// balance, and webhook payloads are converted into the plain structs below.
//
// All amounts are minor units (cents). Currency codes are lowercase ISO-4217.
package payments

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidSignature is returned by ParseEvent when the payload cannot be
// authenticated against the webhook secret.
var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

// Checkout session modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// CheckoutParams describes a hosted checkout to open on a connected account.
//
// Exactly one of PriceID or (UnitAmount, Currency, ProductName) is used for
// the single line item.
type CheckoutParams struct {
	Account           string
	Mode              string
	PriceID           string
	UnitAmount        int64
	Currency          string
	ProductName       string
	ApplicationFee    int64
	FeePercent        float64
	ClientReferenceID string
	CustomerID        string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

// CheckoutSession is the subset of a created session the service returns.
type CheckoutSession struct {
	ID  string
	URL string
}

// Price is a provider price object.
type Price struct {
	ID         string
	UnitAmount int64
	Currency   string
	Recurring  bool
}

// PaymentIntent carries the realized amounts of a settled payment.
type PaymentIntent struct {
	ID             string
	Amount         int64
	ApplicationFee int64
	Currency       string
	Status         string
}

// Subscription is a provider subscription flattened to what the ledger
// mirrors. PriceID is the price of the first item.
type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	PriceID            string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	Metadata           map[string]string
}

// Account is a connected merchant account.
type Account struct {
	ID             string
	PayoutsEnabled bool
	ChargesEnabled bool
}

// PayoutParams requests a payout from a connected account's balance.
type PayoutParams struct {
	Account        string
	Amount         int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// Payout is the provider's answer to a payout request.
type Payout struct {
	ID          string
	Status      string
	Amount      int64
	Currency    string
	ArrivalDate *time.Time
}

// Provider is everything the services need from the payment provider.
// Account-scoped calls take the connected account id; an empty account means
// the platform account.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	GetPrice(ctx context.Context, account, priceID string) (*Price, error)
	CreateProductPrice(ctx context.Context, account, name string, unitAmount int64, currency string) (*Price, error)
	GetPaymentIntent(ctx context.Context, account, id string) (*PaymentIntent, error)
	GetSubscription(ctx context.Context, account, id string) (*Subscription, error)
	GetAccount(ctx context.Context, account string) (*Account, error)
	AvailableBalance(ctx context.Context, account, currency string) (int64, error)
	CreatePayout(ctx context.Context, p PayoutParams) (*Payout, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}
