// Package paymentstest provides an in-memory payments.Provider for tests.
package paymentstest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/creator-payments/internal/payments"
)

// ValidSignature is the only signature Fake.ParseEvent accepts.
const ValidSignature = "t=0,v1=fake"

// Fake is a concurrency-safe in-memory provider. Payouts are deduplicated by
// idempotency key the way the real provider does it.
type Fake struct {
	mu sync.Mutex

	Accounts       map[string]*payments.Account
	Balances       map[string]int64 // "<account>/<currency>"
	Prices         map[string]*payments.Price
	PaymentIntents map[string]*payments.PaymentIntent
	Subscriptions  map[string]*payments.Subscription

	Sessions      []payments.CheckoutParams
	CreatedPrices []payments.Price
	PayoutCalls   int
	payouts       map[string]*payments.Payout

	CheckoutErr error
	PayoutErr   error
	BalanceErr  error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Accounts:       map[string]*payments.Account{},
		Balances:       map[string]int64{},
		Prices:         map[string]*payments.Price{},
		PaymentIntents: map[string]*payments.PaymentIntent{},
		Subscriptions:  map[string]*payments.Subscription{},
		payouts:        map[string]*payments.Payout{},
	}
}

// SetBalance sets the available balance of account in currency.
func (f *Fake) SetBalance(account, currency string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[account+"/"+strings.ToLower(currency)] = amount
}

// SessionCount returns how many checkout sessions were created.
func (f *Fake) SessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sessions)
}

// UniquePayouts returns how many distinct provider payouts exist.
func (f *Fake) UniquePayouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payouts)
}

func (f *Fake) CreateCheckoutSession(_ context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CheckoutErr != nil {
		return nil, f.CheckoutErr
	}
	f.Sessions = append(f.Sessions, p)
	id := fmt.Sprintf("cs_test_%d", len(f.Sessions))
	return &payments.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (f *Fake) GetPrice(_ context.Context, _, priceID string) (*payments.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.Prices[priceID]
	if !ok {
		return nil, fmt.Errorf("no such price: %s", priceID)
	}
	cp := *pr
	return &cp, nil
}

func (f *Fake) CreateProductPrice(_ context.Context, _, _ string, unitAmount int64, currency string) (*payments.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr := payments.Price{
		ID:         fmt.Sprintf("price_test_%d", len(f.CreatedPrices)+1),
		UnitAmount: unitAmount,
		Currency:   strings.ToLower(currency),
	}
	f.CreatedPrices = append(f.CreatedPrices, pr)
	f.Prices[pr.ID] = &pr
	cp := pr
	return &cp, nil
}

func (f *Fake) GetPaymentIntent(_ context.Context, _, id string) (*payments.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pi, ok := f.PaymentIntents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment_intent: %s", id)
	}
	cp := *pi
	return &cp, nil
}

func (f *Fake) GetSubscription(_ context.Context, _, id string) (*payments.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	cp := *s
	return &cp, nil
}

func (f *Fake) GetAccount(_ context.Context, account string) (*payments.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.Accounts[account]
	if !ok {
		return nil, fmt.Errorf("no such account: %s", account)
	}
	cp := *a
	return &cp, nil
}

func (f *Fake) AvailableBalance(_ context.Context, account, currency string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BalanceErr != nil {
		return 0, f.BalanceErr
	}
	return f.Balances[account+"/"+strings.ToLower(currency)], nil
}

func (f *Fake) CreatePayout(_ context.Context, p payments.PayoutParams) (*payments.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PayoutCalls++
	if f.PayoutErr != nil {
		return nil, f.PayoutErr
	}
	if po, ok := f.payouts[p.IdempotencyKey]; ok {
		cp := *po
		return &cp, nil
	}
	arrival := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	po := &payments.Payout{
		ID:          fmt.Sprintf("po_test_%d", len(f.payouts)+1),
		Status:      "pending",
		Amount:      p.Amount,
		Currency:    strings.ToLower(p.Currency),
		ArrivalDate: &arrival,
	}
	f.payouts[p.IdempotencyKey] = po
	cp := *po
	return &cp, nil
}

// ParseEvent accepts payloads that are a JSON-encoded payments.Event and
// carry ValidSignature.
func (f *Fake) ParseEvent(payload []byte, signature string) (*payments.Event, error) {
	if signature != ValidSignature {
		return nil, payments.ErrInvalidSignature
	}
	var ev payments.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, errors.Join(payments.ErrInvalidSignature, err)
	}
	return &ev, nil
}

// EncodeEvent renders ev as a payload Fake.ParseEvent understands.
func EncodeEvent(ev *payments.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}

var _ payments.Provider = (*Fake)(nil)
