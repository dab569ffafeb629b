package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// StripeProvider implements Provider on the Stripe API. Connected-account
// calls are made as direct charges via the Stripe-Account header.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider builds a provider with the default API backends.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	return NewStripeProviderWithBackends(secretKey, webhookSecret, nil)
}

// NewStripeProviderWithBackends builds a provider on explicit backends. Tests
// point these at an httptest server.
func NewStripeProviderWithBackends(secretKey, webhookSecret string, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
	}
}

func scope(ctx context.Context, p *stripe.Params, account string) {
	p.Context = ctx
	if account != "" {
		p.SetStripeAccount(account)
	}
}

func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(p.Mode),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.ClientReferenceID),
		Metadata:          p.Metadata,
	}

	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if p.PriceID != "" {
		item.Price = stripe.String(p.PriceID)
	} else {
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(p.Currency),
			UnitAmount: stripe.Int64(p.UnitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(p.ProductName),
			},
		}
	}
	params.LineItems = []*stripe.CheckoutSessionLineItemParams{item}

	if p.Mode == ModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: p.Metadata}
		if p.FeePercent > 0 {
			params.SubscriptionData.ApplicationFeePercent = stripe.Float64(p.FeePercent)
		}
		if p.CustomerID != "" {
			params.Customer = stripe.String(p.CustomerID)
		}
	} else {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(p.ApplicationFee),
			Metadata:             p.Metadata,
		}
	}
	scope(ctx, &params.Params, p.Account)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeProvider) GetPrice(ctx context.Context, account, priceID string) (*Price, error) {
	params := &stripe.PriceParams{}
	scope(ctx, &params.Params, account)
	pr, err := s.api.Prices.Get(priceID, params)
	if err != nil {
		return nil, err
	}
	return toPrice(pr), nil
}

func (s *StripeProvider) CreateProductPrice(ctx context.Context, account, name string, unitAmount int64, currency string) (*Price, error) {
	prodParams := &stripe.ProductParams{Name: stripe.String(name)}
	scope(ctx, &prodParams.Params, account)
	prod, err := s.api.Products.New(prodParams)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(prod.ID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(strings.ToLower(currency)),
	}
	scope(ctx, &priceParams.Params, account)
	pr, err := s.api.Prices.New(priceParams)
	if err != nil {
		return nil, fmt.Errorf("create price: %w", err)
	}
	return toPrice(pr), nil
}

func (s *StripeProvider) GetPaymentIntent(ctx context.Context, account, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	scope(ctx, &params.Params, account)
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{
		ID:             pi.ID,
		Amount:         pi.Amount,
		ApplicationFee: pi.ApplicationFeeAmount,
		Currency:       string(pi.Currency),
		Status:         string(pi.Status),
	}, nil
}

func (s *StripeProvider) GetSubscription(ctx context.Context, account, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	scope(ctx, &params.Params, account)
	sub, err := s.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return toSubscription(sub), nil
}

func (s *StripeProvider) GetAccount(ctx context.Context, account string) (*Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := s.api.Accounts.GetByID(account, params)
	if err != nil {
		return nil, err
	}
	return &Account{ID: acct.ID, PayoutsEnabled: acct.PayoutsEnabled, ChargesEnabled: acct.ChargesEnabled}, nil
}

// AvailableBalance returns the available balance in currency, or zero when
// the account holds none.
func (s *StripeProvider) AvailableBalance(ctx context.Context, account, currency string) (int64, error) {
	params := &stripe.BalanceParams{}
	scope(ctx, &params.Params, account)
	bal, err := s.api.Balance.Get(params)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, a := range bal.Available {
		if a != nil && strings.EqualFold(string(a.Currency), currency) {
			total += a.Amount
		}
	}
	return total, nil
}

func (s *StripeProvider) CreatePayout(ctx context.Context, p PayoutParams) (*Payout, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(strings.ToLower(p.Currency)),
		Metadata: p.Metadata,
	}
	scope(ctx, &params.Params, p.Account)
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	po, err := s.api.Payouts.New(params)
	if err != nil {
		return nil, err
	}
	return &Payout{
		ID:          po.ID,
		Status:      string(po.Status),
		Amount:      po.Amount,
		Currency:    string(po.Currency),
		ArrivalDate: unixTime(po.ArrivalDate),
	}, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the payload
// into an Event. Unhandled types return an Event with Type EventUnknown.
func (s *StripeProvider) ParseEvent(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(ev)
}

func decodeEvent(ev stripe.Event) (*Event, error) {
	out := &Event{
		ID:      ev.ID,
		RawType: string(ev.Type),
		Type:    ParseEventType(string(ev.Type)),
		Account: ev.Account,
	}
	if ev.Data == nil {
		if out.Type != EventUnknown {
			return nil, fmt.Errorf("event %s: missing data", ev.ID)
		}
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Checkout = toCheckout(&cs)
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = toSubscription(&sub)
	case EventInvoicePaid, EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.Invoice = &Invoice{ID: inv.ID}
		if inv.Subscription != nil {
			out.Invoice.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			out.Invoice.CustomerID = inv.Customer.ID
		}
	case EventUnknown:
	}
	return out, nil
}

func toCheckout(cs *stripe.CheckoutSession) *CheckoutCompleted {
	c := &CheckoutCompleted{
		SessionID:         cs.ID,
		Mode:              string(cs.Mode),
		PaymentStatus:     string(cs.PaymentStatus),
		ClientReferenceID: cs.ClientReferenceID,
		AmountTotal:       cs.AmountTotal,
		Currency:          string(cs.Currency),
		Metadata:          cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		c.PaymentIntentID = cs.PaymentIntent.ID
	}
	if cs.Subscription != nil {
		c.SubscriptionID = cs.Subscription.ID
	}
	if cs.Customer != nil {
		c.CustomerID = cs.Customer.ID
	}
	return c
}

func toSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         unixTime(sub.CanceledAt),
		Metadata:           sub.Metadata,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil {
		for _, it := range sub.Items.Data {
			if it != nil && it.Price != nil {
				out.PriceID = it.Price.ID
				break
			}
		}
	}
	return out
}

func toPrice(pr *stripe.Price) *Price {
	return &Price{
		ID:         pr.ID,
		UnitAmount: pr.UnitAmount,
		Currency:   string(pr.Currency),
		Recurring:  pr.Recurring != nil,
	}
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
