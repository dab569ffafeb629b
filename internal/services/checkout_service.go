// Package services – CheckoutService
//
// CheckoutService opens a hosted checkout for a pack, a live ticket, a video
// call, or a subscription plan. It validates the request, runs the video-call
// pre-flight (slot still free, no overlap with streams or other calls),
// resolves the unit price and the creator's connected account, and creates
// the session as a direct charge carrying the platform application fee.
//
// No purchase is recorded here. The webhook processor materializes it once
// the provider confirms payment. The pre-flight is advisory; the slot claim
// in the webhook path is what decides ownership.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/creator-payments/internal/domain"
	"github.com/tbourn/creator-payments/internal/observability"
	"github.com/tbourn/creator-payments/internal/payments"
	"github.com/tbourn/creator-payments/internal/repo"
)

// streamLookback bounds how long a stream may run for the overlap query.
const streamLookback = 24 * time.Hour

// CheckoutStore is the ledger access CheckoutService needs.
type CheckoutStore interface {
	GetCreator(ctx context.Context, id string) (*domain.CreatorProfile, error)
	GetPack(ctx context.Context, id, creatorID string) (*domain.Pack, error)
	SetPackPriceIfUnset(ctx context.Context, packID, priceID string) (string, error)
	GetLiveStream(ctx context.Context, id, creatorID string) (*domain.LiveStream, error)
	GetPlan(ctx context.Context, id, creatorID string) (*domain.Plan, error)
	GetSlot(ctx context.Context, id string) (*domain.AvailabilitySlot, error)
	GetSlotAt(ctx context.Context, creatorID, date, startTime string) (*domain.AvailabilitySlot, error)
	ListActiveStreams(ctx context.Context, creatorID string, from, to time.Time, lookback time.Duration) ([]domain.LiveStream, error)
	ListConfirmedCalls(ctx context.Context, creatorID, date string) ([]domain.Call, error)
}

// CheckoutRequest is a buyer's request to pay for one product.
// For video calls ProductID is the availability slot id.
type CheckoutRequest struct {
	BuyerID     string
	CreatorID   string
	ProductID   string
	ProductType string
	Duration    int
	SuccessURL  string
	CancelURL   string
}

// CheckoutResult is the opened session.
type CheckoutResult struct {
	SessionID   string
	URL         string
	ProductType domain.ProductType
	UnitAmount  int64
	PlatformFee int64
	Currency    string
}

// CheckoutService opens checkout sessions.
type CheckoutService struct {
	Store    CheckoutStore
	Provider payments.Provider

	FeePercent      int64
	DefaultCurrency string
	Location        *time.Location
	SlotMinutes     int
	SuccessURL      string
	CancelURL       string
}

// pricedItem is what a product resolves to before the session is built.
type pricedItem struct {
	priceID    string
	unitAmount int64
	currency   string
	name       string
	planID     string
}

// Create validates req, runs the pre-flight checks, and opens the session.
func (s *CheckoutService) Create(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	tr := otel.Tracer("services/CheckoutService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("buyer.id", req.BuyerID),
			attribute.String("creator.id", req.CreatorID),
			attribute.String("product.type", req.ProductType),
		),
	)
	defer span.End()

	if strings.TrimSpace(req.BuyerID) == "" {
		return nil, ErrUnauthenticated
	}
	req.CreatorID = strings.TrimSpace(req.CreatorID)
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.CreatorID == "" || req.ProductID == "" || strings.TrimSpace(req.ProductType) == "" {
		return nil, ErrMissingFields
	}
	pt, ok := domain.ParseProductType(strings.TrimSpace(req.ProductType))
	if !ok {
		return nil, ErrInvalidProductType.withf("%q", req.ProductType)
	}

	creator, err := s.Store.GetCreator(ctx, req.CreatorID)
	if err != nil {
		return nil, lookupErr(err, ErrCreatorNotFound)
	}

	// Products that must already carry a provider price.
	var (
		stream *domain.LiveStream
		plan   *domain.Plan
		pack   *domain.Pack
	)
	switch pt {
	case domain.ProductLiveTicket:
		if stream, err = s.Store.GetLiveStream(ctx, req.ProductID, creator.ID); err != nil {
			return nil, lookupErr(err, ErrProductNotFound)
		}
		if stream.StripePriceID == nil || *stream.StripePriceID == "" {
			return nil, ErrPriceRequired
		}
	case domain.ProductSubscription:
		if plan, err = s.Store.GetPlan(ctx, req.ProductID, creator.ID); err != nil {
			return nil, lookupErr(err, ErrProductNotFound)
		}
	case domain.ProductPack:
		if pack, err = s.Store.GetPack(ctx, req.ProductID, creator.ID); err != nil {
			return nil, lookupErr(err, ErrProductNotFound)
		}
	case domain.ProductVideoCall:
		if req.Duration == 0 {
			req.Duration = 30
		}
		if !validDuration(req.Duration) {
			return nil, ErrInvalidDuration
		}
		if err := s.preflightCall(ctx, creator.ID, req.ProductID, req.Duration); err != nil {
			return nil, err
		}
	}

	account := creator.ConnectedAccount()
	if account == "" {
		return nil, ErrNoConnectedAccount
	}

	var item *pricedItem
	switch pt {
	case domain.ProductVideoCall:
		item, err = s.callPrice(creator, req.Duration)
	case domain.ProductPack:
		item, err = s.packPrice(ctx, account, pack)
	case domain.ProductLiveTicket:
		item, err = s.storedPrice(ctx, account, *stream.StripePriceID)
	case domain.ProductSubscription:
		item, err = s.storedPrice(ctx, account, plan.StripePriceID)
		if item != nil {
			item.planID = plan.ID
		}
	}
	if err != nil {
		return nil, err
	}
	if item.currency == "" {
		item.currency = s.currencyFor(creator)
	}

	fee := payments.ApplicationFee(item.unitAmount, s.FeePercent)
	params := payments.CheckoutParams{
		Account:           account,
		Mode:              payments.ModePayment,
		PriceID:           item.priceID,
		UnitAmount:        item.unitAmount,
		Currency:          item.currency,
		ProductName:       item.name,
		ApplicationFee:    fee,
		ClientReferenceID: req.BuyerID,
		SuccessURL:        firstNonEmpty(req.SuccessURL, s.SuccessURL),
		CancelURL:         firstNonEmpty(req.CancelURL, s.CancelURL),
		Metadata: map[string]string{
			"product_id":   req.ProductID,
			"product_type": string(pt),
			"creator_id":   creator.ID,
			"buyer_id":     req.BuyerID,
		},
	}
	if pt == domain.ProductVideoCall {
		params.Metadata["duration"] = strconv.Itoa(req.Duration)
	}
	if pt == domain.ProductSubscription {
		params.Mode = payments.ModeSubscription
		params.FeePercent = float64(s.FeePercent)
		params.Metadata["plan_id"] = item.planID
	}

	sess, err := s.Provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("creator_id", creator.ID).
			Str("product_type", string(pt)).
			Msg("checkout session creation failed")
		return nil, upstream(err)
	}
	observability.CheckoutSessions.WithLabelValues(string(pt)).Inc()

	return &CheckoutResult{
		SessionID:   sess.ID,
		URL:         sess.URL,
		ProductType: pt,
		UnitAmount:  item.unitAmount,
		PlatformFee: fee,
		Currency:    item.currency,
	}, nil
}

// preflightCall rejects a call booking that is certain to fail: the slot or
// its follow-on slot is taken, or the window collides with a stream or call.
func (s *CheckoutService) preflightCall(ctx context.Context, creatorID, slotID string, duration int) error {
	slot, err := s.Store.GetSlot(ctx, slotID)
	if err != nil {
		return lookupErr(err, ErrSlotNotFound)
	}
	if slot.CreatorID != creatorID {
		return ErrSlotNotFound
	}
	if slot.Purchased {
		return ErrSlotTaken
	}

	step := s.slotMinutes()
	if duration > step {
		nextStart, ok := followingSlot(slot.StartTime, step)
		if !ok {
			return ErrNextSlotUnavailable
		}
		next, err := s.Store.GetSlotAt(ctx, creatorID, slot.Date, nextStart)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNextSlotUnavailable
		}
		if err != nil {
			return internal(err)
		}
		if next.Purchased {
			return ErrNextSlotUnavailable
		}
	}

	start, err := slotInstant(slot.Date, slot.StartTime, s.Location)
	if err != nil {
		return internal(err)
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	streams, err := s.Store.ListActiveStreams(ctx, creatorID, start, end, streamLookback)
	if err != nil {
		return internal(err)
	}
	for _, st := range streams {
		if overlaps(start, end, st.ScheduledAt, st.End()) {
			return ErrScheduleOverlap.withf("live stream %s", st.ID)
		}
	}

	calls, err := s.Store.ListConfirmedCalls(ctx, creatorID, slot.Date)
	if err != nil {
		return internal(err)
	}
	for _, c := range calls {
		cs, err := slotInstant(c.Date, c.StartTime, s.Location)
		if err != nil {
			continue
		}
		ce := cs.Add(time.Duration(c.DurationMinutes) * time.Minute)
		if overlaps(start, end, cs, ce) {
			return ErrScheduleOverlap.withf("call %s", c.ID)
		}
	}
	return nil
}

func (s *CheckoutService) callPrice(creator *domain.CreatorProfile, duration int) (*pricedItem, error) {
	rate := creator.CallPrice30Cents
	if duration == 60 {
		rate = creator.CallPrice60Cents
	}
	if rate <= 0 {
		return nil, ErrNoCallPricing
	}
	return &pricedItem{
		unitAmount: rate,
		currency:   s.currencyFor(creator),
		name:       "Video call (" + strconv.Itoa(duration) + " min)",
	}, nil
}

// packPrice reuses the pack's provider price, minting and persisting one on
// first checkout. When two checkouts race, the first persisted price wins.
func (s *CheckoutService) packPrice(ctx context.Context, account string, pack *domain.Pack) (*pricedItem, error) {
	if pack.StripePriceID != nil && *pack.StripePriceID != "" {
		return s.storedPrice(ctx, account, *pack.StripePriceID)
	}

	currency := strings.ToLower(firstNonEmpty(pack.Currency, s.DefaultCurrency))
	created, err := s.Provider.CreateProductPrice(ctx, account, pack.Title, pack.PriceCents, currency)
	if err != nil {
		return nil, upstream(err)
	}
	priceID, err := s.Store.SetPackPriceIfUnset(ctx, pack.ID, created.ID)
	if err != nil {
		return nil, internal(err)
	}
	if priceID != created.ID {
		zerolog.Ctx(ctx).Info().
			Str("pack_id", pack.ID).
			Str("price_id", priceID).
			Msg("pack price persisted by a concurrent checkout; reusing it")
	}
	return &pricedItem{priceID: priceID, unitAmount: pack.PriceCents, currency: currency, name: pack.Title}, nil
}

func (s *CheckoutService) storedPrice(ctx context.Context, account, priceID string) (*pricedItem, error) {
	pr, err := s.Provider.GetPrice(ctx, account, priceID)
	if err != nil {
		return nil, upstream(err)
	}
	return &pricedItem{priceID: pr.ID, unitAmount: pr.UnitAmount, currency: strings.ToLower(pr.Currency)}, nil
}

func (s *CheckoutService) currencyFor(c *domain.CreatorProfile) string {
	return strings.ToLower(firstNonEmpty(c.Currency, s.DefaultCurrency, "brl"))
}

func (s *CheckoutService) slotMinutes() int {
	if s.SlotMinutes > 0 {
		return s.SlotMinutes
	}
	return 30
}

// lookupErr maps a not-found lookup to notFound and anything else to an
// internal failure.
func lookupErr(err error, notFound *Error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return notFound
	}
	return internal(err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
