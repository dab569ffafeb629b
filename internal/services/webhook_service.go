// Package services – WebhookService
//
// WebhookService applies verified provider events to the ledger exactly once.
// Per event the flow is:
//
//	verify → already processed? → dispatch → record processed
//
// The processed-event row is written only after every side effect succeeded,
// so a failure anywhere leaves the event retryable. Each side effect is itself
// safe to repeat: transactions upsert on the payment intent, purchases insert
// or ignore, slots are claimed by conditional update, and subscriptions
// upsert on (client, creator). No process-local locks are taken.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/tbourn/creator-payments/internal/domain"
	"github.com/tbourn/creator-payments/internal/events"
	"github.com/tbourn/creator-payments/internal/observability"
	"github.com/tbourn/creator-payments/internal/payments"
	"github.com/tbourn/creator-payments/internal/repo"
)

// WebhookStore is the ledger access WebhookService needs.
type WebhookStore interface {
	HasProcessedEvent(ctx context.Context, eventID string) (bool, error)
	RecordProcessedEvent(ctx context.Context, eventID, eventType string) error

	GetCreator(ctx context.Context, id string) (*domain.CreatorProfile, error)
	GetSlot(ctx context.Context, id string) (*domain.AvailabilitySlot, error)
	GetSlotAt(ctx context.Context, creatorID, date, startTime string) (*domain.AvailabilitySlot, error)
	ClaimSlot(ctx context.Context, id string) (bool, error)
	ReleaseSlot(ctx context.Context, id string) error
	ListConfirmedCalls(ctx context.Context, creatorID, date string) ([]domain.Call, error)

	UpsertTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error)
	CreatePackPurchase(ctx context.Context, p *domain.PackPurchase) (bool, error)
	CreateLiveTicket(ctx context.Context, lt *domain.LiveTicket) (bool, error)
	CreateCall(ctx context.Context, c *domain.Call) error

	GetPlanByPrice(ctx context.Context, priceID string) (*domain.Plan, error)
	UpsertSubscription(ctx context.Context, s *domain.Subscription) (*domain.Subscription, error)
	SetSubscriptionStatus(ctx context.Context, providerID, status string, cancelledAt *time.Time) (int64, error)
	SetBuyerCustomerID(ctx context.Context, buyerID, customerID string) error
}

// Outcome reports what happened to a delivered event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
)

// WebhookService processes provider webhooks.
type WebhookService struct {
	Store     WebhookStore
	Provider  payments.Provider
	Publisher events.Publisher

	SlotMinutes int
}

// pending is a bus message queued during dispatch and sent once the event is
// recorded.
type pending struct {
	key  string
	body any
}

// Handle verifies payload against signature and applies the event.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	ev, err := s.Provider.ParseEvent(payload, signature)
	if err != nil {
		observability.WebhookEvents.WithLabelValues("unverified", "invalid_signature").Inc()
		return "", ErrInvalidSignature.with(err)
	}
	return s.Process(ctx, ev)
}

// Process applies an already verified event.
func (s *WebhookService) Process(ctx context.Context, ev *payments.Event) (Outcome, error) {
	tr := otel.Tracer("services/WebhookService")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(
			attribute.String("event.id", ev.ID),
			attribute.String("event.type", ev.RawType),
		),
	)
	defer span.End()

	log := zerolog.Ctx(ctx).With().Str("event_id", ev.ID).Str("event_type", ev.RawType).Logger()
	ctx = log.WithContext(ctx)
	label := ev.Type.String()

	seen, err := s.Store.HasProcessedEvent(ctx, ev.ID)
	if err != nil {
		observability.WebhookEvents.WithLabelValues(label, "failed").Inc()
		return "", internal(err)
	}
	if seen {
		log.Debug().Msg("event already processed")
		observability.WebhookEvents.WithLabelValues(label, string(OutcomeDuplicate)).Inc()
		return OutcomeDuplicate, nil
	}

	var out []pending
	if err := s.dispatch(ctx, ev, &out); err != nil {
		log.Error().Err(err).Msg("webhook processing failed")
		span.RecordError(err)
		observability.WebhookEvents.WithLabelValues(label, "failed").Inc()
		return "", err
	}

	if err := s.Store.RecordProcessedEvent(ctx, ev.ID, ev.RawType); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// A concurrent delivery applied and recorded it first.
			observability.WebhookEvents.WithLabelValues(label, string(OutcomeDuplicate)).Inc()
			return OutcomeDuplicate, nil
		}
		observability.WebhookEvents.WithLabelValues(label, "failed").Inc()
		return "", internal(err)
	}
	observability.WebhookEvents.WithLabelValues(label, string(OutcomeApplied)).Inc()

	s.publish(ctx, out)
	return OutcomeApplied, nil
}

func (s *WebhookService) dispatch(ctx context.Context, ev *payments.Event, out *[]pending) error {
	switch ev.Type {
	case payments.EventCheckoutCompleted:
		co := ev.Checkout
		if co == nil {
			return ErrWebhookUnresolved.withf("checkout payload missing")
		}
		if !co.Paid() {
			zerolog.Ctx(ctx).Info().Str("payment_status", co.PaymentStatus).Msg("checkout not paid; skipping")
			return nil
		}
		switch co.Mode {
		case payments.ModeSubscription:
			return s.checkoutSubscription(ctx, ev.Account, co, out)
		case payments.ModePayment:
			return s.checkoutPayment(ctx, co, out)
		}
		return nil

	case payments.EventSubscriptionCreated, payments.EventSubscriptionUpdated:
		if ev.Subscription == nil {
			return ErrWebhookUnresolved.withf("subscription payload missing")
		}
		return s.syncSubscription(ctx, ev.Subscription, "", "", out)

	case payments.EventSubscriptionDeleted:
		if ev.Subscription == nil {
			return ErrWebhookUnresolved.withf("subscription payload missing")
		}
		at := time.Now().UTC()
		if ev.Subscription.CanceledAt != nil {
			at = *ev.Subscription.CanceledAt
		}
		return s.setSubscriptionStatus(ctx, ev.Subscription.ID, domain.SubscriptionCancelled, &at)

	case payments.EventInvoicePaid:
		if ev.Invoice == nil || ev.Invoice.SubscriptionID == "" {
			return nil
		}
		sub, err := s.Provider.GetSubscription(ctx, ev.Account, ev.Invoice.SubscriptionID)
		if err != nil {
			return upstream(err)
		}
		return s.syncSubscription(ctx, sub, "", "", out)

	case payments.EventInvoicePaymentFailed:
		if ev.Invoice == nil || ev.Invoice.SubscriptionID == "" {
			return nil
		}
		return s.setSubscriptionStatus(ctx, ev.Invoice.SubscriptionID, domain.SubscriptionPastDue, nil)

	case payments.EventUnknown:
		return nil
	}
	return nil
}

// checkoutPayment is the money-movement path for one-time payments.
func (s *WebhookService) checkoutPayment(ctx context.Context, co *payments.CheckoutCompleted, out *[]pending) error {
	md := co.Metadata
	productID := md["product_id"]
	creatorID := md["creator_id"]
	buyerID := firstNonEmpty(co.ClientReferenceID, md["buyer_id"])
	if productID == "" || creatorID == "" || buyerID == "" {
		return ErrWebhookUnresolved.withf("session %s: incomplete metadata", co.SessionID)
	}
	pt, ok := domain.ParseProductType(md["product_type"])
	if !ok || pt == domain.ProductSubscription {
		return ErrWebhookUnresolved.withf("session %s: product type %q", co.SessionID, md["product_type"])
	}
	if co.PaymentIntentID == "" {
		return ErrWebhookUnresolved.withf("session %s: no payment intent", co.SessionID)
	}

	creator, err := s.Store.GetCreator(ctx, creatorID)
	if err != nil {
		return lookupErr(err, ErrWebhookUnresolved.withf("creator %s", creatorID))
	}
	account := creator.ConnectedAccount()
	if account == "" {
		return ErrWebhookUnresolved.withf("creator %s has no connected account", creatorID)
	}

	// The realized fee lives on the payment intent of the connected account.
	pi, err := s.Provider.GetPaymentIntent(ctx, account, co.PaymentIntentID)
	if err != nil {
		return upstream(err)
	}

	gross := co.AmountTotal
	if gross == 0 {
		gross = pi.Amount
	}
	currency := strings.ToLower(firstNonEmpty(co.Currency, pi.Currency))
	fee, share := payments.Split(gross, pi.ApplicationFee)

	meta, _ := json.Marshal(map[string]any{"session_id": co.SessionID, "metadata": md})
	txn, err := s.Store.UpsertTransaction(ctx, &domain.Transaction{
		PaymentIntentID:   co.PaymentIntentID,
		BuyerID:           buyerID,
		CreatorID:         creatorID,
		ProductType:       pt,
		ProductID:         productID,
		GrossCents:        gross,
		PlatformFeeCents:  fee,
		CreatorShareCents: share,
		Currency:          currency,
		Status:            domain.StatusCompleted,
		Metadata:          datatypes.JSON(meta),
	})
	if err != nil {
		return internal(err)
	}

	switch pt {
	case domain.ProductPack:
		created, err := s.Store.CreatePackPurchase(ctx, &domain.PackPurchase{
			BuyerID:           buyerID,
			PackID:            productID,
			CreatorID:         creatorID,
			TransactionID:     txn.ID,
			PaymentIntentID:   co.PaymentIntentID,
			AmountCents:       gross,
			PlatformFeeCents:  fee,
			CreatorShareCents: share,
			Currency:          currency,
		})
		if err != nil {
			return internal(err)
		}
		if created {
			*out = append(*out, pending{events.PackPurchased, txn})
		}
		return nil

	case domain.ProductLiveTicket:
		created, err := s.Store.CreateLiveTicket(ctx, &domain.LiveTicket{
			BuyerID:           buyerID,
			LiveStreamID:      productID,
			CreatorID:         creatorID,
			TransactionID:     txn.ID,
			PaymentIntentID:   co.PaymentIntentID,
			AmountCents:       gross,
			PlatformFeeCents:  fee,
			CreatorShareCents: share,
			Currency:          currency,
		})
		if err != nil {
			return internal(err)
		}
		if created {
			*out = append(*out, pending{events.LiveTicketPurchased, txn})
		}
		return nil

	case domain.ProductVideoCall:
		return s.bookCall(ctx, callBooking{
			slotID:          productID,
			creatorID:       creatorID,
			buyerID:         buyerID,
			duration:        md["duration"],
			priceCents:      gross,
			currency:        currency,
			paymentIntentID: co.PaymentIntentID,
		}, out)
	}
	return nil
}

type callBooking struct {
	slotID, creatorID, buyerID string
	duration                   string
	priceCents                 int64
	currency                   string
	paymentIntentID            string
}

// bookCall claims the slot and records the call. Losing the claim to a booked
// call is not an error. A failed Call insert releases every slot claimed here,
// on a context that outlives the request.
func (s *WebhookService) bookCall(ctx context.Context, b callBooking, out *[]pending) error {
	log := zerolog.Ctx(ctx)

	duration := 30
	if b.duration != "" {
		d, err := strconv.Atoi(b.duration)
		if err != nil || !validDuration(d) {
			return ErrWebhookUnresolved.withf("invalid call duration %q", b.duration)
		}
		duration = d
	}

	slot, err := s.Store.GetSlot(ctx, b.slotID)
	if err != nil {
		return lookupErr(err, ErrWebhookUnresolved.withf("slot %s", b.slotID))
	}
	if slot.CreatorID != b.creatorID {
		return ErrWebhookUnresolved.withf("slot %s does not belong to creator %s", b.slotID, b.creatorID)
	}

	won, err := s.Store.ClaimSlot(ctx, slot.ID)
	if err != nil {
		return internal(err)
	}
	if !won {
		booked, err := s.slotBooked(ctx, slot)
		if err != nil {
			return internal(err)
		}
		if !booked {
			// Claimed but no call holds it: a rollback never landed. Fail so
			// the event stays retryable and visible.
			observability.SlotClaims.WithLabelValues("orphaned").Inc()
			log.Error().Str("slot_id", slot.ID).Str("payment_intent", b.paymentIntentID).
				Msg("slot claimed without a booked call")
			return ErrInternal.withf("slot %s claimed without a booked call", slot.ID)
		}
		observability.SlotClaims.WithLabelValues("lost").Inc()
		log.Warn().Str("slot_id", slot.ID).Str("payment_intent", b.paymentIntentID).
			Msg("slot already claimed; skipping call booking")
		return nil
	}
	observability.SlotClaims.WithLabelValues("won").Inc()

	var second *domain.AvailabilitySlot
	if step := s.slotMinutes(); duration > step {
		second = s.claimFollowing(ctx, slot, step)
	}

	call := &domain.Call{
		CreatorID:       b.creatorID,
		BuyerID:         b.buyerID,
		SlotID:          slot.ID,
		Date:            slot.Date,
		StartTime:       slot.StartTime,
		DurationMinutes: duration,
		PriceCents:      b.priceCents,
		Currency:        b.currency,
		PaymentIntentID: b.paymentIntentID,
		Status:          domain.CallConfirmed,
	}
	if err := s.Store.CreateCall(ctx, call); err != nil {
		rctx := context.WithoutCancel(ctx)
		s.release(rctx, slot.ID)
		if second != nil {
			s.release(rctx, second.ID)
		}
		return internal(err)
	}

	*out = append(*out, pending{events.CallConfirmed, call})
	return nil
}

// claimFollowing best-effort claims the slot right after first. Failure is
// logged and tolerated: ownership hinges on the primary slot.
func (s *WebhookService) claimFollowing(ctx context.Context, first *domain.AvailabilitySlot, step int) *domain.AvailabilitySlot {
	log := zerolog.Ctx(ctx)
	nextStart, ok := followingSlot(first.StartTime, step)
	if !ok {
		log.Warn().Str("slot_id", first.ID).Msg("no following slot on the same day")
		return nil
	}
	next, err := s.Store.GetSlotAt(ctx, first.CreatorID, first.Date, nextStart)
	if err != nil {
		log.Warn().Err(err).Str("slot_id", first.ID).Str("next_start", nextStart).Msg("following slot lookup failed")
		return nil
	}
	won, err := s.Store.ClaimSlot(ctx, next.ID)
	if err != nil || !won {
		log.Warn().Err(err).Str("slot_id", next.ID).Msg("following slot could not be claimed")
		return nil
	}
	observability.SlotClaims.WithLabelValues("won").Inc()
	return next
}

// slotBooked reports whether a confirmed call occupies slot, either booked on
// it directly or running over it from an earlier start.
func (s *WebhookService) slotBooked(ctx context.Context, slot *domain.AvailabilitySlot) (bool, error) {
	calls, err := s.Store.ListConfirmedCalls(ctx, slot.CreatorID, slot.Date)
	if err != nil {
		return false, err
	}
	at, err := time.Parse(slotTimeLayout, slot.StartTime)
	if err != nil {
		return false, err
	}
	for _, c := range calls {
		if c.SlotID == slot.ID {
			return true, nil
		}
		start, err := time.Parse(slotTimeLayout, c.StartTime)
		if err != nil {
			continue
		}
		end := start.Add(time.Duration(c.DurationMinutes) * time.Minute)
		if !at.Before(start) && at.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *WebhookService) release(ctx context.Context, slotID string) {
	if err := s.Store.ReleaseSlot(ctx, slotID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("slot_id", slotID).Msg("slot release failed")
		return
	}
	observability.SlotClaims.WithLabelValues("released").Inc()
}

// checkoutSubscription records the buyer's customer id and mirrors the new
// subscription.
func (s *WebhookService) checkoutSubscription(ctx context.Context, account string, co *payments.CheckoutCompleted, out *[]pending) error {
	buyerID := firstNonEmpty(co.ClientReferenceID, co.Metadata["buyer_id"])
	if buyerID == "" {
		return ErrWebhookUnresolved.withf("session %s: no buyer reference", co.SessionID)
	}
	if co.SubscriptionID == "" {
		return ErrWebhookUnresolved.withf("session %s: no subscription", co.SessionID)
	}
	if co.CustomerID != "" {
		if err := s.Store.SetBuyerCustomerID(ctx, buyerID, co.CustomerID); err != nil {
			return internal(err)
		}
	}

	creatorID := co.Metadata["creator_id"]
	if account == "" && creatorID != "" {
		creator, err := s.Store.GetCreator(ctx, creatorID)
		if err != nil {
			return lookupErr(err, ErrWebhookUnresolved.withf("creator %s", creatorID))
		}
		account = creator.ConnectedAccount()
	}

	sub, err := s.Provider.GetSubscription(ctx, account, co.SubscriptionID)
	if err != nil {
		return upstream(err)
	}
	return s.syncSubscription(ctx, sub, buyerID, creatorID, out)
}

// syncSubscription upserts the local mirror of sub. A price that matches no
// plan, or a subscription with no known buyer, is logged and skipped.
func (s *WebhookService) syncSubscription(ctx context.Context, sub *payments.Subscription, buyerID, creatorID string, out *[]pending) error {
	log := zerolog.Ctx(ctx).With().Str("subscription_id", sub.ID).Logger()

	plan, err := s.Store.GetPlanByPrice(ctx, sub.PriceID)
	if errors.Is(err, repo.ErrNotFound) {
		log.Warn().Str("price_id", sub.PriceID).Msg("no plan for subscription price; skipping")
		return nil
	}
	if err != nil {
		return internal(err)
	}

	clientID := firstNonEmpty(buyerID, sub.Metadata["buyer_id"])
	if clientID == "" {
		log.Warn().Msg("subscription has no buyer reference; skipping")
		return nil
	}
	creatorID = firstNonEmpty(creatorID, sub.Metadata["creator_id"], plan.CreatorID)

	status := subscriptionStatus(sub.Status)
	row := &domain.Subscription{
		ClientID:             clientID,
		CreatorID:            creatorID,
		PlanID:               plan.ID,
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     sub.CustomerID,
		Status:               status,
		CurrentPeriodStart:   sub.CurrentPeriodStart,
		CurrentPeriodEnd:     sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if status == domain.SubscriptionCancelled {
		row.CancelledAt = sub.CanceledAt
	}
	stored, err := s.Store.UpsertSubscription(ctx, row)
	if err != nil {
		return internal(err)
	}
	*out = append(*out, pending{events.SubscriptionSynced, stored})
	return nil
}

func (s *WebhookService) setSubscriptionStatus(ctx context.Context, providerID, status string, at *time.Time) error {
	n, err := s.Store.SetSubscriptionStatus(ctx, providerID, status, at)
	if err != nil {
		return internal(err)
	}
	if n == 0 {
		zerolog.Ctx(ctx).Warn().Str("subscription_id", providerID).Str("status", status).
			Msg("subscription unknown locally; nothing to update")
	}
	return nil
}

func (s *WebhookService) publish(ctx context.Context, out []pending) {
	if s.Publisher == nil {
		return
	}
	for _, p := range out {
		if err := s.Publisher.PublishJSON(ctx, p.key, p.body); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("routing_key", p.key).Msg("event publish failed")
		}
	}
}

func (s *WebhookService) slotMinutes() int {
	if s.SlotMinutes > 0 {
		return s.SlotMinutes
	}
	return 30
}

// subscriptionStatus maps provider states onto the ledger's closed set.
func subscriptionStatus(provider string) string {
	switch provider {
	case "active", "trialing":
		return domain.SubscriptionActive
	case "past_due", "unpaid":
		return domain.SubscriptionPastDue
	case "canceled":
		return domain.SubscriptionCancelled
	case "incomplete_expired":
		return domain.SubscriptionExpired
	default:
		return domain.SubscriptionPending
	}
}
