package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/currency"

	"github.com/tbourn/creator-payments/internal/domain"
	"github.com/tbourn/creator-payments/internal/events"
	"github.com/tbourn/creator-payments/internal/observability"
	"github.com/tbourn/creator-payments/internal/payments"
	"github.com/tbourn/creator-payments/internal/repo"
	"github.com/tbourn/creator-payments/internal/utils"
)

// WithdrawalStore is the ledger access WithdrawalService needs.
type WithdrawalStore interface {
	GetCreator(ctx context.Context, id string) (*domain.CreatorProfile, error)
	ReservePayout(ctx context.Context, creatorID, key string, amountCents int64, currency string, now time.Time) (*domain.Payout, error)
	GetPayoutByKey(ctx context.Context, key string) (*domain.Payout, error)
	LatestInFlightPayout(ctx context.Context, creatorID string, since time.Time) (*domain.Payout, error)
	MarkPayoutFailed(ctx context.Context, id, reason string) error
	ResolvePayout(ctx context.Context, id, providerID, status string, arrival *time.Time) (*domain.Payout, error)
	ListPayoutsPage(ctx context.Context, creatorID string, offset, limit int) ([]domain.Payout, int64, error)
}

// WithdrawalRequest asks to move a creator's available balance to their bank.
type WithdrawalRequest struct {
	CreatorID      string
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	WithdrawAll    bool
}

// WithdrawalResult is the payout a request resolved to.
//
// Processing is set when the row is reserved but the provider has not
// answered yet. Deduped is set when the key had already produced a payout.
type WithdrawalResult struct {
	Payout     domain.Payout
	Processing bool
	Deduped    bool
}

// WithdrawalService reserves and submits creator payouts.
//
// A payout row is reserved under the caller's idempotency key before the
// provider is called, and the provider receives the same key. Retries with
// the same key therefore converge on one row and one provider payout.
type WithdrawalService struct {
	Store     WithdrawalStore
	Provider  payments.Provider
	Publisher events.Publisher

	Cooldown        time.Duration
	MinKeyLen       int
	DefaultCurrency string

	// Now is overridable in tests.
	Now func() time.Time
}

// Withdraw runs the reservation flow for req.
func (s *WithdrawalService) Withdraw(ctx context.Context, req WithdrawalRequest) (*WithdrawalResult, error) {
	tr := otel.Tracer("services/WithdrawalService")
	ctx, span := tr.Start(ctx, "Withdraw",
		trace.WithAttributes(
			attribute.String("creator.id", req.CreatorID),
			attribute.Bool("withdraw_all", req.WithdrawAll),
		),
	)
	defer span.End()

	log := zerolog.Ctx(ctx).With().Str("creator_id", req.CreatorID).Logger()
	ctx = log.WithContext(ctx)

	if req.CreatorID == "" {
		return nil, ErrUnauthenticated
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) < s.minKeyLen() {
		return nil, ErrInvalidKey
	}

	// A retried request observes the first result rather than its own cooldown.
	if existing, err := s.Store.GetPayoutByKey(ctx, key); err == nil {
		return s.replay(req.CreatorID, existing)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, internal(err)
	}

	cur, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}
	if !req.WithdrawAll && req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	creator, err := s.Store.GetCreator(ctx, req.CreatorID)
	if err != nil {
		return nil, lookupErr(err, ErrCreatorNotFound)
	}
	account := creator.ConnectedAccount()
	if account == "" {
		return nil, ErrNoConnectedAccount
	}

	now := s.now()
	if s.Cooldown > 0 {
		last, err := s.Store.LatestInFlightPayout(ctx, req.CreatorID, now.Add(-s.Cooldown))
		switch {
		case err == nil && last.IdempotencyKey == key:
			// A concurrent request with this key reserved it since the fast path.
			return s.replay(req.CreatorID, last)
		case err == nil:
			remaining := last.CreatedAt.Add(s.Cooldown).Sub(now)
			if remaining > 0 {
				observability.Payouts.WithLabelValues("cooldown").Inc()
				return nil, &CooldownError{Remaining: remaining, LastPayout: *last}
			}
		case !errors.Is(err, repo.ErrNotFound):
			return nil, internal(err)
		}
	}

	acct, err := s.Provider.GetAccount(ctx, account)
	if err != nil {
		return nil, upstream(err)
	}
	if !acct.PayoutsEnabled {
		return nil, ErrPayoutsDisabled
	}
	available, err := s.Provider.AvailableBalance(ctx, account, cur)
	if err != nil {
		return nil, upstream(err)
	}

	amount := req.AmountCents
	if req.WithdrawAll {
		if available <= 0 {
			return nil, ErrZeroBalance
		}
		amount = available
	} else if amount > available {
		return nil, ErrInsufficientBalance.withf("requested %d, available %d", amount, available)
	}

	reserved, err := s.Store.ReservePayout(ctx, req.CreatorID, key, amount, cur, now)
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost a race with a concurrent request carrying the same key.
		existing, gerr := s.Store.GetPayoutByKey(ctx, key)
		if gerr != nil {
			return nil, internal(gerr)
		}
		return s.replay(req.CreatorID, existing)
	}
	if err != nil {
		return nil, internal(err)
	}

	po, err := s.Provider.CreatePayout(ctx, payments.PayoutParams{
		Account:        account,
		Amount:         amount,
		Currency:       cur,
		IdempotencyKey: key,
		Metadata: map[string]string{
			"creator_id": req.CreatorID,
			"payout_id":  reserved.ID,
		},
	})
	// The reserved row must reach a terminal state even when the caller is gone.
	wctx := context.WithoutCancel(ctx)
	if err != nil {
		if merr := s.Store.MarkPayoutFailed(wctx, reserved.ID, err.Error()); merr != nil {
			log.Error().Err(merr).Str("payout_id", reserved.ID).Msg("could not mark payout failed")
		}
		observability.Payouts.WithLabelValues("failed").Inc()
		span.RecordError(err)
		log.Warn().Err(err).Str("payout_id", reserved.ID).Msg("provider rejected payout")
		s.publish(ctx, events.PayoutFailed, map[string]any{
			"payout_id":  reserved.ID,
			"creator_id": req.CreatorID,
			"amount":     amount,
			"currency":   cur,
			"reason":     err.Error(),
		})
		return nil, upstream(err)
	}

	status := po.Status
	if status == "" {
		status = domain.PayoutPending
	}
	resolved, err := s.Store.ResolvePayout(wctx, reserved.ID, po.ID, status, po.ArrivalDate)
	if err != nil {
		// The provider accepted it; a retry with the same key converges.
		return nil, internal(err)
	}
	observability.Payouts.WithLabelValues("created").Inc()
	log.Info().Str("payout_id", resolved.ID).Int64("amount", amount).Str("currency", cur).Msg("payout created")
	s.publish(ctx, events.PayoutCreated, resolved)

	return &WithdrawalResult{Payout: *resolved}, nil
}

// replay answers a request whose key already has a reserved row.
func (s *WithdrawalService) replay(creatorID string, p *domain.Payout) (*WithdrawalResult, error) {
	if p.CreatorID != creatorID {
		return nil, ErrKeyReused
	}
	observability.Payouts.WithLabelValues("deduped").Inc()
	switch {
	case p.Resolved():
		return &WithdrawalResult{Payout: *p, Deduped: true}, nil
	case p.Status == domain.PayoutFailed:
		return nil, ErrPayoutFailed.withf("payout %s: %s", p.ID, p.FailureReason)
	default:
		return &WithdrawalResult{Payout: *p, Processing: true}, nil
	}
}

// PayoutPage is one page of a creator's payout history.
type PayoutPage struct {
	Items    []domain.Payout
	Page     int
	PageSize int
	Total    int64
}

// ListPayouts returns the creator's payouts, newest first.
func (s *WithdrawalService) ListPayouts(ctx context.Context, creatorID string, page, pageSize int) (*PayoutPage, error) {
	if creatorID == "" {
		return nil, ErrUnauthenticated
	}
	page, pageSize = utils.ClampPage(page, pageSize)
	items, total, err := s.Store.ListPayoutsPage(ctx, creatorID, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, internal(err)
	}
	return &PayoutPage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

func (s *WithdrawalService) currency(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		code = s.DefaultCurrency
	}
	if code == "" {
		return "", ErrInvalidCurrency
	}
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return "", ErrInvalidCurrency.with(err)
	}
	return strings.ToLower(unit.String()), nil
}

func (s *WithdrawalService) publish(ctx context.Context, key string, body any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishJSON(ctx, key, body); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("routing_key", key).Msg("event publish failed")
	}
}

func (s *WithdrawalService) minKeyLen() int {
	if s.MinKeyLen > 0 {
		return s.MinKeyLen
	}
	return 16
}

func (s *WithdrawalService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
