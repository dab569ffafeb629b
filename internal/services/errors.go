// Package services holds the payment and booking business logic: opening
// checkouts, applying provider webhooks, and reserving creator payouts.
// This file defines the error taxonomy every service returns.
//
// Each failure carries a Kind from a closed set. Handlers map kinds to HTTP
// statuses and use Code as the stable machine-readable error code.
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tbourn/creator-payments/internal/domain"
)

// Kind classifies a service failure.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindInvalidRequest
	KindNotConfigured
	KindConflict
	KindUpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotConfigured:
		return "not_configured"
	case KindConflict:
		return "conflict"
	case KindUpstreamFailure:
		return "upstream_failure"
	default:
		return "internal"
	}
}

// Error is a classified service failure. Msg is safe to show to end users.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so wrapped copies of a sentinel still
// satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// with returns a copy of e wrapping cause.
func (e *Error) with(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// withf returns a copy of e with a formatted cause.
func (e *Error) withf(format string, args ...any) *Error {
	return e.with(fmt.Errorf(format, args...))
}

var (
	ErrUnauthenticated = newErr(KindUnauthenticated, "unauthenticated", "authentication required")

	ErrMissingFields       = newErr(KindInvalidRequest, "missing_fields", "creator_id, product_id and product_type are required")
	ErrInvalidProductType  = newErr(KindInvalidRequest, "invalid_product_type", "unsupported product type")
	ErrInvalidDuration     = newErr(KindInvalidRequest, "invalid_duration", "duration must be 30 or 60 minutes")
	ErrPriceRequired       = newErr(KindInvalidRequest, "price_required", "this product has no price configured")
	ErrCreatorNotFound     = newErr(KindInvalidRequest, "creator_not_found", "creator not found")
	ErrProductNotFound     = newErr(KindInvalidRequest, "product_not_found", "product not found")
	ErrSlotNotFound        = newErr(KindInvalidRequest, "slot_not_found", "time slot not found")
	ErrInvalidKey          = newErr(KindInvalidRequest, "invalid_idempotency_key", "idempotency key is missing or too short")
	ErrInvalidAmount       = newErr(KindInvalidRequest, "invalid_amount", "amount must be greater than zero")
	ErrInvalidCurrency     = newErr(KindInvalidRequest, "invalid_currency", "currency must be an ISO-4217 code")
	ErrInvalidSignature    = newErr(KindInvalidRequest, "invalid_signature", "webhook signature verification failed")
	ErrWebhookUnresolved   = newErr(KindInvalidRequest, "webhook_failed", "webhook references unknown data")
	ErrNoConnectedAccount  = newErr(KindNotConfigured, "no_connected_account", "creator has no connected payout account")
	ErrNoCallPricing       = newErr(KindNotConfigured, "call_pricing_missing", "creator has no video call rate for this duration")
	ErrPayoutsDisabled     = newErr(KindNotConfigured, "payouts_disabled", "payouts are not enabled for this account")
	ErrSlotTaken           = newErr(KindConflict, "slot_taken", "this time slot is already booked")
	ErrNextSlotUnavailable = newErr(KindConflict, "next_slot_unavailable", "a 60 minute call needs the following slot to be free")
	ErrScheduleOverlap     = newErr(KindConflict, "schedule_overlap", "the creator is busy at this time")
	ErrCooldownActive      = newErr(KindConflict, "cooldown_active", "a recent withdrawal is still being processed")
	ErrZeroBalance         = newErr(KindConflict, "no_balance", "there is no available balance to withdraw")
	ErrInsufficientBalance = newErr(KindConflict, "insufficient_balance", "requested amount exceeds the available balance")
	ErrKeyReused           = newErr(KindConflict, "idempotency_key_conflict", "idempotency key was already used for another request")
	ErrPayoutFailed        = newErr(KindConflict, "payout_failed", "this withdrawal failed; retry with a new idempotency key")
	ErrUpstream            = newErr(KindUpstreamFailure, "upstream_failure", "payment provider request failed")
	ErrInternal            = newErr(KindInternal, "internal", "internal error")
)

// upstream classifies a provider failure.
func upstream(err error) error { return ErrUpstream.with(err) }

// internal classifies a ledger failure.
func internal(err error) error { return ErrInternal.with(err) }

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the stable error code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal.Code
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ErrInternal.Msg
}

// CooldownError rejects a withdrawal while an earlier one is in flight.
type CooldownError struct {
	Remaining  time.Duration
	LastPayout domain.Payout
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("withdrawal cooldown active: %d minutes remaining", e.RemainingMinutes())
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// RemainingMinutes is the remaining cooldown rounded up to whole minutes.
func (e *CooldownError) RemainingMinutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}
