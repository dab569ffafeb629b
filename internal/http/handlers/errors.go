// Package handlers defines the HTTP endpoints of the payments API.
//
// This file holds the transport-level error codes and the mapping from
// service error kinds to HTTP statuses. Service errors already carry a stable
// code (services.CodeOf); the constants below cover failures detected in the
// transport itself.
//
// Example response:
//
//	{
//	  "success": false,
//	  "error": "this time slot is already booked",
//	  "code": "slot_taken",
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6"
//	}
package handlers

import (
	"net/http"

	"github.com/tbourn/creator-payments/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeUnavailable      = "unavailable"

	// ErrCodeWebhookFailed is returned for any webhook that could not be
	// applied for a reason the provider's redelivery may fix.
	ErrCodeWebhookFailed = "webhook_failed"
)

// statusFor maps a service error kind to an HTTP status.
func statusFor(k services.Kind) int {
	switch k {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindInvalidRequest:
		return http.StatusBadRequest
	case services.KindNotConfigured:
		return http.StatusUnprocessableEntity
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// webhookStatus maps webhook failures. Everything the provider should retry
// gets a non-2xx; bad signatures and unresolved references are 400.
func webhookStatus(err error) (int, string) {
	switch services.KindOf(err) {
	case services.KindInvalidRequest, services.KindNotConfigured:
		if code := services.CodeOf(err); code == services.ErrInvalidSignature.Code {
			return http.StatusBadRequest, code
		}
		return http.StatusBadRequest, ErrCodeWebhookFailed
	case services.KindUpstreamFailure:
		return http.StatusBadGateway, services.CodeOf(err)
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
