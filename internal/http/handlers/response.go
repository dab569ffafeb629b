package handlers

// Response helpers shared by every endpoint.
//
// Checkout, purchase and webhook failures use ErrorResponse. The payout
// endpoints answer with an "ok" flag instead of "success", so they use
// PayoutErrorResponse, which also carries the cooldown details.

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/creator-payments/internal/domain"
	"github.com/tbourn/creator-payments/internal/http/middleware"
	"github.com/tbourn/creator-payments/internal/services"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Success bool `json:"success" example:"false"`
	// Human-readable message, safe to show to users
	Error string `json:"error" example:"this time slot is already booked"`
	// Stable, machine-readable code
	Code string `json:"code" example:"slot_taken"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// PayoutErrorResponse is the error envelope of the payout endpoints.
type PayoutErrorResponse struct {
	OK        bool   `json:"ok" example:"false"`
	Error     string `json:"error" example:"a recent withdrawal is still being processed"`
	Code      string `json:"code" example:"cooldown_active"`
	RequestID string `json:"request_id,omitempty"`

	// Set only for cooldown rejections.
	CooldownMinutesRemaining *int           `json:"cooldown_minutes_remaining,omitempty" example:"25"`
	LastPayout               *domain.Payout `json:"last_payout,omitempty"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	logServerError(c, status, code, msg, nil)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success:   false,
		Error:     msg,
		Code:      code,
		RequestID: middleware.GetRequestID(c),
	})
}

// Fail is the exported variant of fail, used by the router for 404/405.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failService answers with the status, code and message of a service error.
// Internal causes are logged, never sent.
func failService(c *gin.Context, err error) {
	status := statusFor(services.KindOf(err))
	logServerError(c, status, services.CodeOf(err), services.MessageOf(err), err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success:   false,
		Error:     services.MessageOf(err),
		Code:      services.CodeOf(err),
		RequestID: middleware.GetRequestID(c),
	})
}

// failPayout is failService for the payout endpoints.
func failPayout(c *gin.Context, err error) {
	status := statusFor(services.KindOf(err))
	resp := PayoutErrorResponse{
		OK:        false,
		Error:     services.MessageOf(err),
		Code:      services.CodeOf(err),
		RequestID: middleware.GetRequestID(c),
	}
	var cd *services.CooldownError
	if errors.As(err, &cd) {
		mins := cd.RemainingMinutes()
		last := cd.LastPayout
		resp.Error = cd.Error()
		resp.CooldownMinutesRemaining = &mins
		resp.LastPayout = &last
	}
	logServerError(c, status, resp.Code, resp.Error, err)
	c.AbortWithStatusJSON(status, resp)
}

func logServerError(c *gin.Context, status int, code, msg string, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	middleware.LoggerFrom(c).Error().
		Err(err).
		Int("status", status).
		Str("code", code).
		Str("message", msg).
		Msg("api error")
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
