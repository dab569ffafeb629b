package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/creator-payments/internal/services"
)

// maxWebhookBody caps how much of a webhook request is read.
const maxWebhookBody = 64 << 10

// WebhookAck acknowledges a delivery. Duplicate is set for redeliveries of
// an already applied event.
type WebhookAck struct {
	Received  bool `json:"received" example:"true"`
	Duplicate bool `json:"duplicate,omitempty" example:"false"`
}

// StripeWebhook godoc
// @ID          stripeWebhook
// @Summary     Receive a payment provider webhook
// @Description Verifies the Stripe-Signature header and applies the event exactly once. Any non-2xx answer makes the provider redeliver.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       Stripe-Signature  header  string  true  "Provider signature"
//
// @Success     200  {object}  handlers.WebhookAck
// @Failure     400  {object}  handlers.ErrorResponse  "Bad signature or unresolved references"
// @Failure     413  {object}  handlers.ErrorResponse  "Body over 64 KiB"
// @Failure     500  {object}  handlers.ErrorResponse  "Ledger failure"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider lookup failed"
// @Router      /webhooks/stripe [post]
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read body")
		return
	}
	if len(payload) > maxWebhookBody {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "webhook body too large")
		return
	}

	out, err := h.webhooks.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		status, code := webhookStatus(err)
		msg := services.MessageOf(err)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		} else {
			// The provider dashboard shows this body; keep the cause for operators.
			msg = err.Error()
		}
		fail(c, status, code, msg)
		return
	}

	ok(c, http.StatusOK, WebhookAck{Received: true, Duplicate: out == services.OutcomeDuplicate})
}
