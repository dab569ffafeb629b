package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/creator-payments/internal/services"
)

// CreateCheckoutRequest is the JSON payload for opening a checkout.
// For video calls product_id is the availability slot id.
type CreateCheckoutRequest struct {
	CreatorID   string `json:"creator_id" binding:"required" example:"8f0e1c8a-4b44-4a53-9f1c-3b8d0f5a2e10"`
	ProductID   string `json:"product_id" binding:"required" example:"slot-2026-11-02-1000"`
	ProductType string `json:"product_type" binding:"required,product_type" example:"video-call" enums:"pack,live_ticket,video-call,subscription"`
	// Call length in minutes; video calls only. Defaults to 30.
	Duration   int    `json:"duration,omitempty" binding:"omitempty,oneof=30 60" example:"60"`
	SuccessURL string `json:"success_url,omitempty" binding:"omitempty,url" example:"https://shop.example/checkout/success"`
	CancelURL  string `json:"cancel_url,omitempty" binding:"omitempty,url" example:"https://shop.example/checkout/cancel"`
}

// CheckoutResponse is returned when a session was opened.
type CheckoutResponse struct {
	Success     bool   `json:"success" example:"true"`
	CheckoutURL string `json:"checkoutUrl" example:"https://checkout.stripe.com/c/pay/cs_test_a1"`
	SessionID   string `json:"session_id" example:"cs_test_a1"`
	ProductType string `json:"product_type" example:"video-call"`
	// Unit price and platform fee in minor currency units
	Amount      int64  `json:"amount" example:"9000"`
	PlatformFee int64  `json:"platform_fee" example:"1350"`
	Currency    string `json:"currency" example:"brl"`
}

// CreateCheckout godoc
// @ID          createCheckoutSession
// @Summary     Open a checkout session
// @Description Validates the product, runs the video-call availability pre-flight, and opens a hosted checkout on the creator's connected account. Nothing is recorded until the provider confirms payment by webhook.
// @Tags        Checkout
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateCheckoutRequest  true  "Checkout payload"
//
// @Success     200  {object}  handlers.CheckoutResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Failure     409  {object}  handlers.ErrorResponse  "Slot taken or schedule overlap"
// @Failure     422  {object}  handlers.ErrorResponse  "Creator not set up for payments"
// @Failure     502  {object}  handlers.ErrorResponse  "Payment provider failure"
// @Router      /checkout/sessions [post]
func (h *Handlers) CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		code, msg := bindError(err)
		fail(c, http.StatusBadRequest, code, msg)
		return
	}

	res, err := h.checkout.Create(c.Request.Context(), services.CheckoutRequest{
		BuyerID:     userID(c),
		CreatorID:   strings.TrimSpace(req.CreatorID),
		ProductID:   strings.TrimSpace(req.ProductID),
		ProductType: strings.TrimSpace(req.ProductType),
		Duration:    req.Duration,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		failService(c, err)
		return
	}

	ok(c, http.StatusOK, CheckoutResponse{
		Success:     true,
		CheckoutURL: res.URL,
		SessionID:   res.SessionID,
		ProductType: string(res.ProductType),
		Amount:      res.UnitAmount,
		PlatformFee: res.PlatformFee,
		Currency:    res.Currency,
	})
}
