package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/creator-payments/internal/domain"
	"github.com/tbourn/creator-payments/internal/http/middleware"
	"github.com/tbourn/creator-payments/internal/services"
)

// CreatePayoutRequest asks to withdraw the creator's available balance.
// Amount is in minor currency units and is ignored when withdraw_all is set.
// The idempotency key may instead be sent in the Idempotency-Key header.
type CreatePayoutRequest struct {
	Amount         int64  `json:"amount,omitempty" binding:"gte=0" example:"25000"`
	WithdrawAll    bool   `json:"withdraw_all,omitempty" example:"false"`
	Currency       string `json:"currency,omitempty" example:"brl"`
	IdempotencyKey string `json:"idempotency_key,omitempty" example:"wd-2026-11-02-7f3c9a1b"`
}

// PayoutResponse reports the payout a request resolved to.
type PayoutResponse struct {
	OK          bool       `json:"ok" example:"true"`
	PayoutID    string     `json:"payout_id" example:"5d0f4a1e-3c2b-4f1d-9a7e-2b6c8d9e0f11"`
	Status      string     `json:"status" example:"pending"`
	Amount      int64      `json:"amount" example:"25000"`
	Currency    string     `json:"currency" example:"brl"`
	ArrivalDate *time.Time `json:"arrival_date,omitempty"`
	// Processing is set when the provider has not answered yet; retry later.
	Processing bool `json:"processing,omitempty"`
	// Deduped is set when this key had already produced the payout.
	Deduped bool `json:"deduped,omitempty"`
}

// ListPayoutsResponse wraps a page of payouts.
type ListPayoutsResponse struct {
	OK         bool            `json:"ok" example:"true"`
	Payouts    []domain.Payout `json:"payouts"`
	Pagination Pagination      `json:"pagination"`
}

// CreatePayout godoc
// @ID          createPayout
// @Summary     Withdraw available balance
// @Description Reserves a payout under the idempotency key, then submits it to the provider with the same key. Retries with the same key return the original payout.
// @Tags        Payouts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Alternative to idempotency_key in the body"
// @Param       body             body    handlers.CreatePayoutRequest  true  "Withdrawal payload"
//
// @Success     200  {object}  handlers.PayoutResponse  "Payout submitted or replayed"
// @Success     202  {object}  handlers.PayoutResponse  "Reserved; provider answer pending"
// @Failure     400  {object}  handlers.PayoutErrorResponse  "Invalid request"
// @Failure     401  {object}  handlers.PayoutErrorResponse  "Missing or invalid token"
// @Failure     409  {object}  handlers.PayoutErrorResponse  "Cooldown, balance or key conflict"
// @Failure     422  {object}  handlers.PayoutErrorResponse  "Payout account not configured"
// @Failure     502  {object}  handlers.PayoutErrorResponse  "Payment provider failure"
// @Router      /payouts [post]
func (h *Handlers) CreatePayout(c *gin.Context) {
	var req CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		code, msg := bindError(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, PayoutErrorResponse{
			OK: false, Error: msg, Code: code, RequestID: middleware.GetRequestID(c),
		})
		return
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key, _ = middleware.GetIdempotencyKey(c)
	}

	res, err := h.payouts.Withdraw(c.Request.Context(), services.WithdrawalRequest{
		CreatorID:      userID(c),
		IdempotencyKey: key,
		AmountCents:    req.Amount,
		Currency:       req.Currency,
		WithdrawAll:    req.WithdrawAll,
	})
	if err != nil {
		failPayout(c, err)
		return
	}

	status := http.StatusOK
	if res.Processing {
		status = http.StatusAccepted
	}
	p := res.Payout
	ok(c, status, PayoutResponse{
		OK:          true,
		PayoutID:    p.ID,
		Status:      p.Status,
		Amount:      p.AmountCents,
		Currency:    p.Currency,
		ArrivalDate: p.ArrivalDate,
		Processing:  res.Processing,
		Deduped:     res.Deduped,
	})
}

// ListPayouts godoc
// @ID          listPayouts
// @Summary     List payouts (paginated)
// @Description Returns the caller's payouts, newest first.
// @Tags        Payouts
// @Produce     json
// @Security    BearerAuth
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListPayoutsResponse
// @Failure     401  {object}  handlers.PayoutErrorResponse  "Missing or invalid token"
// @Failure     500  {object}  handlers.PayoutErrorResponse  "Internal error"
// @Router      /payouts [get]
func (h *Handlers) ListPayouts(c *gin.Context) {
	page, pageSize := clampPagination(c)
	res, err := h.payouts.ListPayouts(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		failPayout(c, err)
		return
	}
	items := res.Items
	if items == nil {
		items = []domain.Payout{}
	}
	ok(c, http.StatusOK, ListPayoutsResponse{
		OK:         true,
		Payouts:    items,
		Pagination: newPagination(res.Page, res.PageSize, res.Total),
	})
}
