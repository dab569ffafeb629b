package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/creator-payments/internal/http/middleware"
	"github.com/tbourn/creator-payments/internal/repo"
	"github.com/tbourn/creator-payments/internal/services"
	"github.com/tbourn/creator-payments/internal/utils"
)

//
// Service contracts (context-aware)
//

// CheckoutService opens hosted checkout sessions.
type CheckoutService interface {
	Create(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutResult, error)
}

// WebhookService verifies and applies provider webhook deliveries.
type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) (services.Outcome, error)
}

// WithdrawalService reserves payouts and lists payout history.
type WithdrawalService interface {
	Withdraw(ctx context.Context, req services.WithdrawalRequest) (*services.WithdrawalResult, error)
	ListPayouts(ctx context.Context, creatorID string, page, pageSize int) (*services.PayoutPage, error)
}

// PurchaseService lists what a buyer has bought.
type PurchaseService interface {
	List(ctx context.Context, buyerID string) (*repo.Purchases, error)
}

// Handlers groups the API endpoints. Services are abstract so tests can
// stub them with plain funcs.
type Handlers struct {
	checkout  CheckoutService
	webhooks  WebhookService
	payouts   WithdrawalService
	purchases PurchaseService
}

// New constructs Handlers bound to the given services.
func New(checkout CheckoutService, webhooks WebhookService, payouts WithdrawalService, purchases PurchaseService) *Handlers {
	return &Handlers{checkout: checkout, webhooks: webhooks, payouts: payouts, purchases: purchases}
}

// userID is the authenticated caller set by middleware.BearerAuth.
func userID(c *gin.Context) string { return middleware.UserID(c) }

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)
}
