package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/creator-payments/internal/domain"
)

// PurchasesResponse lists everything the caller has bought.
type PurchasesResponse struct {
	Success bool                  `json:"success" example:"true"`
	Packs   []domain.PackPurchase `json:"packs"`
	Tickets []domain.LiveTicket   `json:"tickets"`
	Calls   []domain.Call         `json:"calls"`
}

// ListPurchases godoc
// @ID          listPurchases
// @Summary     List my purchases
// @Description Returns the caller's pack purchases, live tickets, and confirmed calls.
// @Tags        Purchases
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.PurchasesResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /purchases [get]
func (h *Handlers) ListPurchases(c *gin.Context) {
	p, err := h.purchases.List(c.Request.Context(), userID(c))
	if err != nil {
		failService(c, err)
		return
	}
	resp := PurchasesResponse{
		Success: true,
		Packs:   p.Packs,
		Tickets: p.Tickets,
		Calls:   p.Calls,
	}
	if resp.Packs == nil {
		resp.Packs = []domain.PackPurchase{}
	}
	if resp.Tickets == nil {
		resp.Tickets = []domain.LiveTicket{}
	}
	if resp.Calls == nil {
		resp.Calls = []domain.Call{}
	}
	ok(c, http.StatusOK, resp)
}
