package merchant

import (
	"github.com/mobi-voucher/internal/http/response"
	"github.com/mobi-voucher/internal/service"

	"github.com/gin-gonic/gin"
)

type markSoldRequest struct {
	SoldVia string `json:"sold_via" binding:"required"`
}

// MarkCardSold records a sale event for a card
// POST /api/v1/merchant/cards/:id/sell
func (h *Handler) MarkCardSold(c *gin.Context) {
	cardID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid card id")
		return
	}
	var req markSoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.checkCardOwnership(c, cardID); err != nil {
		respondWithMappedError(c, err, cardErrorRules)
		return
	}
	card, err := h.CardService.MarkSold(c.Request.Context(), cardID, req.SoldVia)
	if err != nil {
		respondWithMappedError(c, err, cardErrorRules)
		return
	}
	response.Success(c, card)
}

// InvalidateCard withdraws a single card
// POST /api/v1/merchant/cards/:id/invalidate
func (h *Handler) InvalidateCard(c *gin.Context) {
	cardID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid card id")
		return
	}
	if err := h.checkCardOwnership(c, cardID); err != nil {
		respondWithMappedError(c, err, cardErrorRules)
		return
	}
	card, err := h.CardService.Invalidate(c.Request.Context(), cardID)
	if err != nil {
		respondWithMappedError(c, err, cardErrorRules)
		return
	}
	response.Success(c, card)
}

// checkCardOwnership verifies the card's batch belongs to the caller.
func (h *Handler) checkCardOwnership(c *gin.Context, cardID uint) error {
	card, err := h.VoucherCardRepo.GetByID(c.Request.Context(), cardID)
	if err != nil {
		return err
	}
	if card == nil {
		return service.ErrCardNotFound
	}
	batch, err := h.VoucherBatchRepo.GetByID(c.Request.Context(), card.BatchID)
	if err != nil {
		return err
	}
	if batch == nil || batch.MerchantID != merchantID(c) {
		return service.ErrCardNotFound
	}
	return nil
}
