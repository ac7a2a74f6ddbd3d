package public

import (
	"github.com/mobi-voucher/internal/http/response"

	"github.com/gin-gonic/gin"
)

type redeemRequest struct {
	SerialNumber string `json:"serial_number" binding:"required"`
	Pin          string `json:"pin" binding:"required"`
}

// RedeemVoucher consumes a card given its serial and PIN
// POST /api/v1/public/vouchers/redeem
func (h *Handler) RedeemVoucher(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "serial_number and pin are required")
		return
	}
	card, err := h.CardService.Redeem(c.Request.Context(), req.SerialNumber, req.Pin)
	if err != nil {
		respondWithMappedError(c, err, redeemErrorRules)
		return
	}
	response.Success(c, gin.H{
		"serial_number": card.SerialNumber,
		"denomination":  card.Denomination,
		"used_at":       card.UsedAt,
	})
}
