package merchant

import (
	"github.com/mobi-voucher/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type upsertStockRequest struct {
	Denomination     int64           `json:"denomination" binding:"required"`
	AvailableBundles int             `json:"available_bundles"`
	PricePerBundle   decimal.Decimal `json:"price_per_bundle" binding:"required"`
}

// UpsertStock sets the caller's sellable inventory for one denomination
// PUT /api/v1/merchant/stock
func (h *Handler) UpsertStock(c *gin.Context) {
	var req upsertStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	stock, err := h.MerchantService.UpsertStock(c.Request.Context(), merchantID(c), req.Denomination, req.AvailableBundles, req.PricePerBundle)
	if err != nil {
		respondWithMappedError(c, err, stockErrorRules)
		return
	}
	response.Success(c, stock)
}

// ListStock returns the caller's stock rows
// GET /api/v1/merchant/stock
func (h *Handler) ListStock(c *gin.Context) {
	stocks, err := h.MerchantService.ListStock(c.Request.Context(), merchantID(c))
	if err != nil {
		respondWithMappedError(c, err, stockErrorRules)
		return
	}
	response.Success(c, stocks)
}

type purchaseStockRequest struct {
	Denomination int64 `json:"denomination" binding:"required"`
	Bundles      int   `json:"bundles" binding:"required"`
}

// PurchaseStock buys bundles from the caller's parent merchant
// POST /api/v1/merchant/stock/purchase
func (h *Handler) PurchaseStock(c *gin.Context) {
	var req purchaseStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	stock, err := h.MerchantService.PurchaseStock(c.Request.Context(), merchantID(c), req.Denomination, req.Bundles)
	if err != nil {
		respondWithMappedError(c, err, stockErrorRules)
		return
	}
	response.Success(c, stock)
}
