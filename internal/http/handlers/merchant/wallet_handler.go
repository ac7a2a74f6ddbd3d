package merchant

import (
	"strconv"

	"github.com/mobi-voucher/internal/http/response"
	"github.com/mobi-voucher/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type fundWalletRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Reference   string          `json:"reference" binding:"required"`
	Description string          `json:"description"`
}

// FundWallet credits the merchant wallet, idempotent by reference
// POST /api/v1/merchant/wallet/fund
func (h *Handler) FundWallet(c *gin.Context) {
	var req fundWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	id := merchantID(c)
	txn, err := h.WalletService.Fund(c.Request.Context(), id, req.Amount, req.Reference, req.Description)
	if err != nil {
		respondWithMappedError(c, err, walletErrorRules)
		return
	}
	// best-effort audit of the new projection
	_ = h.QueueClient.EnqueueLedgerReconcile(queue.LedgerReconcilePayload{MerchantID: id})
	response.Success(c, txn)
}

// WalletBalance returns the wallet's projected balance
// GET /api/v1/merchant/wallet/balance
func (h *Handler) WalletBalance(c *gin.Context) {
	account, err := h.WalletService.Balance(c.Request.Context(), merchantID(c))
	if err != nil {
		respondWithMappedError(c, err, walletErrorRules)
		return
	}
	response.Success(c, account)
}

// WalletHistory pages the wallet ledger, newest first
// GET /api/v1/merchant/wallet/history
func (h *Handler) WalletHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize > 100 {
		pageSize = 100
	}
	txns, total, err := h.WalletService.History(c.Request.Context(), merchantID(c), page, pageSize, c.Query("type"))
	if err != nil {
		respondWithMappedError(c, err, walletErrorRules)
		return
	}
	response.SuccessWithPage(c, txns, response.NewPagination(page, pageSize, total))
}

// ReconcileWallet schedules a ledger audit for the caller's wallet. Falls
// back to a synchronous audit when the queue is disabled.
// POST /api/v1/merchant/wallet/reconcile
func (h *Handler) ReconcileWallet(c *gin.Context) {
	id := merchantID(c)
	if h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueLedgerReconcile(queue.LedgerReconcilePayload{MerchantID: id}); err == nil {
			response.SuccessWithMsg(c, "reconcile scheduled", nil)
			return
		}
	}
	result, err := h.WalletService.Reconcile(c.Request.Context(), id)
	if err != nil {
		respondWithMappedError(c, err, walletErrorRules)
		return
	}
	response.Success(c, result)
}
