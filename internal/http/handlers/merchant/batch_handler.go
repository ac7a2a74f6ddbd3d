package merchant

import (
	"strconv"

	"github.com/mobi-voucher/internal/http/response"
	"github.com/mobi-voucher/internal/queue"
	"github.com/mobi-voucher/internal/repository"
	"github.com/mobi-voucher/internal/service"

	"github.com/gin-gonic/gin"
)

type issueBatchRequest struct {
	Denomination    int64  `json:"denomination" binding:"required"`
	BundleCount     int    `json:"bundle_count" binding:"required"`
	GenerationType  string `json:"generation_type"`
	ReplacedBatchID *uint  `json:"replaced_batch_id"`
	ClientRequestID string `json:"client_request_id"`
}

// IssueBatch creates a voucher batch
// POST /api/v1/merchant/batches
func (h *Handler) IssueBatch(c *gin.Context) {
	var req issueBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	batch, err := h.BatchService.IssueBatch(c.Request.Context(), service.IssueBatchInput{
		MerchantID:      merchantID(c),
		Denomination:    req.Denomination,
		BundleCount:     req.BundleCount,
		GenerationType:  req.GenerationType,
		ReplacedBatchID: req.ReplacedBatchID,
		ClientRequestID: req.ClientRequestID,
	})
	if err != nil {
		respondWithMappedError(c, err, batchErrorRules)
		return
	}
	// best-effort audit of the wallet projection after the debit
	_ = h.QueueClient.EnqueueLedgerReconcile(queue.LedgerReconcilePayload{MerchantID: batch.MerchantID})
	response.Success(c, batch)
}

// ListBatches searches the batch registry
// GET /api/v1/merchant/batches
func (h *Handler) ListBatches(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize > 100 {
		pageSize = 100
	}
	denomination, _ := strconv.ParseInt(c.Query("denomination"), 10, 64)

	filter := repository.BatchListFilter{
		Page:           page,
		PageSize:       pageSize,
		MerchantID:     merchantID(c),
		BatchNumber:    c.Query("batch_number"),
		Denomination:   denomination,
		Status:         c.Query("status"),
		GenerationType: c.Query("generation_type"),
		OrderBy:        c.Query("order_by"),
	}
	batches, total, err := h.BatchService.Search(c.Request.Context(), filter)
	if err != nil {
		respondWithMappedError(c, err, batchErrorRules)
		return
	}
	response.SuccessWithPage(c, batches, response.NewPagination(page, pageSize, total))
}

// BatchDetail returns a batch with bundles and status breakdown
// GET /api/v1/merchant/batches/:id
func (h *Handler) BatchDetail(c *gin.Context) {
	batchID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	detail, err := h.BatchService.Detail(c.Request.Context(), merchantID(c), batchID)
	if err != nil {
		respondWithMappedError(c, err, batchErrorRules)
		return
	}
	response.Success(c, detail)
}

// BatchStatusCounts returns the card status breakdown of a batch
// GET /api/v1/merchant/batches/:id/status-counts
func (h *Handler) BatchStatusCounts(c *gin.Context) {
	batchID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	counts, err := h.BatchService.StatusCounts(c.Request.Context(), merchantID(c), batchID)
	if err != nil {
		respondWithMappedError(c, err, batchErrorRules)
		return
	}
	response.Success(c, counts)
}

// DeactivateBatch withdraws a batch from the registry
// POST /api/v1/merchant/batches/:id/deactivate
func (h *Handler) DeactivateBatch(c *gin.Context) {
	batchID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	batch, err := h.BatchService.Deactivate(c.Request.Context(), merchantID(c), batchID)
	if err != nil {
		respondWithMappedError(c, err, batchErrorRules)
		return
	}
	response.Success(c, batch)
}

// InvalidateBatch invalidates every not-yet-used card of a batch
// POST /api/v1/merchant/batches/:id/invalidate
func (h *Handler) InvalidateBatch(c *gin.Context) {
	batchID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	// ownership check runs through the registry before the bulk update
	if _, err := h.BatchService.Detail(c.Request.Context(), merchantID(c), batchID); err != nil {
		respondWithMappedError(c, err, batchErrorRules)
		return
	}
	affected, err := h.CardService.InvalidateBatch(c.Request.Context(), batchID)
	if err != nil {
		respondWithMappedError(c, err, cardErrorRules)
		return
	}
	response.Success(c, gin.H{"invalidated": affected})
}

// ListBatchCards pages the cards of a batch
// GET /api/v1/merchant/batches/:id/cards
func (h *Handler) ListBatchCards(c *gin.Context) {
	batchID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid batch id")
		return
	}
	if _, err := h.BatchService.Detail(c.Request.Context(), merchantID(c), batchID); err != nil {
		respondWithMappedError(c, err, batchErrorRules)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize > 200 {
		pageSize = 200
	}
	cards, total, err := h.VoucherCardRepo.List(c.Request.Context(), repository.CardListFilter{
		Page:     page,
		PageSize: pageSize,
		BatchID:  batchID,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondWithMappedError(c, err, cardErrorRules)
		return
	}
	response.SuccessWithPage(c, cards, response.NewPagination(page, pageSize, total))
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}
