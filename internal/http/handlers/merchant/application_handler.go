package merchant

import (
	"strconv"

	"github.com/mobi-voucher/internal/http/response"
	"github.com/mobi-voucher/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type applyRequest struct {
	ParentID uint            `json:"parent_id" binding:"required"`
	Fee      decimal.Decimal `json:"fee"`
}

// ApplyToParent files a sub-merchant application
// POST /api/v1/merchant/applications
func (h *Handler) ApplyToParent(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	app, err := h.MerchantService.ApplyToParent(c.Request.Context(), merchantID(c), req.ParentID, req.Fee)
	if err != nil {
		respondWithMappedError(c, err, applicationErrorRules)
		return
	}
	response.Success(c, app)
}

type decideRequest struct {
	Accept bool `json:"accept"`
}

// DecideApplication accepts or rejects a pending application filed with
// the caller as parent
// POST /api/v1/merchant/applications/:id/decide
func (h *Handler) DecideApplication(c *gin.Context) {
	appID, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid application id")
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	app, err := h.MerchantService.DecideApplication(c.Request.Context(), merchantID(c), appID, req.Accept)
	if err != nil {
		respondWithMappedError(c, err, applicationErrorRules)
		return
	}
	response.Success(c, app)
}

// ListApplications pages applications. side=received lists applications
// filed with the caller as parent; anything else lists the caller's own.
// GET /api/v1/merchant/applications
func (h *Handler) ListApplications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize > 100 {
		pageSize = 100
	}
	filter := repository.ApplicationListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
	}
	if c.DefaultQuery("side", "sent") == "received" {
		filter.ParentID = merchantID(c)
	} else {
		filter.ApplicantID = merchantID(c)
	}
	apps, total, err := h.MerchantService.ListApplications(c.Request.Context(), filter)
	if err != nil {
		respondWithMappedError(c, err, applicationErrorRules)
		return
	}
	response.SuccessWithPage(c, apps, response.NewPagination(page, pageSize, total))
}
