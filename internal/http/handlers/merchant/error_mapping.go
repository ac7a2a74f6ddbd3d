package merchant

import (
	"errors"

	"github.com/mobi-voucher/internal/http/response"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError maps one service sentinel onto an API error.
type mappedHandlerError struct {
	target  error
	code    int
	message string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			response.Error(c, rule.code, rule.message)
			return
		}
	}
	logger.Errorw("merchant_api_internal_error", "path", c.FullPath(), "error", err)
	response.Error(c, response.CodeInternal, "internal error")
}

var batchErrorRules = []mappedHandlerError{
	{target: service.ErrBatchNotFound, code: response.CodeNotFound, message: "batch not found"},
	{target: service.ErrInvalidDenomination, code: response.CodeBadRequest, message: "denomination not supported"},
	{target: service.ErrInvalidBundleCount, code: response.CodeBadRequest, message: "bundle count out of range"},
	{target: service.ErrReplacedBatchInvalid, code: response.CodeBadRequest, message: "replaced batch must exist with all cards invalidated"},
	{target: service.ErrInsufficientBalance, code: response.CodeBadRequest, message: "insufficient wallet balance"},
	{target: service.ErrGenerationExhausted, code: response.CodeInternal, message: "identifier generation exhausted, retry later"},
	{target: service.ErrWalletNotFound, code: response.CodeNotFound, message: "wallet account not found"},
}

var cardErrorRules = []mappedHandlerError{
	{target: service.ErrCardNotFound, code: response.CodeNotFound, message: "card not found"},
	{target: service.ErrCardAlreadyUsed, code: response.CodeConflict, message: "card already used"},
	{target: service.ErrCardInvalidated, code: response.CodeConflict, message: "card invalidated"},
	{target: service.ErrInvalidTransition, code: response.CodeBadRequest, message: "invalid card state transition"},
	{target: service.ErrBatchNotFound, code: response.CodeNotFound, message: "batch not found"},
}

var walletErrorRules = []mappedHandlerError{
	{target: service.ErrWalletNotFound, code: response.CodeNotFound, message: "wallet account not found"},
	{target: service.ErrWalletInvalidAmount, code: response.CodeBadRequest, message: "amount and reference must be valid"},
	{target: service.ErrInsufficientBalance, code: response.CodeBadRequest, message: "insufficient wallet balance"},
}

var applicationErrorRules = []mappedHandlerError{
	{target: service.ErrApplicationNotFound, code: response.CodeNotFound, message: "application not found"},
	{target: service.ErrApplicationDecided, code: response.CodeConflict, message: "application already decided"},
	{target: service.ErrApplicationPending, code: response.CodeConflict, message: "a pending application already exists"},
	{target: service.ErrSelfApplication, code: response.CodeBadRequest, message: "cannot apply to yourself"},
	{target: service.ErrMerchantNotFound, code: response.CodeNotFound, message: "merchant not found"},
	{target: service.ErrWalletInvalidAmount, code: response.CodeBadRequest, message: "fee must not be negative"},
}

var stockErrorRules = []mappedHandlerError{
	{target: service.ErrStockNotFound, code: response.CodeNotFound, message: "stock not found for denomination"},
	{target: service.ErrInsufficientStock, code: response.CodeBadRequest, message: "insufficient stock bundles"},
	{target: service.ErrNotSubMerchant, code: response.CodeForbidden, message: "merchant is not affiliated with a parent"},
	{target: service.ErrInsufficientBalance, code: response.CodeBadRequest, message: "insufficient wallet balance"},
	{target: service.ErrWalletNotFound, code: response.CodeNotFound, message: "wallet account not found"},
	{target: service.ErrMerchantNotFound, code: response.CodeNotFound, message: "merchant not found"},
	{target: service.ErrWalletInvalidAmount, code: response.CodeBadRequest, message: "bundle price must be positive"},
}
