package public

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
	logger.Errorw("public_api_internal_error", "path", c.FullPath(), "error", err)
	response.Error(c, response.CodeInternal, "internal error")
}

var redeemErrorRules = []mappedHandlerError{
	{target: service.ErrCardNotFound, code: response.CodeNotFound, message: "card not found"},
	{target: service.ErrWrongPin, code: response.CodeBadRequest, message: "wrong pin"},
	{target: service.ErrCardAlreadyUsed, code: response.CodeConflict, message: "card already used"},
	{target: service.ErrCardInvalidated, code: response.CodeConflict, message: "card invalidated"},
	{target: service.ErrCardNotSold, code: response.CodeConflict, message: "card has not been sold"},
	{target: service.ErrInvalidTransition, code: response.CodeBadRequest, message: "card cannot be redeemed"},
}

var authErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCredentials, code: response.CodeUnauthorized, message: "invalid email or password"},
	{target: service.ErrMerchantDisabled, code: response.CodeForbidden, message: "merchant account disabled"},
	{target: service.ErrEmailTaken, code: response.CodeConflict, message: "email already registered"},
	{target: service.ErrCodeTaken, code: response.CodeConflict, message: "merchant code already registered"},
}
