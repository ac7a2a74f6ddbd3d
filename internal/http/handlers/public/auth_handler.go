package public

import (
	"github.com/mobi-voucher/internal/http/response"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a merchant and issues a token
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and password are required")
		return
	}
	token, merchant, err := h.MerchantService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithMappedError(c, err, authErrorRules)
		return
	}
	response.Success(c, gin.H{
		"token":    token,
		"merchant": merchant,
	})
}

type registerRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates a merchant account
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid registration payload")
		return
	}
	merchant, err := h.MerchantService.Register(c.Request.Context(), req.Code, req.Name, req.Email, req.Password)
	if err != nil {
		respondWithMappedError(c, err, authErrorRules)
		return
	}
	response.Success(c, merchant)
}
