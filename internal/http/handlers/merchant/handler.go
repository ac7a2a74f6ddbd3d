package merchant

import (
	"github.com/mobi-voucher/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler serves the authenticated merchant console API.
type Handler struct {
	*provider.Container
}

// New creates the merchant handler
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// merchantID reads the authenticated merchant from the request context,
// set by the auth middleware.
func merchantID(c *gin.Context) uint {
	value, ok := c.Get("merchant_id")
	if !ok {
		return 0
	}
	id, ok := value.(uint)
	if !ok {
		return 0
	}
	return id
}
