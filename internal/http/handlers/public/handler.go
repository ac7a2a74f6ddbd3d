package public

import (
	"github.com/mobi-voucher/internal/provider"
)

// Handler serves the unauthenticated API: merchant auth and card
// redemption.
type Handler struct {
	*provider.Container
}

// New creates the public handler
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
