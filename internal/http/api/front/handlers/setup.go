package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/exact3design/soundcard/internal/apperr"
	apphttp "github.com/exact3design/soundcard/internal/http"
	"github.com/exact3design/soundcard/internal/production"
	"github.com/gin-gonic/gin"
)

// maxSetupBody caps the intake payload.
const maxSetupBody = 64 << 10

// OrderCreator runs the production pipeline.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req production.SetupRequest) (production.Result, error)
}

// SetupHandler serves order intake.
type SetupHandler struct {
	orders OrderCreator
}

// NewSetupHandler constructs a SetupHandler.
func NewSetupHandler(orders OrderCreator) *SetupHandler {
	return &SetupHandler{orders: orders}
}

// Create accepts an order, mints its cards, and triggers the production pack.
func (h *SetupHandler) Create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSetupBody)

	var req production.SetupRequest
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if errDecode := decoder.Decode(&req); errDecode != nil {
		apphttp.WriteError(c, apperr.InvalidInput("Invalid request"))
		return
	}

	res, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		apphttp.WriteError(c, err)
		return
	}

	body := gin.H{
		"ok":         true,
		"order_id":   res.OrderID,
		"card_count": res.CardCount,
	}
	if len(res.Cards) > 0 {
		body["cards"] = res.Cards
	}
	c.JSON(http.StatusOK, body)
}
