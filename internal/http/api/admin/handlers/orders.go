package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/exact3design/soundcard/internal/apperr"
	apphttp "github.com/exact3design/soundcard/internal/http"
	"github.com/exact3design/soundcard/internal/models"
	"github.com/exact3design/soundcard/internal/production"
	"github.com/exact3design/soundcard/internal/store"
	"github.com/gin-gonic/gin"
)

// OrderReader lists and loads orders for operators.
type OrderReader interface {
	List(ctx context.Context, filter store.OrderFilter) ([]store.OrderSummary, error)
	Get(ctx context.Context, orderID string) (*models.Order, error)
}

// OrderHandler serves the operator order views.
type OrderHandler struct {
	orders OrderReader
	links  production.PackLinker
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders OrderReader, links production.PackLinker) *OrderHandler {
	return &OrderHandler{orders: orders, links: links}
}

// orderDTO is the operator view of an order.
type orderDTO struct {
	ID                     string          `json:"id"`
	Source                 string          `json:"source"`
	BuyerName              string          `json:"buyer_name"`
	Email                  string          `json:"email"`
	Phone                  *string         `json:"phone"`
	ShippingAddress        json.RawMessage `json:"shipping_address"`
	MarketplaceOrderNumber *string         `json:"marketplace_order_number"`
	PackPath               *string         `json:"pack_path"`
	EmailSentAt            *time.Time      `json:"email_sent_at"`
	CreatedAt              time.Time       `json:"created_at"`
	CardCount              *int            `json:"card_count,omitempty"`
	ClaimedCount           *int            `json:"claimed_count,omitempty"`
	Cards                  []cardDTO       `json:"cards,omitempty"`
}

// cardDTO is the operator view of a card. The setup code hash never leaves the store.
type cardDTO struct {
	Token          string     `json:"token"`
	TemplateID     int        `json:"waveform_template_id"`
	Message        *string    `json:"message"`
	LinkType       *string    `json:"link_type"`
	YouTubeID      *string    `json:"youtube_id"`
	AudioURL       *string    `json:"audio_url"`
	ClaimedAt      *time.Time `json:"claimed_at"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until"`
}

func newOrderDTO(o models.Order) orderDTO {
	return orderDTO{
		ID:                     o.ID,
		Source:                 o.Source,
		BuyerName:              o.BuyerName,
		Email:                  o.Email,
		Phone:                  o.Phone,
		ShippingAddress:        json.RawMessage(o.ShippingAddress),
		MarketplaceOrderNumber: o.MarketplaceOrderNumber,
		PackPath:               o.PackPath,
		EmailSentAt:            o.EmailSentAt,
		CreatedAt:              o.CreatedAt,
	}
}

// List returns recent orders with card counters.
func (h *OrderHandler) List(c *gin.Context) {
	limit, errLimit := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if errLimit != nil || limit < 1 {
		apphttp.WriteError(c, apperr.InvalidInput("limit must be a positive integer"))
		return
	}
	summaries, errList := h.orders.List(c.Request.Context(), store.OrderFilter{
		Email:   c.Query("email"),
		Country: c.Query("country"),
		Source:  c.Query("source"),
		Limit:   limit,
	})
	if errList != nil {
		apphttp.WriteError(c, apperr.Upstream("list orders failed", errList))
		return
	}

	out := make([]orderDTO, 0, len(summaries))
	for _, s := range summaries {
		dto := newOrderDTO(s.Order)
		cardCount, claimedCount := s.CardCount, s.ClaimedCount
		dto.CardCount = &cardCount
		dto.ClaimedCount = &claimedCount
		out = append(out, dto)
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

// Get returns one order with its cards.
func (h *OrderHandler) Get(c *gin.Context) {
	order, ok := h.load(c)
	if !ok {
		return
	}
	dto := newOrderDTO(*order)
	dto.Cards = make([]cardDTO, 0, len(order.Cards))
	for _, card := range order.Cards {
		dto.Cards = append(dto.Cards, cardDTO{
			Token:          card.Token,
			TemplateID:     card.TemplateID,
			Message:        card.Message,
			LinkType:       card.LinkType,
			YouTubeID:      card.YouTubeID,
			AudioURL:       card.AudioURL,
			ClaimedAt:      card.ClaimedAt,
			FailedAttempts: card.FailedAttempts,
			LockedUntil:    card.LockedUntil,
		})
	}
	c.JSON(http.StatusOK, gin.H{"order": dto})
}

// PackLink signs a fresh download link for the order's stored pack.
func (h *OrderHandler) PackLink(c *gin.Context) {
	order, ok := h.load(c)
	if !ok {
		return
	}
	if order.PackPath == nil || *order.PackPath == "" {
		apphttp.WriteError(c, apperr.Conflict("order has no production pack"))
		return
	}
	link, expiresAt, errSign := h.links.Sign(order.ID, *order.PackPath)
	if errSign != nil {
		apphttp.WriteError(c, apperr.Unexpected(errSign))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link, "expires_at": expiresAt})
}

func (h *OrderHandler) load(c *gin.Context) (*models.Order, bool) {
	order, errGet := h.orders.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		if errors.Is(errGet, store.ErrNotFound) {
			apphttp.WriteError(c, apperr.NotFound("order not found"))
			return nil, false
		}
		apphttp.WriteError(c, apperr.Upstream("load order failed", errGet))
		return nil, false
	}
	return order, true
}
