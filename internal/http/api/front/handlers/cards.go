package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/exact3design/soundcard/internal/apperr"
	"github.com/exact3design/soundcard/internal/claim"
	apphttp "github.com/exact3design/soundcard/internal/http"
	"github.com/gin-gonic/gin"
)

// CardService is the claim state machine as seen by the HTTP layer.
type CardService interface {
	Read(ctx context.Context, rawToken string) (claim.View, error)
	Claim(ctx context.Context, rawToken, secret, rawLink string) (claim.View, error)
	ChangeLink(ctx context.Context, rawToken, secret, rawLink string) (claim.View, error)
}

// CardHandler serves the public card endpoints.
type CardHandler struct {
	cards CardService
}

// NewCardHandler constructs a CardHandler.
func NewCardHandler(cards CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

// assignLinkRequest is the body of claim and change-link.
type assignLinkRequest struct {
	SetupCode string `json:"setup_code"`
	Link      string `json:"link"`
}

// Get returns the public view of a card.
func (h *CardHandler) Get(c *gin.Context) {
	view, err := h.cards.Read(c.Request.Context(), c.Param("token"))
	if err != nil {
		apphttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                   true,
		"token":                view.Token,
		"waveform_template_id": view.TemplateID,
		"claimed":              view.Claimed,
		"link":                 view.Link,
	})
}

// Claim binds a link to an unclaimed card.
func (h *CardHandler) Claim(c *gin.Context) {
	h.assign(c, h.cards.Claim)
}

// ChangeLink replaces the link of a claimed card.
func (h *CardHandler) ChangeLink(c *gin.Context) {
	h.assign(c, h.cards.ChangeLink)
}

func (h *CardHandler) assign(c *gin.Context, op func(ctx context.Context, rawToken, secret, rawLink string) (claim.View, error)) {
	var body assignLinkRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.WriteError(c, apperr.InvalidInput("Invalid request body."))
		return
	}

	view, err := op(c.Request.Context(), c.Param("token"), strings.TrimSpace(body.SetupCode), body.Link)
	if err != nil {
		apphttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"token":   view.Token,
		"claimed": view.Claimed,
		"link":    view.Link,
	})
}
