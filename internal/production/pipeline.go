// Package production turns an order intake request into persisted cards, a
// printable production pack, and an operator email.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/exact3design/soundcard/internal/apperr"
	"github.com/exact3design/soundcard/internal/cardgen"
	"github.com/exact3design/soundcard/internal/config"
	"github.com/exact3design/soundcard/internal/metrics"
	"github.com/exact3design/soundcard/internal/models"
	"github.com/exact3design/soundcard/internal/security"
	"github.com/exact3design/soundcard/internal/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// OrderStore persists orders.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	AttachPack(ctx context.Context, orderID, packPath string, emailSentAt time.Time) error
}

// CardInserter persists freshly minted cards.
type CardInserter interface {
	Insert(ctx context.Context, card *models.Card) error
}

// Result is the outcome of a successful order setup.
type Result struct {
	OrderID   string       `json:"order_id"`
	CardCount int          `json:"card_count"`
	Cards     []MintedCard `json:"cards,omitempty"`
}

// Pipeline runs order setup end to end.
type Pipeline struct {
	orders OrderStore
	cards  CardInserter
	blobs  BlobStore
	mailer Mailer
	links  PackLinker
	waves  fs.FS

	baseURL     string
	tokenLength int
	cfg         config.ProductionConfig
	now         func() time.Time
}

// Deps groups the collaborators of a Pipeline.
type Deps struct {
	Orders OrderStore
	Cards  CardInserter
	Blobs  BlobStore
	Mailer Mailer
	Links  PackLinker
	Waves  fs.FS
}

// NewPipeline builds a Pipeline from deps and the service config.
func NewPipeline(deps Deps, cfg config.Config) *Pipeline {
	return &Pipeline{
		orders:      deps.Orders,
		cards:       deps.Cards,
		blobs:       deps.Blobs,
		mailer:      deps.Mailer,
		links:       deps.Links,
		waves:       deps.Waves,
		baseURL:     cfg.App.BaseURL,
		tokenLength: cfg.Claim.TokenLength,
		cfg:         cfg.Production,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates req, persists the order and its cards, builds and
// stores the production pack, emails the operators, and records the pack on
// the order. A failure after the order insert leaves the earlier writes in
// place.
func (p *Pipeline) CreateOrder(ctx context.Context, req SetupRequest) (Result, error) {
	req.Normalize()
	if err := req.Validate(p.cfg.MaxCardsPerOrder); err != nil {
		metrics.OrdersCreated.WithLabelValues("invalid").Inc()
		return Result{}, err
	}

	res, err := p.run(ctx, req)
	if err != nil {
		metrics.OrdersCreated.WithLabelValues("failed").Inc()
		return Result{}, err
	}
	metrics.OrdersCreated.WithLabelValues("ok").Inc()
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req SetupRequest) (Result, error) {
	order, err := p.insertOrder(ctx, req)
	if err != nil {
		return Result{}, p.fail("Failed to create order", "", err)
	}
	logger := log.WithField("order_id", order.ID)

	minted := make([]MintedCard, 0, len(req.Cards))
	for i, cardReq := range req.Cards {
		card, errMint := p.mintCard(ctx, order.ID, i+1, cardReq)
		if errMint != nil {
			return Result{}, p.fail("Failed to create card", order.ID, errMint)
		}
		minted = append(minted, card)
	}
	metrics.CardsMinted.Add(float64(len(minted)))

	pack, err := BuildPack(order.ID, order.CreatedAt, req.Buyer, minted, p.baseURL, p.waves)
	if err != nil {
		return Result{}, p.fail("Failed to build production pack", order.ID, err)
	}

	packPath := PackPath(order.ID)
	if err = p.blobs.Put(ctx, packPath, pack, "application/zip"); err != nil {
		return Result{}, p.fail("Failed to upload production pack", order.ID, err)
	}

	packURL, _, err := p.links.Sign(order.ID, packPath)
	if err != nil {
		return Result{}, p.fail("Failed to create download link", order.ID, err)
	}

	html, err := RenderSummary(order.ID, req.Buyer, minted, packURL, p.baseURL)
	if err != nil {
		return Result{}, p.fail("Failed to send production email", order.ID, err)
	}
	msg := Message{
		From:    p.cfg.EmailFrom,
		To:      p.cfg.EmailTo,
		Subject: "Production Pack Ready - Order " + order.ID,
		HTML:    html,
	}
	if err = p.mailer.Send(ctx, msg); err != nil {
		return Result{}, p.fail("Failed to send production email", order.ID, err)
	}

	if err = p.orders.AttachPack(ctx, order.ID, packPath, p.now()); err != nil {
		return Result{}, p.fail("Failed to record production pack", order.ID, err)
	}

	logger.WithFields(log.Fields{"cards": len(minted), "pack_bytes": len(pack)}).Info("order set up")

	res := Result{OrderID: order.ID, CardCount: len(minted)}
	if p.cfg.ExposeSecrets {
		res.Cards = minted
	}
	return res, nil
}

func (p *Pipeline) insertOrder(ctx context.Context, req SetupRequest) (*models.Order, error) {
	address, err := json.Marshal(req.Buyer.Address)
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	order := &models.Order{
		ID:                     uuid.NewString(),
		Source:                 req.Source,
		BuyerName:              req.Buyer.Name,
		Email:                  req.Buyer.Email,
		Phone:                  req.Buyer.Phone,
		ShippingAddress:        datatypes.JSON(address),
		MarketplaceOrderNumber: req.Buyer.MarketplaceOrderNumber,
	}
	if err = p.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// mintCard draws a setup code once, then retries fresh tokens until the insert
// clears the unique index or the retry limit runs out.
func (p *Pipeline) mintCard(ctx context.Context, orderID string, index int, req CardRequest) (MintedCard, error) {
	templateID := cardgen.ResolveTemplate(req.Waveform)
	secret, err := security.GenerateSecret()
	if err != nil {
		return MintedCard{}, err
	}
	hash, err := security.HashSecret(secret)
	if err != nil {
		return MintedCard{}, err
	}
	message := trimOptional(req.Message)

	limit := p.cfg.TokenRetryLimit
	if limit < 1 {
		limit = config.DefaultTokenRetryLimit
	}
	var lastErr error
	for attempt := 0; attempt < limit; attempt++ {
		token, errToken := cardgen.GenerateToken(p.tokenLength)
		if errToken != nil {
			return MintedCard{}, errToken
		}
		card := &models.Card{
			OrderID:    orderID,
			Token:      token,
			SecretHash: hash,
			TemplateID: templateID,
			Message:    message,
		}
		errInsert := p.cards.Insert(ctx, card)
		if errInsert == nil {
			return MintedCard{Index: index, Token: token, SetupCode: secret, TemplateID: templateID, Message: message}, nil
		}
		if !errors.Is(errInsert, store.ErrDuplicate) {
			return MintedCard{}, errInsert
		}
		metrics.TokenCollisions.Inc()
		lastErr = errInsert
	}
	return MintedCard{}, fmt.Errorf("token retry limit %d reached: %w", limit, lastErr)
}

func (p *Pipeline) fail(message, orderID string, err error) error {
	entry := log.WithError(err)
	if orderID != "" {
		entry = entry.WithField("order_id", orderID)
	}
	entry.Error("order setup: " + message)
	return apperr.Upstream(message, err)
}
