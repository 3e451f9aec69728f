// Package claim implements the card lifecycle: reading a card, binding content to
// it with the setup code, and replacing that content later.
package claim

import (
	"context"
	"errors"
	"time"

	"github.com/exact3design/soundcard/internal/apperr"
	"github.com/exact3design/soundcard/internal/cardgen"
	"github.com/exact3design/soundcard/internal/config"
	"github.com/exact3design/soundcard/internal/linkcheck"
	"github.com/exact3design/soundcard/internal/metrics"
	"github.com/exact3design/soundcard/internal/models"
	"github.com/exact3design/soundcard/internal/security"
	"github.com/exact3design/soundcard/internal/store"
	"github.com/exact3design/soundcard/internal/util"
	log "github.com/sirupsen/logrus"
)

// User-facing messages.
const (
	MsgInvalidToken       = "Invalid token"
	MsgBadSecretFormat    = "Please enter the 6-digit setup code."
	MsgCardNotFound       = "We couldn't find that card. Please double-check the QR code and try again."
	MsgAlreadyClaimed     = "This card has already been claimed. Use change link instead."
	MsgNotClaimed         = "This card hasn't been claimed yet. Use the claim form first."
	MsgTooManyAttempts    = "Too many failed attempts. Please try again later."
	MsgIncorrectSecret    = "Incorrect setup code. Please try again."
	MsgServiceUnavailable = "Something went wrong. Please try again."
)

// CardStore is the persistence the state machine needs.
type CardStore interface {
	FindByToken(ctx context.Context, token string) (*models.Card, error)
	IncrementFailedAttempts(ctx context.Context, cardID uint64) (int, error)
	LockUntil(ctx context.Context, cardID uint64, until time.Time) error
	AssignLink(ctx context.Context, cardID uint64, link linkcheck.Link, mode store.AssignMode, now time.Time) (*models.Card, error)
}

// Service runs claim and change-link operations against a CardStore.
type Service struct {
	store CardStore
	cfg   config.ClaimConfig
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for lockout decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a Service. Zero config values fall back to the defaults.
func NewService(cardStore CardStore, cfg config.ClaimConfig, opts ...Option) *Service {
	def := config.DefaultClaimConfig()
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = def.LockDuration
	}
	s := &Service{
		store: cardStore,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the public view of a card. Malformed and unknown tokens are both NotFound.
func (s *Service) Read(ctx context.Context, rawToken string) (View, error) {
	token, ok := cardgen.NormalizeToken(rawToken)
	if !ok {
		return View{}, apperr.NotFound(MsgCardNotFound)
	}
	card, errFind := s.store.FindByToken(ctx, token)
	if errFind != nil {
		return View{}, s.findError(errFind)
	}
	return viewOf(card), nil
}

// Claim binds a link to an unclaimed card.
func (s *Service) Claim(ctx context.Context, rawToken, secret, rawLink string) (View, error) {
	return s.assign(ctx, store.AssignClaim, rawToken, secret, rawLink)
}

// ChangeLink replaces the link on a claimed card.
func (s *Service) ChangeLink(ctx context.Context, rawToken, secret, rawLink string) (View, error) {
	return s.assign(ctx, store.AssignChange, rawToken, secret, rawLink)
}

func (s *Service) assign(ctx context.Context, mode store.AssignMode, rawToken, secret, rawLink string) (View, error) {
	view, err := s.doAssign(ctx, mode, rawToken, secret, rawLink)
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	metrics.ClaimAttempts.WithLabelValues(mode.String(), outcome).Inc()
	return view, err
}

func (s *Service) doAssign(ctx context.Context, mode store.AssignMode, rawToken, secret, rawLink string) (View, error) {
	token, ok := cardgen.NormalizeToken(rawToken)
	if !ok {
		return View{}, apperr.InvalidInput(MsgInvalidToken)
	}
	if !security.ValidSecretFormat(secret) {
		return View{}, apperr.InvalidInput(MsgBadSecretFormat)
	}
	link, errLink := linkcheck.Validate(rawLink)
	if errLink != nil {
		return View{}, errLink
	}

	card, errFind := s.store.FindByToken(ctx, token)
	if errFind != nil {
		return View{}, s.findError(errFind)
	}

	if mode == store.AssignClaim && card.IsClaimed() {
		return View{}, apperr.Conflict(MsgAlreadyClaimed)
	}
	if mode == store.AssignChange && !card.IsClaimed() {
		return View{}, apperr.Conflict(MsgNotClaimed)
	}

	now := s.now()
	if card.LockActive(now) {
		return View{}, apperr.RateLimited(MsgTooManyAttempts, *card.LockedUntil)
	}

	if !security.VerifySecret(secret, card.SecretHash) {
		return View{}, s.recordFailure(ctx, mode, card, now)
	}

	updated, errAssign := s.store.AssignLink(ctx, card.ID, link, mode, now)
	if errAssign != nil {
		if errors.Is(errAssign, store.ErrStateChanged) {
			if mode == store.AssignClaim {
				return View{}, apperr.Conflict(MsgAlreadyClaimed)
			}
			return View{}, apperr.Conflict(MsgNotClaimed)
		}
		log.WithError(errAssign).WithFields(log.Fields{
			"token": util.MaskToken(token),
			"op":    mode.String(),
		}).Error("claim: assign link failed")
		return View{}, apperr.Upstream(MsgServiceUnavailable, errAssign)
	}

	log.WithFields(log.Fields{
		"token":     util.MaskToken(token),
		"op":        mode.String(),
		"link_type": string(link.Kind),
	}).Info("claim: link assigned")
	return viewOf(updated), nil
}

// recordFailure counts a wrong setup code and locks the card once the threshold is reached.
func (s *Service) recordFailure(ctx context.Context, mode store.AssignMode, card *models.Card, now time.Time) error {
	attempts, errInc := s.store.IncrementFailedAttempts(ctx, card.ID)
	if errInc != nil {
		log.WithError(errInc).WithField("token", util.MaskToken(card.Token)).Error("claim: record failed attempt")
		return apperr.Upstream(MsgServiceUnavailable, errInc)
	}

	threshold := s.cfg.MaxFailedAttempts
	var lockedUntil *time.Time
	if attempts >= threshold {
		until := now.Add(s.cfg.LockDuration)
		if errLock := s.store.LockUntil(ctx, card.ID, until); errLock != nil {
			log.WithError(errLock).WithField("token", util.MaskToken(card.Token)).Error("claim: lock card")
			return apperr.Upstream(MsgServiceUnavailable, errLock)
		}
		lockedUntil = &until
		metrics.CardLocks.Inc()
		log.WithFields(log.Fields{
			"token":        util.MaskToken(card.Token),
			"op":           mode.String(),
			"attempts":     attempts,
			"locked_until": until,
		}).Warn("claim: card locked")
	}

	remaining := threshold - attempts
	if remaining < 0 {
		remaining = 0
	}
	return apperr.Unauthorized(MsgIncorrectSecret, remaining, lockedUntil)
}

func (s *Service) findError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(MsgCardNotFound)
	}
	log.WithError(err).Error("claim: find card")
	return apperr.Upstream(MsgServiceUnavailable, err)
}
