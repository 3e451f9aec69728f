package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/exact3design/soundcard/internal/db"
	"github.com/exact3design/soundcard/internal/linkcheck"
	"github.com/exact3design/soundcard/internal/models"
	"gorm.io/gorm"
)

// Cards is the gorm-backed card record store.
type Cards struct {
	db *gorm.DB
}

// NewCards wires a card store to its database handle.
func NewCards(db *gorm.DB) *Cards {
	return &Cards{db: db}
}

// FindByToken loads a card by its normalized token.
func (s *Cards) FindByToken(ctx context.Context, token string) (*models.Card, error) {
	var card models.Card
	if errFind := s.db.WithContext(ctx).Where("token = ?", token).First(&card).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find card: %w", errFind)
	}
	return &card, nil
}

// Insert creates a card, reporting ErrDuplicate when the token is taken.
func (s *Cards) Insert(ctx context.Context, card *models.Card) error {
	if errCreate := s.db.WithContext(ctx).Create(card).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert card: %w", errCreate)
	}
	return nil
}

// IncrementFailedAttempts atomically bumps the failure counter and returns the new value.
func (s *Cards) IncrementFailedAttempts(ctx context.Context, cardID uint64) (int, error) {
	var attempts int
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Card{}).
			Where("id = ?", cardID).
			UpdateColumns(map[string]any{
				"failed_attempts": gorm.Expr("failed_attempts + 1"),
				"updated_at":      time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Card{}).
			Where("id = ?", cardID).
			Select("failed_attempts").
			Scan(&attempts).Error
	})
	if errTx != nil {
		if errors.Is(errTx, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment failed attempts: %w", errTx)
	}
	return attempts, nil
}

// LockUntil sets the lockout end for a card.
func (s *Cards) LockUntil(ctx context.Context, cardID uint64, until time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("id = ?", cardID).
		UpdateColumns(map[string]any{
			"locked_until": until.UTC(),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("lock card: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignLink writes link to the card and clears the failure state, conditional on
// the claim state mode requires. It returns ErrStateChanged when that condition
// no longer holds.
func (s *Cards) AssignLink(ctx context.Context, cardID uint64, link linkcheck.Link, mode AssignMode, now time.Time) (*models.Card, error) {
	now = now.UTC()
	linkType := string(link.Kind)
	updates := map[string]any{
		"link_type":       linkType,
		"youtube_id":      nil,
		"audio_url":       nil,
		"failed_attempts": 0,
		"locked_until":    nil,
		"updated_at":      now,
	}
	switch link.Kind {
	case linkcheck.KindYouTube:
		updates["youtube_id"] = link.VideoID
	case linkcheck.KindAudio:
		updates["audio_url"] = link.URL
	default:
		return nil, fmt.Errorf("assign link: unknown link kind %q", link.Kind)
	}

	q := s.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", cardID)
	if mode == AssignClaim {
		q = q.Where("claimed_at IS NULL")
		updates["claimed_at"] = now
	} else {
		q = q.Where("claimed_at IS NOT NULL")
	}

	res := q.UpdateColumns(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("assign link: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStateChanged
	}

	var card models.Card
	if errFind := s.db.WithContext(ctx).First(&card, cardID).Error; errFind != nil {
		return nil, fmt.Errorf("reload card: %w", errFind)
	}
	return &card, nil
}

// ListByOrder returns the cards minted for an order, oldest first.
func (s *Cards) ListByOrder(ctx context.Context, orderID string) ([]models.Card, error) {
	var cards []models.Card
	if errFind := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&cards).Error; errFind != nil {
		return nil, fmt.Errorf("list cards: %w", errFind)
	}
	return cards, nil
}
