package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbutil "github.com/exact3design/soundcard/internal/db"
	"github.com/exact3design/soundcard/internal/models"
	"gorm.io/gorm"
)

// Orders is the gorm-backed order store.
type Orders struct {
	db *gorm.DB
}

// NewOrders wires an order store to its database handle.
func NewOrders(db *gorm.DB) *Orders {
	return &Orders{db: db}
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	Email   string // Case-insensitive substring of the buyer email.
	Country string // Exact shipping country.
	Source  string
	Limit   int
}

// OrderSummary is an order with its card counters.
type OrderSummary struct {
	Order        models.Order
	CardCount    int
	ClaimedCount int
}

// Create inserts an order.
func (s *Orders) Create(ctx context.Context, order *models.Order) error {
	if errCreate := s.db.WithContext(ctx).Create(order).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", errCreate)
	}
	return nil
}

// AttachPack records the pack object path and the operator email timestamp.
func (s *Orders) AttachPack(ctx context.Context, orderID, packPath string, emailSentAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"pack_path":     packPath,
			"email_sent_at": emailSentAt.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("attach pack: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads an order together with its cards.
func (s *Orders) Get(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if errFind := s.db.WithContext(ctx).
		Preload("Cards", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("id = ?", orderID).
		First(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", errFind)
	}
	return &order, nil
}

// List returns the newest orders matching filter along with card counters.
func (s *Orders) List(ctx context.Context, filter OrderFilter) ([]OrderSummary, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Model(&models.Order{})
	if email := strings.TrimSpace(filter.Email); email != "" {
		q = q.Scopes(dbutil.ContainsFold("email", email))
	}
	if country := strings.TrimSpace(filter.Country); country != "" {
		q = q.Scopes(dbutil.JSONFieldEquals("shipping_address", "country", strings.ToUpper(country)))
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		q = q.Where("source = ?", source)
	}

	var orders []models.Order
	if errFind := q.Order("created_at DESC").Limit(limit).Find(&orders).Error; errFind != nil {
		return nil, fmt.Errorf("list orders: %w", errFind)
	}
	if len(orders) == 0 {
		return []OrderSummary{}, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	var counts []struct {
		OrderID      string
		CardCount    int
		ClaimedCount int
	}
	if errCount := s.db.WithContext(ctx).Model(&models.Card{}).
		Select("order_id, COUNT(*) AS card_count, SUM(CASE WHEN claimed_at IS NOT NULL THEN 1 ELSE 0 END) AS claimed_count").
		Where("order_id IN ?", ids).
		Group("order_id").
		Scan(&counts).Error; errCount != nil {
		return nil, fmt.Errorf("count cards: %w", errCount)
	}
	byOrder := make(map[string]int, len(counts))
	for i, c := range counts {
		byOrder[c.OrderID] = i
	}

	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		summary := OrderSummary{Order: o}
		if idx, ok := byOrder[o.ID]; ok {
			summary.CardCount = counts[idx].CardCount
			summary.ClaimedCount = counts[idx].ClaimedCount
		}
		out = append(out, summary)
	}
	return out, nil
}
