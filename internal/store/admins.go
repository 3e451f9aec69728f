package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dbutil "github.com/exact3design/soundcard/internal/db"
	"github.com/exact3design/soundcard/internal/models"
	"gorm.io/gorm"
)

// Admins is the gorm-backed operator account store.
type Admins struct {
	db *gorm.DB
}

// NewAdmins wires an admin store to its database handle.
func NewAdmins(db *gorm.DB) *Admins {
	return &Admins{db: db}
}

// FindByUsername loads an operator by login name.
func (s *Admins) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if errFind := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&admin).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", errFind)
	}
	return &admin, nil
}

// FindByID loads an operator by primary key.
func (s *Admins) FindByID(ctx context.Context, id uint64) (*models.Admin, error) {
	var admin models.Admin
	if errFind := s.db.WithContext(ctx).First(&admin, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", errFind)
	}
	return &admin, nil
}

// Create inserts an operator account.
func (s *Admins) Create(ctx context.Context, admin *models.Admin) error {
	if errCreate := s.db.WithContext(ctx).Create(admin).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return ErrDuplicate
		}
		return fmt.Errorf("create admin: %w", errCreate)
	}
	return nil
}
