package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order sources.
const (
	// OrderSourceEtsy marks orders placed through the marketplace.
	OrderSourceEtsy = "etsy"
	// OrderSourceDirect marks orders placed on the site.
	OrderSourceDirect = "direct"
)

// Order is one purchase; it produces a bounded number of cards.
type Order struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID assigned at creation.

	Source                 string         `gorm:"type:varchar(16);not null;default:'etsy'"` // Provenance tag.
	BuyerName              string         `gorm:"type:text;not null"`                       // Buyer full name.
	Email                  string         `gorm:"type:text;not null"`                       // Buyer email.
	Phone                  *string        `gorm:"type:text"`                                // Optional phone.
	ShippingAddress        datatypes.JSON `gorm:"type:jsonb;not null"`                      // Shipping address document.
	MarketplaceOrderNumber *string        `gorm:"type:text"`                                // Marketplace order reference.

	PackPath    *string    `gorm:"type:text"` // Object path of the production pack.
	EmailSentAt *time.Time // When the operator email went out.

	Cards []Card `gorm:"foreignKey:OrderID"` // Cards minted for the order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
