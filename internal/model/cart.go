package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one product in a buyer's cart. A buyer holds each product at most once.
type CartItem struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BuyerID         string    `gorm:"type:varchar(36);uniqueIndex:uk_cart_buyer_product;not null" json:"buyerId"`
	ProductID       string    `gorm:"type:varchar(36);uniqueIndex:uk_cart_buyer_product;not null" json:"productId"`
	OrderedQuantity int       `gorm:"not null" json:"orderedQuantity"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CartLine is a cart item joined with its product.
type CartLine struct {
	ProductID         string  `json:"productId"`
	OrderedQuantity   int     `json:"orderedQuantity"`
	Name              string  `json:"name"`
	Brand             string  `json:"brand"`
	Price             float64 `json:"price"`
	AvailableQuantity int     `json:"availableQuantity"`
	Category          string  `json:"category"`
	Image             *string `json:"image"`
}
