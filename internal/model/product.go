package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(55);index;not null" json:"name"`
	Brand        string    `gorm:"type:varchar(55);not null" json:"brand"`
	Price        float64   `gorm:"not null" json:"price"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	Category     string    `gorm:"type:varchar(55);index;not null" json:"category"`
	FreeShipping bool      `gorm:"not null;default:false" json:"freeShipping"`
	AdminID      string    `gorm:"type:varchar(36);index;not null" json:"-"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	Image        *string   `gorm:"type:varchar(255)" json:"image"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Category struct {
	ID    string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title string `gorm:"type:varchar(55);not null" json:"title"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
