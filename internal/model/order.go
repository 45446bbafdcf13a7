package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus is the Khalti-reported state of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusCompleted         PaymentStatus = "Completed"
	PaymentStatusPending           PaymentStatus = "Pending"
	PaymentStatusExpired           PaymentStatus = "Expired"
	PaymentStatusInitiated         PaymentStatus = "Initiated"
	PaymentStatusRefunded          PaymentStatus = "Refunded"
	PaymentStatusUserCanceled      PaymentStatus = "User canceled"
	PaymentStatusPartiallyRefunded PaymentStatus = "Partially Refunded"
)

var paymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusCompleted:         {},
	PaymentStatusPending:           {},
	PaymentStatusExpired:           {},
	PaymentStatusInitiated:         {},
	PaymentStatusRefunded:          {},
	PaymentStatusUserCanceled:      {},
	PaymentStatusPartiallyRefunded: {},
}

// Valid reports whether s is one of the statuses an order may carry.
func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatuses[s]
	return ok
}

// OrderProduct is one line of an order as submitted by the buyer.
type OrderProduct struct {
	ProductID       string `json:"productId"`
	OrderedQuantity int    `json:"orderedQuantity"`
}

type Order struct {
	ID                string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	BuyerID           string         `gorm:"type:varchar(36);index;not null" json:"buyerId"`
	TotalAmount       float64        `gorm:"not null" json:"totalAmount"`
	PaymentStatus     PaymentStatus  `gorm:"type:varchar(32);index;not null" json:"paymentStatus"`
	ProductList       []OrderProduct `gorm:"type:text;serializer:json;not null" json:"productList"`
	Pidx              string         `gorm:"type:varchar(64);index;not null" json:"pidx"`
	PurchaseOrderID   string         `gorm:"type:varchar(64);not null" json:"purchaseOrderId"`
	StatusObservedAt  *time.Time     `json:"statusObservedAt,omitempty"`
	ReconcileAttempts int            `gorm:"not null;default:0" json:"-"`
	CreatedAt         time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime;index" json:"updatedAt"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
