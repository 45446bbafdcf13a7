package model

import (
	"encoding/json"
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage is a broker message written in the same transaction as the
// state change it announces. LastError keeps the most recent publish failure.
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);index;not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	LastError  string    `gorm:"type:varchar(255)" json:"last_error"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// PaymentStatusEvent announces that a gateway status was applied to the orders of a pidx.
type PaymentStatusEvent struct {
	Pidx          string        `json:"pidx"`
	BuyerID       string        `json:"buyer_id"`
	Status        PaymentStatus `json:"status"`
	OrdersUpdated int64         `json:"orders_updated"`
	ObservedAt    time.Time     `json:"observed_at"`
}

// OutboxMessage wraps the event as a pending message keyed by pidx, so all
// events of one payment land on the same partition.
func (e *PaymentStatusEvent) OutboxMessage(topic string) (*OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		MessageKey: e.Pidx,
		Topic:      topic,
		Payload:    string(payload),
		Status:     OutboxStatusPending,
	}, nil
}
