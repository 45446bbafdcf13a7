package repository

import (
	"context"

	"shopsystem/internal/model"

	"gorm.io/gorm"
)

const maxLastErrorLen = 255

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(msg).Error
}

// GetPendingMessages returns unsent messages in insertion order.
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxStatusSent,
			"last_error": "",
		}).Error
}

// RecordFailure counts one failed delivery and parks the message as FAILED once
// maxRetries attempts have failed. It reports whether the message was parked.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, maxRetries int, cause error) (bool, error) {
	lastError := cause.Error()
	if len(lastError) > maxLastErrorLen {
		lastError = lastError[:maxLastErrorLen]
	}

	failed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.OutboxMessage{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"retry_count": gorm.Expr("retry_count + 1"),
				"last_error":  lastError,
			}).Error
		if err != nil {
			return err
		}

		var msg model.OutboxMessage
		if err := tx.Select("retry_count").First(&msg, id).Error; err != nil {
			return err
		}
		if msg.RetryCount < maxRetries {
			return nil
		}

		failed = true
		return tx.Model(&model.OutboxMessage{}).
			Where("id = ?", id).
			Update("status", model.OutboxStatusFailed).Error
	})
	return failed, err
}
