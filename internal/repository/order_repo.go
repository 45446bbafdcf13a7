package repository

import (
	"context"
	"time"

	"shopsystem/internal/model"

	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

// FindByPidx returns every order carrying pidx, oldest first.
func (r *OrderRepository) FindByPidx(ctx context.Context, pidx string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("pidx = ?", pidx).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// UpdateStatusByPidx overwrites the payment status of all orders matching pidx and returns
// how many rows matched. No match is not an error.
func (r *OrderRepository) UpdateStatusByPidx(ctx context.Context, tx *gorm.DB, pidx string, status model.PaymentStatus, observedAt time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("pidx = ?", pidx).
		Updates(map[string]interface{}{
			"payment_status":     status,
			"status_observed_at": observedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FindStale returns orders in one of statuses that have not changed since before.
func (r *OrderRepository) FindStale(ctx context.Context, statuses []model.PaymentStatus, before time.Time, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("payment_status IN ? AND updated_at < ?", statuses, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// MarkReconcileFailed counts a failed background lookup and moves the order to
// the back of the stale queue until it goes stale again.
func (r *OrderRepository) MarkReconcileFailed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reconcile_attempts": gorm.Expr("reconcile_attempts + 1"),
			"updated_at":         at,
		}).Error
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}
