package repository

import (
	"context"
	"errors"

	"shopsystem/internal/model"

	"gorm.io/gorm"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Create inserts the item. The (buyer, product) unique key turns a concurrent
// duplicate into ErrCartItemExists; this needs gorm's TranslateError.
func (r *CartRepository) Create(ctx context.Context, item *model.CartItem) error {
	err := r.db.WithContext(ctx).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCartItemExists
	}
	return err
}

func (r *CartRepository) Get(ctx context.Context, buyerID, productID string) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, buyerID, productID string, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Update("ordered_quantity", quantity).Error
}

func (r *CartRepository) DeleteItem(ctx context.Context, buyerID, productID string) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Delete(&model.CartItem{}).Error
}

// DeleteByBuyer removes the buyer's whole cart.
func (r *CartRepository) DeleteByBuyer(ctx context.Context, tx *gorm.DB, buyerID string) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Delete(&model.CartItem{})
	return result.RowsAffected, result.Error
}

func (r *CartRepository) CountByBuyer(ctx context.Context, buyerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("buyer_id = ?", buyerID).
		Count(&count).Error
	return count, err
}

// ListLines joins the buyer's cart with the products it references.
func (r *CartRepository) ListLines(ctx context.Context, buyerID string) ([]*model.CartLine, error) {
	var lines []*model.CartLine
	err := r.db.WithContext(ctx).
		Table("cart_items AS c").
		Select("c.product_id, c.ordered_quantity, p.name, p.brand, p.price, "+
			"p.quantity AS available_quantity, p.category, p.image").
		Joins("JOIN products AS p ON p.id = c.product_id").
		Where("c.buyer_id = ?", buyerID).
		Order("c.created_at ASC").
		Scan(&lines).Error
	return lines, err
}
