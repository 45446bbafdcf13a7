package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopsystem/internal/config"
	"shopsystem/internal/infrastructure/lock"
	"shopsystem/internal/model"
	"shopsystem/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CartActionInc = "inc"
	CartActionDec = "dec"
)

type CartService struct {
	redisClient *redis.Client
	lockTTL     time.Duration
	cartRepo    *repository.CartRepository
	productRepo *repository.ProductRepository
}

// NewCartService builds the service; a nil redis client disables the per-item lock.
func NewCartService(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *CartService {
	ttl := time.Duration(cfg.Business.CartLockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &CartService{
		redisClient: rdb,
		lockTTL:     ttl,
		cartRepo:    repository.NewCartRepository(db),
		productRepo: repository.NewProductRepository(db),
	}
}

// lockItem serializes changes to one cart line across instances. Without Redis
// it is a no-op.
func (s *CartService) lockItem(ctx context.Context, buyerID, productID string) (func(), error) {
	if s.redisClient == nil {
		return func() {}, nil
	}
	itemLock := lock.NewCartItemLock(s.redisClient, buyerID, productID, uuid.NewString(), s.lockTTL)
	if err := itemLock.Lock(ctx, 50*time.Millisecond, 20); err != nil {
		return nil, fmt.Errorf("lock cart item: %w", err)
	}
	return func() { itemLock.Unlock(ctx) }, nil
}

func (s *CartService) AddItem(ctx context.Context, buyerID, productID string, quantity int) error {
	unlock, err := s.lockItem(ctx, buyerID, productID)
	if err != nil {
		return err
	}
	defer unlock()

	_, err = s.cartRepo.Get(ctx, buyerID, productID)
	if err == nil {
		return ErrCartItemExists
	}
	if !errors.Is(err, repository.ErrCartItemNotFound) {
		return fmt.Errorf("find cart item: %w", err)
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if quantity > product.Quantity {
		return ErrOutOfStock
	}

	err = s.cartRepo.Create(ctx, &model.CartItem{
		BuyerID:         buyerID,
		ProductID:       productID,
		OrderedQuantity: quantity,
	})
	if errors.Is(err, repository.ErrCartItemExists) {
		return ErrCartItemExists
	}
	return err
}

func (s *CartService) Flush(ctx context.Context, buyerID string) error {
	_, err := s.cartRepo.DeleteByBuyer(ctx, nil, buyerID)
	return err
}

func (s *CartService) RemoveItem(ctx context.Context, buyerID, productID string) error {
	return s.cartRepo.DeleteItem(ctx, buyerID, productID)
}

func (s *CartService) Count(ctx context.Context, buyerID string) (int64, error) {
	return s.cartRepo.CountByBuyer(ctx, buyerID)
}

func (s *CartService) List(ctx context.Context, buyerID string) ([]*model.CartLine, error) {
	lines, err := s.cartRepo.ListLines(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []*model.CartLine{}
	}
	return lines, nil
}

// UpdateQuantity moves the ordered quantity one step up or down, staying within 1..stock.
func (s *CartService) UpdateQuantity(ctx context.Context, buyerID, productID, action string) error {
	if action != CartActionInc && action != CartActionDec {
		return ErrInvalidAction
	}

	unlock, err := s.lockItem(ctx, buyerID, productID)
	if err != nil {
		return err
	}
	defer unlock()

	item, err := s.cartRepo.Get(ctx, buyerID, productID)
	if err != nil {
		return err
	}

	quantity := item.OrderedQuantity + 1
	if action == CartActionDec {
		quantity = item.OrderedQuantity - 1
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if quantity > product.Quantity {
		return ErrOutOfStock
	}
	if quantity < 1 {
		return ErrQuantityBelowOne
	}

	return s.cartRepo.UpdateQuantity(ctx, buyerID, productID, quantity)
}
