package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"shopsystem/internal/config"
	"shopsystem/internal/infrastructure/khalti"
	"shopsystem/internal/model"
	"shopsystem/internal/repository"
	"shopsystem/pkg/idgen"

	"gorm.io/gorm"
)

// PaymentGateway is the part of the Khalti client the payment flow needs.
type PaymentGateway interface {
	Initiate(ctx context.Context, p *khalti.Payment) (*khalti.InitiateResponse, error)
	Lookup(ctx context.Context, pidx string) (*khalti.LookupResponse, error)
}

// PaymentService runs the Khalti payment flow: initiate records an Initiated order,
// verify copies the gateway status onto the order and clears the buyer's cart once
// the payment is Completed.
type PaymentService struct {
	db         *gorm.DB
	cfg        *config.Config
	gateway    PaymentGateway
	ids        *idgen.Snowflake
	orderRepo  *repository.OrderRepository
	cartRepo   *repository.CartRepository
	outboxRepo *repository.OutboxRepository
	now        func() time.Time
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway, ids *idgen.Snowflake, cfg *config.Config) *PaymentService {
	return &PaymentService{
		db:         db,
		cfg:        cfg,
		gateway:    gateway,
		ids:        ids,
		orderRepo:  repository.NewOrderRepository(db),
		cartRepo:   repository.NewCartRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		now:        time.Now,
	}
}

type InitiatePaymentRequest struct {
	BuyerID     string
	Amount      float64
	ProductList []model.OrderProduct
}

type InitiatePaymentResult struct {
	Order *model.Order
	// PaymentDetails is the Khalti initiate response body, unmodified.
	PaymentDetails json.RawMessage
}

// Initiate starts a Khalti payment and records the order. Nothing is stored when
// the gateway call fails. Every call creates a new order.
func (s *PaymentService) Initiate(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResult, error) {
	purchaseOrderID := s.ids.PurchaseOrderID()

	resp, err := s.gateway.Initiate(ctx, &khalti.Payment{
		Amount:            req.Amount,
		PurchaseOrderID:   purchaseOrderID,
		PurchaseOrderName: "item-" + purchaseOrderID,
	})
	if err != nil {
		log.Printf("[PaymentService] initiate failed: buyerID=%s, purchaseOrderID=%s, err=%v", req.BuyerID, purchaseOrderID, err)
		return nil, fmt.Errorf("%w: %w", ErrPaymentInitiation, err)
	}

	order := &model.Order{
		BuyerID:         req.BuyerID,
		TotalAmount:     req.Amount,
		PaymentStatus:   model.PaymentStatusInitiated,
		ProductList:     req.ProductList,
		Pidx:            resp.Pidx,
		PurchaseOrderID: purchaseOrderID,
	}
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		log.Printf("[PaymentService] save order failed: buyerID=%s, pidx=%s, err=%v", req.BuyerID, resp.Pidx, err)
		return nil, fmt.Errorf("%w: save order: %w", ErrPaymentInitiation, err)
	}

	log.Printf("[PaymentService] payment initiated: buyerID=%s, pidx=%s, amount=%v", req.BuyerID, order.Pidx, order.TotalAmount)

	return &InitiatePaymentResult{
		Order:          order,
		PaymentDetails: resp.Raw,
	}, nil
}

type VerifyPaymentResult struct {
	Status        model.PaymentStatus
	OrdersUpdated int64
	// Completed is true when Khalti reports the payment Completed and the cart was cleared.
	Completed bool
}

// Verify looks the payment up at Khalti and copies the reported status onto every
// order with that pidx, last write wins. A status other than Completed is a normal
// result with Completed=false. On Completed the buyer's whole cart is deleted.
func (s *PaymentService) Verify(ctx context.Context, buyerID, pidx string) (*VerifyPaymentResult, error) {
	lookup, err := s.gateway.Lookup(ctx, pidx)
	if err != nil {
		log.Printf("[PaymentService] lookup failed: pidx=%s, err=%v", pidx, err)
		return nil, fmt.Errorf("%w: %w", ErrPaymentVerification, err)
	}

	status := model.PaymentStatus(lookup.Status)
	updated, err := s.recordStatus(ctx, buyerID, pidx, status)
	if err != nil {
		log.Printf("[PaymentService] record status failed: pidx=%s, status=%s, err=%v", pidx, status, err)
		return nil, fmt.Errorf("%w: %w", ErrPaymentVerification, err)
	}

	result := &VerifyPaymentResult{Status: status, OrdersUpdated: updated}
	if status != model.PaymentStatusCompleted {
		log.Printf("[PaymentService] payment not completed: pidx=%s, status=%s, orders=%d", pidx, status, updated)
		return result, nil
	}

	// orders stay Completed if this fails
	if _, err := s.cartRepo.DeleteByBuyer(ctx, nil, buyerID); err != nil {
		log.Printf("[PaymentService] clear cart failed: buyerID=%s, pidx=%s, err=%v", buyerID, pidx, err)
		return nil, fmt.Errorf("%w: clear cart: %w", ErrPaymentVerification, err)
	}

	result.Completed = true
	log.Printf("[PaymentService] payment completed: buyerID=%s, pidx=%s, orders=%d", buyerID, pidx, updated)
	return result, nil
}

// Orders lists the buyer's orders, newest first.
func (s *PaymentService) Orders(ctx context.Context, buyerID string) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	return orders, nil
}

// OrdersByPidx returns the buyer's orders for one payment. Orders of other buyers
// are filtered out, so an empty result means not found.
func (s *PaymentService) OrdersByPidx(ctx context.Context, buyerID, pidx string) ([]*model.Order, error) {
	orders, err := s.orderRepo.FindByPidx(ctx, pidx)
	if err != nil {
		return nil, err
	}

	owned := make([]*model.Order, 0, len(orders))
	for _, o := range orders {
		if o.BuyerID == buyerID {
			owned = append(owned, o)
		}
	}
	if len(owned) == 0 {
		return nil, ErrOrderNotFound
	}
	return owned, nil
}

// Reconcile refreshes a single order from Khalti. Carts are left alone.
func (s *PaymentService) Reconcile(ctx context.Context, order *model.Order) (model.PaymentStatus, error) {
	lookup, err := s.gateway.Lookup(ctx, order.Pidx)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", order.Pidx, err)
	}

	status := model.PaymentStatus(lookup.Status)
	if _, err := s.recordStatus(ctx, order.BuyerID, order.Pidx, status); err != nil {
		return "", err
	}
	return status, nil
}

// recordStatus applies status and, when status events are enabled, queues the
// event in the same transaction.
func (s *PaymentService) recordStatus(ctx context.Context, buyerID, pidx string, status model.PaymentStatus) (int64, error) {
	observedAt := s.now()

	var updated int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		n, err := s.applyStatus(ctx, tx, pidx, status, observedAt)
		if err != nil {
			return err
		}
		updated = n

		if n == 0 || !s.cfg.Kafka.Enabled() {
			return nil
		}

		event := &model.PaymentStatusEvent{
			Pidx:          pidx,
			BuyerID:       buyerID,
			Status:        status,
			OrdersUpdated: n,
			ObservedAt:    observedAt,
		}
		msg, err := event.OutboxMessage(s.cfg.Kafka.Topic.PaymentStatus)
		if err != nil {
			return err
		}
		return s.outboxRepo.Create(ctx, tx, msg)
	})
	return updated, err
}

// applyStatus is the only place order statuses are written. The current rule is
// last write wins: any known status replaces whatever the orders hold.
func (s *PaymentService) applyStatus(ctx context.Context, tx *gorm.DB, pidx string, status model.PaymentStatus, observedAt time.Time) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, status)
	}
	return s.orderRepo.UpdateStatusByPidx(ctx, tx, pidx, status, observedAt)
}
