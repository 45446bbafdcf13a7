package job

import (
	"context"
	"log"
	"time"

	"shopsystem/internal/config"
	"shopsystem/internal/model"
	"shopsystem/internal/repository"
	"shopsystem/internal/service"

	"gorm.io/gorm"
)

// PaymentReconcileJob re-checks orders Khalti has not settled yet, so orders whose
// buyer never came back to verify still end up Completed, Expired or canceled.
type PaymentReconcileJob struct {
	orderRepo      *repository.OrderRepository
	paymentService *service.PaymentService
	stopCh         chan struct{}
	interval       time.Duration
	staleAfter     time.Duration
	batchSize      int
}

func NewPaymentReconcileJob(db *gorm.DB, paymentService *service.PaymentService, cfg *config.Config) *PaymentReconcileJob {
	batch := cfg.Business.ReconcileBatchSize
	if batch <= 0 {
		batch = 50
	}
	return &PaymentReconcileJob{
		orderRepo:      repository.NewOrderRepository(db),
		paymentService: paymentService,
		stopCh:         make(chan struct{}),
		interval:       time.Duration(cfg.Business.ReconcileIntervalSeconds) * time.Second,
		staleAfter:     time.Duration(cfg.Business.ReconcileAfterMinutes) * time.Minute,
		batchSize:      batch,
	}
}

var unsettledStatuses = []model.PaymentStatus{
	model.PaymentStatusInitiated,
	model.PaymentStatusPending,
}

func (j *PaymentReconcileJob) Start(ctx context.Context) {
	if j.interval <= 0 {
		log.Println("[PaymentReconcileJob] disabled")
		return
	}
	log.Println("[PaymentReconcileJob] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[PaymentReconcileJob] context cancelled, exiting")
			return
		case <-j.stopCh:
			log.Println("[PaymentReconcileJob] stopped")
			return
		case <-ticker.C:
			j.reconcileStaleOrders(ctx)
		}
	}
}

func (j *PaymentReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *PaymentReconcileJob) reconcileStaleOrders(ctx context.Context) {
	before := time.Now().Add(-j.staleAfter)
	orders, err := j.orderRepo.FindStale(ctx, unsettledStatuses, before, j.batchSize)
	if err != nil {
		log.Printf("[PaymentReconcileJob] load stale orders failed: %v", err)
		return
	}

	if len(orders) == 0 {
		return
	}

	log.Printf("[PaymentReconcileJob] reconciling %d orders", len(orders))

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		status, err := j.paymentService.Reconcile(ctx, order)
		if err != nil {
			log.Printf("[PaymentReconcileJob] reconcile failed: orderID=%s, pidx=%s, attempts=%d, err=%v",
				order.ID, order.Pidx, order.ReconcileAttempts+1, err)
			if err := j.orderRepo.MarkReconcileFailed(ctx, order.ID, time.Now()); err != nil {
				log.Printf("[PaymentReconcileJob] mark reconcile failed failed: orderID=%s, err=%v", order.ID, err)
			}
			continue
		}
		if status != order.PaymentStatus {
			log.Printf("[PaymentReconcileJob] order %s: %s -> %s", order.ID, order.PaymentStatus, status)
		}
	}
}
