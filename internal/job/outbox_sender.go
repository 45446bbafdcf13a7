package job

import (
	"context"
	"log"
	"time"

	"shopsystem/internal/config"
	"shopsystem/internal/model"
	"shopsystem/internal/repository"

	"gorm.io/gorm"
)

// Publisher delivers one message to the broker.
type Publisher interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender relays pending outbox messages to Kafka.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  Publisher
	maxRetry   int
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, publisher Publisher, cfg *config.Config) *OutboxSender {
	interval := time.Duration(cfg.Business.OutboxIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		maxRetry:   cfg.Business.MaxRetryCount,
		stopCh:     make(chan struct{}),
		interval:   interval,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] context cancelled, exiting")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] load pending messages failed: %v", err)
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.publisher.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if err := s.outboxRepo.MarkSent(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] mark sent failed: id=%d, err=%v", msg.ID, err)
		}
		return
	}

	log.Printf("[OutboxSender] publish failed: id=%d, topic=%s, key=%s, err=%v", msg.ID, msg.Topic, msg.MessageKey, err)

	failed, ferr := s.outboxRepo.RecordFailure(ctx, msg.ID, s.maxRetry, err)
	if ferr != nil {
		log.Printf("[OutboxSender] record failure failed: id=%d, err=%v", msg.ID, ferr)
		return
	}
	if failed {
		log.Printf("[OutboxSender] giving up after %d attempts: id=%d", msg.RetryCount+1, msg.ID)
	}
}
