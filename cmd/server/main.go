package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsystem/internal/config"
	"shopsystem/internal/handler"
	"shopsystem/internal/infrastructure/cache"
	"shopsystem/internal/infrastructure/database"
	"shopsystem/internal/infrastructure/khalti"
	"shopsystem/internal/infrastructure/mq"
	"shopsystem/internal/job"
	"shopsystem/internal/service"
	"shopsystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Main] load .env failed: %v", err)
	}

	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("[Main] load config failed: %v", err)
	}

	ids, err := idgen.NewSnowflake(1)
	if err != nil {
		log.Fatalf("[Main] init id generator failed: %v", err)
	}

	db, err := database.InitMySQL(&cfg.MySQL)
	if err != nil {
		log.Fatalf("[Main] init mysql failed: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("[Main] close mysql failed: %v", err)
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.InitRedis(&cfg.Redis)
		if err != nil {
			log.Fatalf("[Main] init redis failed: %v", err)
		}
		defer redisClient.Close()
	} else {
		log.Println("[Main] redis not configured, user cache and login limiter disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paymentService := service.NewPaymentService(db, khalti.NewClient(&cfg.Khalti), ids, cfg)

	if cfg.Kafka.Enabled() {
		producer, err := mq.NewProducer(&cfg.Kafka)
		if err != nil {
			log.Fatalf("[Main] init kafka failed: %v", err)
		}
		defer producer.Close()

		outboxSender := job.NewOutboxSender(db, producer, cfg)
		go outboxSender.Start(ctx)
	} else {
		log.Println("[Main] kafka not configured, payment status events disabled")
	}

	reconcileJob := job.NewPaymentReconcileJob(db, paymentService, cfg)
	go reconcileJob.Start(ctx)

	h := handler.NewHandler(
		service.NewAuthService(db, redisClient, cfg),
		service.NewProductService(db),
		service.NewCartService(db, redisClient, cfg),
		service.NewAdminService(db),
		paymentService,
	)
	router := handler.SetupRouter(h, cfg.Server.Mode)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("[Main] listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Main] server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Main] shutting down...")

	// stop background jobs before draining requests
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] server shutdown error: %v", err)
	}

	log.Println("[Main] server stopped")
}
