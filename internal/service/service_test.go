package service

import (
	"context"
	"testing"

	"shopsystem/internal/config"
	"shopsystem/internal/infrastructure/database"
	"shopsystem/internal/infrastructure/khalti"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:     "test-jwt-secret",
			TokenTTLHours: 1,
		},
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{PaymentStatus: "payment_status"},
		},
	}
}

// fakeGateway stands in for the Khalti client.
type fakeGateway struct {
	InitiateFunc func(ctx context.Context, p *khalti.Payment) (*khalti.InitiateResponse, error)
	LookupFunc   func(ctx context.Context, pidx string) (*khalti.LookupResponse, error)
}

func (f *fakeGateway) Initiate(ctx context.Context, p *khalti.Payment) (*khalti.InitiateResponse, error) {
	return f.InitiateFunc(ctx, p)
}

func (f *fakeGateway) Lookup(ctx context.Context, pidx string) (*khalti.LookupResponse, error) {
	return f.LookupFunc(ctx, pidx)
}

func initiateReturning(pidx string) func(context.Context, *khalti.Payment) (*khalti.InitiateResponse, error) {
	return func(_ context.Context, p *khalti.Payment) (*khalti.InitiateResponse, error) {
		raw := []byte(`{"pidx":"` + pidx + `","payment_url":"https://pay.khalti.com/?pidx=` + pidx + `","expires_in":1800}`)
		return &khalti.InitiateResponse{Pidx: pidx, PaymentURL: "https://pay.khalti.com/?pidx=" + pidx, ExpiresIn: 1800, Raw: raw}, nil
	}
}

func lookupReturning(statuses ...string) func(context.Context, string) (*khalti.LookupResponse, error) {
	i := 0
	return func(_ context.Context, pidx string) (*khalti.LookupResponse, error) {
		s := statuses[i]
		if i < len(statuses)-1 {
			i++
		}
		return &khalti.LookupResponse{Pidx: pidx, Status: s}, nil
	}
}
