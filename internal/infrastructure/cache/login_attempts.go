package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// LoginAttempts counts failed logins per email and blocks the email for a
// cooldown once the limit is reached.
type LoginAttempts struct {
	client      *redis.Client
	maxAttempts int
	cooldown    time.Duration
}

func NewLoginAttempts(client *redis.Client, maxAttempts int, cooldown time.Duration) *LoginAttempts {
	return &LoginAttempts{client: client, maxAttempts: maxAttempts, cooldown: cooldown}
}

func attemptsKey(email string) string { return "login_attempts:" + email }
func cooldownKey(email string) string { return "login_cooldown:" + email }

// Blocked reports whether email is cooling down and for how long.
func (l *LoginAttempts) Blocked(ctx context.Context, email string) (bool, time.Duration, error) {
	ttl, err := l.client.TTL(ctx, cooldownKey(email)).Result()
	if err != nil {
		return false, 0, err
	}
	// missing keys report a negative ttl
	if ttl <= 0 {
		return false, 0, nil
	}
	return true, ttl, nil
}

// Fail records a failed attempt and starts the cooldown when the limit is hit.
func (l *LoginAttempts) Fail(ctx context.Context, email string) error {
	// the window slides: each failure pushes the counter's expiry out again
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptsKey(email))
	pipe.Expire(ctx, attemptsKey(email), l.cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if incr.Val() < int64(l.maxAttempts) {
		return nil
	}

	pipe = l.client.TxPipeline()
	pipe.Set(ctx, cooldownKey(email), "1", l.cooldown)
	pipe.Del(ctx, attemptsKey(email))
	_, err := pipe.Exec(ctx)
	return err
}

func (l *LoginAttempts) Reset(ctx context.Context, email string) error {
	return l.client.Del(ctx, attemptsKey(email)).Err()
}
