package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"shopsystem/internal/model"

	"github.com/go-redis/redis/v8"
)

// UserCache keeps authenticated users keyed by email so the auth middleware
// does not hit MySQL on every request.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

func userKey(email string) string {
	return "user:email:" + email
}

// cachedUser carries the password hash, which model.User hides from JSON.
type cachedUser struct {
	model.User
	Password string `json:"password"`
}

// Get returns (nil, nil) on a cache miss.
func (c *UserCache) Get(ctx context.Context, email string) (*model.User, error) {
	data, err := c.client.Get(ctx, userKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		return nil, err
	}
	user := cu.User
	user.Password = cu.Password
	return &user, nil
}

func (c *UserCache) Set(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(cachedUser{User: *user, Password: user.Password})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKey(user.Email), data, c.ttl).Err()
}
