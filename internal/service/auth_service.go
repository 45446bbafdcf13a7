package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"shopsystem/internal/config"
	"shopsystem/internal/infrastructure/cache"
	"shopsystem/internal/model"
	"shopsystem/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	cfg       *config.AuthConfig
	userRepo  *repository.UserRepository
	userCache *cache.UserCache
	attempts  *cache.LoginAttempts
}

// NewAuthService builds the service; with a nil redis client users are read from
// MySQL on every request and failed logins are not throttled.
func NewAuthService(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *AuthService {
	s := &AuthService{
		cfg:      &cfg.Auth,
		userRepo: repository.NewUserRepository(db),
	}
	if rdb != nil {
		s.userCache = cache.NewUserCache(rdb, time.Duration(cfg.Auth.UserCacheMinutes)*time.Minute)
		s.attempts = cache.NewLoginAttempts(rdb, cfg.Auth.MaxLoginAttempts,
			time.Duration(cfg.Auth.LoginCooldownMins)*time.Minute)
	}
	return s
}

type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Gender    string
	Role      string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(req.Password)), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleBuyer
	}

	user := &model.User{
		Email:     email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Gender:    req.Gender,
		Role:      role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and returns the user with a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = normalizeEmail(email)

	if s.attempts != nil {
		blocked, ttl, err := s.attempts.Blocked(ctx, email)
		if err != nil {
			log.Printf("[AuthService] read login attempts failed: email=%s, err=%v", email, err)
		} else if blocked {
			log.Printf("[AuthService] login blocked: email=%s, retryIn=%v", email, ttl)
			return nil, "", ErrTooManyAttempts
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.recordFailure(ctx, email)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(strings.TrimSpace(password))); err != nil {
		s.recordFailure(ctx, email)
		return nil, "", ErrInvalidCredentials
	}

	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, email); err != nil {
			log.Printf("[AuthService] reset login attempts failed: email=%s, err=%v", email, err)
		}
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Fail(ctx, email); err != nil {
		log.Printf("[AuthService] record login failure failed: email=%s, err=%v", email, err)
	}
}

// IssueToken signs an HS256 access token carrying the user's email and role.
func (s *AuthService) IssueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"email": user.Email,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Duration(s.cfg.TokenTTLHours) * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies an access token and loads the user it names.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrInvalidToken
	}

	return s.findUser(ctx, email)
}

func (s *AuthService) findUser(ctx context.Context, email string) (*model.User, error) {
	if s.userCache != nil {
		user, err := s.userCache.Get(ctx, email)
		if err != nil {
			log.Printf("[AuthService] user cache read failed: email=%s, err=%v", email, err)
		} else if user != nil {
			return user, nil
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.userCache != nil {
		if err := s.userCache.Set(ctx, user); err != nil {
			log.Printf("[AuthService] user cache write failed: email=%s, err=%v", email, err)
		}
	}
	return user, nil
}
