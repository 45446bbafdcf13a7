package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Khalti   KhaltiConfig   `mapstructure:"khalti"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

// RedisConfig leaves Host empty to run without Redis.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	PaymentStatus string `mapstructure:"payment_status"`
}

// Enabled reports whether payment status events should be written and published.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic.PaymentStatus != ""
}

// KhaltiConfig holds the Khalti ePayment credentials and callback URLs.
type KhaltiConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	SecretKey      string `mapstructure:"secret_key"`
	ReturnURL      string `mapstructure:"return_url"`
	WebsiteURL     string `mapstructure:"website_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	TokenTTLHours     int    `mapstructure:"token_ttl_hours"`
	UserCacheMinutes  int    `mapstructure:"user_cache_minutes"`
	MaxLoginAttempts  int    `mapstructure:"max_login_attempts"`
	LoginCooldownMins int    `mapstructure:"login_cooldown_minutes"`
}

type BusinessConfig struct {
	MaxRetryCount            int `mapstructure:"max_retry_count"`
	OutboxIntervalMs         int `mapstructure:"outbox_interval_ms"`
	ReconcileIntervalSeconds int `mapstructure:"reconcile_interval_seconds"`
	ReconcileAfterMinutes    int `mapstructure:"reconcile_after_minutes"`
	ReconcileBatchSize       int `mapstructure:"reconcile_batch_size"`
	CartLockTTLSeconds       int `mapstructure:"cart_lock_ttl_seconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "shopsystem")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.log_level", "warn")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic.payment_status", "payment_status")

	v.SetDefault("khalti.base_url", "https://a.khalti.com/api/v2")
	v.SetDefault("khalti.secret_key", "")
	v.SetDefault("khalti.return_url", "http://localhost:3000/payment/")
	v.SetDefault("khalti.website_url", "http://localhost:3000/")
	v.SetDefault("khalti.timeout_seconds", 30)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("auth.user_cache_minutes", 10)
	v.SetDefault("auth.max_login_attempts", 5)
	v.SetDefault("auth.login_cooldown_minutes", 15)

	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.outbox_interval_ms", 500)
	v.SetDefault("business.reconcile_interval_seconds", 0)
	v.SetDefault("business.reconcile_after_minutes", 10)
	v.SetDefault("business.reconcile_batch_size", 50)
	v.SetDefault("business.cart_lock_ttl_seconds", 10)
}

// LoadConfig reads the configuration.
//
// Values come from the YAML file at configPath, then SHOP_* environment variables
// (khalti.secret_key -> SHOP_KHALTI_SECRET_KEY). An empty configPath loads defaults and
// environment only.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	ErrMissingKhaltiSecret = errors.New("khalti.secret_key is required")
	ErrMissingJWTSecret    = errors.New("auth.jwt_secret is required")
)

func (c *Config) Validate() error {
	if c.Khalti.SecretKey == "" {
		return ErrMissingKhaltiSecret
	}
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}
