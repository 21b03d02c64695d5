package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Payment   PaymentConfig   `yaml:"payment"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port         string        `yaml:"port" validate:"required,numeric"`
	Env          string        `yaml:"env" validate:"oneof=development staging production test"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" validate:"required"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"gte=1"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// JWTConfig signs the console session cookie, not anything upstream issues.
type JWTConfig struct {
	Secret     string        `yaml:"secret" validate:"required,min=16"`
	Expiry     time.Duration `yaml:"expiry" validate:"gt=0"`
	Issuer     string        `yaml:"issuer"`
	CookieName string        `yaml:"cookie_name" validate:"required"`
}

// UpstreamConfig points at the marketplace API the console administers.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type PaymentConfig struct {
	// Provider is "campushub" (real gateway via the upstream API) or "stub".
	Provider     string        `yaml:"provider" validate:"oneof=campushub stub"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
	MaxPolls     int           `yaml:"max_polls" validate:"gte=1"`
	DismissAfter time.Duration `yaml:"dismiss_after" validate:"gt=0"`
	FixedAmount  int64         `yaml:"fixed_amount" validate:"gte=1"`
	// StubSettleAfter is how many polls the stub gateway answers "pending" before "success".
	StubSettleAfter int `yaml:"stub_settle_after" validate:"gte=0"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
}

type RateLimitConfig struct {
	RPS        float64 `yaml:"rps" validate:"gt=0"`
	Burst      int     `yaml:"burst" validate:"gte=1"`
	LoginRPS   float64 `yaml:"login_rps" validate:"gt=0"`
	LoginBurst int     `yaml:"login_burst" validate:"gte=1"`
}

func (c *Config) IsProduction() bool { return c.Server.Env == "production" }

// Default returns the built-in configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8099",
			Env:          "development",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             "hubadmin:hubadmin@tcp(localhost:3306)/hubadmin?charset=utf8mb4&parseTime=True&loc=Local",
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			Secret:     "change-me-in-production",
			Expiry:     12 * time.Hour,
			Issuer:     "hubadmin",
			CookieName: "hubadmin_session",
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://campushub4293.pythonanywhere.com",
			Timeout: 30 * time.Second,
		},
		Payment: PaymentConfig{
			Provider:        "campushub",
			PollInterval:    5 * time.Second,
			MaxPolls:        24,
			DismissAfter:    5 * time.Second,
			FixedAmount:     1000,
			StubSettleAfter: 3,
		},
		Session: SessionConfig{
			IdleTimeout:   12 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			RPS:        20,
			Burst:      40,
			LoginRPS:   0.2,
			LoginBurst: 5,
		},
	}
}

// Load builds the config from defaults, an optional YAML file (HUBADMIN_CONFIG)
// and environment variables (a .env file in the working directory is honoured).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] .env not loaded: %v", err)
	}
	cfg := Default()
	if path := os.Getenv("HUBADMIN_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Env, "APP_ENV")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.Upstream.BaseURL, "UPSTREAM_BASE_URL")
	setDuration(&c.Upstream.Timeout, "UPSTREAM_TIMEOUT")
	setString(&c.Payment.Provider, "PAYMENT_PROVIDER")
	setDuration(&c.Payment.PollInterval, "PAYMENT_POLL_INTERVAL")
	setInt(&c.Payment.MaxPolls, "PAYMENT_MAX_POLLS")
	setDuration(&c.Payment.DismissAfter, "PAYMENT_DISMISS_AFTER")
	if v := os.Getenv("PAYMENT_FIXED_AMOUNT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Payment.FixedAmount = n
		}
	}
}

var validate = validator.New()

// Validate checks the struct tags above.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.IsProduction() && c.JWT.Secret == Default().JWT.Secret {
		return errors.New("invalid config: JWT_SECRET must be set in production")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
