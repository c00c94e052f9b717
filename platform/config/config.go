// Package config loads the service configuration from the environment.
// Each consumer depends on the narrow interface it needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int32
	// GetMigrationsDir is empty when the embedded migrations should run.
	GetMigrationsDir() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RateLimitConfig provides settings for the supplier portal rate limiter.
type RateLimitConfig interface {
	GetPortalRateLimitRPS() float64
	GetPortalRateLimitBurst() int
}

// SchedulerConfig provides settings for asynq background processing.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSweepInterval() time.Duration
	GetOutboxPollInterval() time.Duration
}

// BiddingConfig provides the defaults of the competitive bidding engine.
type BiddingConfig interface {
	GetDefaultCounterProposalMinutes() int
	GetDefaultReminderPercentage() int
	GetQuantityPolicy() QuantityPolicy
}

// SupplierConfig provides settings for the supplier directory.
type SupplierConfig interface {
	GetPhoneDefaultRegion() string
}

// QuantityPolicy holds the tolerance bands (in percent) used to classify
// offered quantities against requested quantities.
type QuantityPolicy struct {
	ExactTolerancePercent    float64 `yaml:"exact_tolerance_percent"`
	AdequateTolerancePercent float64 `yaml:"adequate_tolerance_percent"`
	VeryInsufficientPercent  float64 `yaml:"very_insufficient_percent"`
}

// Config is the root configuration loaded from the environment.
type Config struct {
	Env                           string
	HTTPAddr                      string
	DatabaseURL                   string
	DatabaseMaxConns              int32
	MigrationsDir                 string
	JWTAccessSecret               string
	CORSAllowAll                  bool
	CORSOrigins                   []string
	CORSAllowCreds                bool
	PortalRateLimitRPS            float64
	PortalRateLimitBurst          int
	RedisURL                      string
	RedisTLSInsecure              bool
	AsynqQueueName                string
	AsynqConcurrency              int
	SweepInterval                 time.Duration
	OutboxPollInterval            time.Duration
	DefaultCounterProposalMinutes int
	DefaultReminderPercentage     int
	QuantityPolicy                QuantityPolicy
	PhoneDefaultRegion            string
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int32 { return c.DatabaseMaxConns }
func (c *Config) GetMigrationsDir() string   { return c.MigrationsDir }

func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetPortalRateLimitRPS() float64 { return c.PortalRateLimitRPS }
func (c *Config) GetPortalRateLimitBurst() int   { return c.PortalRateLimitBurst }

func (c *Config) GetRedisURL() string                  { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool            { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string            { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int             { return c.AsynqConcurrency }
func (c *Config) GetSweepInterval() time.Duration      { return c.SweepInterval }
func (c *Config) GetOutboxPollInterval() time.Duration { return c.OutboxPollInterval }

func (c *Config) GetDefaultCounterProposalMinutes() int { return c.DefaultCounterProposalMinutes }
func (c *Config) GetDefaultReminderPercentage() int     { return c.DefaultReminderPercentage }
func (c *Config) GetQuantityPolicy() QuantityPolicy     { return c.QuantityPolicy }

func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                           getEnv("APP_ENV", "development"),
		HTTPAddr:                      getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                   getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:              int32(mustInt(getEnv("DATABASE_MAX_CONNS", "25"))),
		MigrationsDir:                 getEnv("MIGRATIONS_DIR", ""),
		JWTAccessSecret:               getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                  corsAllowAll,
		CORSOrigins:                   corsOrigins,
		CORSAllowCreds:                strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		PortalRateLimitRPS:            mustFloat(getEnv("PORTAL_RATE_LIMIT_RPS", "5")),
		PortalRateLimitBurst:          mustInt(getEnv("PORTAL_RATE_LIMIT_BURST", "20")),
		RedisURL:                      getEnv("REDIS_URL", ""),
		RedisTLSInsecure:              strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:                getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:              mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SweepInterval:                 mustDuration(getEnv("QUOTATION_SWEEP_INTERVAL", "1m")),
		OutboxPollInterval:            mustDuration(getEnv("OUTBOX_POLL_INTERVAL", "2s")),
		DefaultCounterProposalMinutes: mustInt(getEnv("COUNTER_PROPOSAL_MINUTES", "15")),
		DefaultReminderPercentage:     mustInt(getEnv("REMINDER_PERCENTAGE", "33")),
		QuantityPolicy: QuantityPolicy{
			ExactTolerancePercent:    mustFloat(getEnv("QUANTITY_EXACT_TOLERANCE_PERCENT", "1")),
			AdequateTolerancePercent: mustFloat(getEnv("QUANTITY_ADEQUATE_TOLERANCE_PERCENT", "5")),
			VeryInsufficientPercent:  mustFloat(getEnv("QUANTITY_VERY_INSUFFICIENT_PERCENT", "50")),
		},
		PhoneDefaultRegion: strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "BR")),
	}

	if path := getEnv("QUANTITY_POLICY_FILE", ""); path != "" {
		policy, err := LoadQuantityPolicy(path, cfg.QuantityPolicy)
		if err != nil {
			return nil, err
		}
		cfg.QuantityPolicy = policy
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.DefaultCounterProposalMinutes <= 0 {
		return nil, fmt.Errorf("COUNTER_PROPOSAL_MINUTES must be positive")
	}
	if cfg.DefaultReminderPercentage < 0 || cfg.DefaultReminderPercentage > 100 {
		return nil, fmt.Errorf("REMINDER_PERCENTAGE must be between 0 and 100")
	}
	if err := cfg.QuantityPolicy.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadQuantityPolicy reads tolerance bands from a YAML file. Fields missing
// from the file keep the values of base.
func LoadQuantityPolicy(path string, base QuantityPolicy) (QuantityPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read quantity policy: %w", err)
	}
	policy := base
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return base, fmt.Errorf("parse quantity policy: %w", err)
	}
	return policy, policy.Validate()
}

// Validate checks the bands are ordered and non-negative.
func (p QuantityPolicy) Validate() error {
	if p.ExactTolerancePercent < 0 || p.AdequateTolerancePercent < 0 || p.VeryInsufficientPercent < 0 {
		return fmt.Errorf("quantity policy bands must be non-negative")
	}
	if p.ExactTolerancePercent > p.AdequateTolerancePercent {
		return fmt.Errorf("exact tolerance cannot exceed adequate tolerance")
	}
	if p.AdequateTolerancePercent > p.VeryInsufficientPercent {
		return fmt.Errorf("adequate tolerance cannot exceed the very insufficient threshold")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
