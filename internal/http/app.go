package http

import (
	"context"

	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"
)

// RouterConfig is everything the router reads from configuration.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.RateLimitConfig
}

// HealthChecker backs /api/ready.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is built by cmd/api and handed to the router. Health may be nil.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
