// Package http wires the procurement modules into one gin engine.
package http

import (
	"procurement_backend/platform/config"
	"procurement_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context (suppliers, quotations, bidding,
// notification) that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext hands each module the groups it may mount on. Buyer and
// Supplier already enforce their role; Protected only requires a token.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1 without authentication.
	V1        *gin.RouterGroup
	Protected *gin.RouterGroup
	Buyer     *gin.RouterGroup
	// Supplier is mounted at /api/v1/portal.
	Supplier       *gin.RouterGroup
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
	// PortalRateLimiter throttles supplier offer writes per supplier.
	PortalRateLimiter *httpkit.RateLimiter
}
