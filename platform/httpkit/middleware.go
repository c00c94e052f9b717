// Package httpkit holds the gin middleware, caller identity and response
// helpers shared by every module.
package httpkit

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// contextActorKey holds the Actor admitted by AuthRequired.
	contextActorKey = "actor"

	headerRequestID = "X-Request-ID"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

var knownRoles = []string{RoleBuyer, RoleSupplier}

// RequestID reuses the caller's X-Request-ID or mints one, and stores it in
// the request context for logger.WithContext.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)
		withContextValue(c, logger.RequestIDKey, requestID)
		c.Next()
	}
}

func withContextValue(c *gin.Context, key, value any) {
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), key, value))
}

// RequestLogger logs every request after it completes.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.WithContext(c.Request.Context()).HTTPRequest(c.Request.Method, path, c.Writer.Status(), float64(time.Since(start).Milliseconds()), c.ClientIP())
	}
}

// SecurityHeaders sets the headers for a JSON API. Leaderboards and portal
// views are per-caller, so nothing is cacheable.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// RateLimiter keeps one token bucket per caller. Authenticated requests are
// keyed by actor id so suppliers behind one NAT do not share a bucket.
type RateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

func NewRateLimiter(r rate.Limit, burst int, log *logger.Logger) *RateLimiter {
	return &RateLimiter{rate: r, burst: burst, log: log}
}

// NewPortalRateLimiter creates the limiter guarding supplier portal writes.
func NewPortalRateLimiter(cfg config.RateLimitConfig, log *logger.Logger) *RateLimiter {
	return NewRateLimiter(rate.Limit(cfg.GetPortalRateLimitRPS()), cfg.GetPortalRateLimitBurst(), log)
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	if existing, ok := l.limiters.Load(key); ok {
		return existing.(*rate.Limiter)
	}
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return actual.(*rate.Limiter)
}

// RateLimit answers 429 once the caller's bucket is empty.
func (l *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)
		if !l.limiter(key).Allow() {
			if l.log != nil {
				l.log.RateLimitExceeded(key, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	if actor, ok := CurrentActor(c); ok {
		return "actor:" + actor.ID.String()
	}
	return "ip:" + c.ClientIP()
}

// AuthRequired validates the HS256 access token from the Authorization
// header, or from the token query parameter for the live feed.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			// EventSource clients cannot set headers
			rawToken = c.Query("token")
			if rawToken == "" {
				abortUnauthorized(c, errMissingToken)
				return
			}
		}

		claims, err := parseAccessClaims(rawToken, cfg)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		subject, err := claims.GetSubject()
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}
		actorID, err := uuid.Parse(subject)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		setActor(c, Actor{ID: actorID, Roles: extractRoles(claims["roles"])})
		withContextValue(c, logger.ActorIDKey, actorID.String())
		c.Next()
	}
}

// RequireRole rejects callers without role with 403.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, _ := CurrentActor(c); !actor.HasRole(role) {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}

// extractRoles keeps only the roles this service knows about.
func extractRoles(value any) []string {
	var raw []string
	switch typed := value.(type) {
	case []string:
		raw = typed
	case []any:
		for _, item := range typed {
			if text, ok := item.(string); ok {
				raw = append(raw, text)
			}
		}
	}

	roles := make([]string, 0, len(raw))
	for _, role := range raw {
		if slices.Contains(knownRoles, role) && !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	return roles
}

func extractBearerToken(authHeader string) (string, bool) {
	rawToken, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return "", false
	}
	rawToken = strings.TrimSpace(rawToken)
	return rawToken, rawToken != ""
}

func parseAccessClaims(rawToken string, cfg config.JWTConfig) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.GetJWTAccessSecret()), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}
