// Package logger is the slog wrapper used across the service, with named
// helpers for the events operators grep for.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey carries the X-Request-ID of the current request.
	RequestIDKey contextKey = "request_id"
	// ActorIDKey carries the authenticated buyer or supplier id.
	ActorIDKey contextKey = "actor_id"
)

type Logger struct {
	*slog.Logger
}

// New returns a text logger at debug level in development and a JSON
// logger at info level everywhere else.
func New(env string) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewWithWriter creates a debug-level JSON logger writing to w.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
}

func Discard() *Logger {
	return NewWithWriter(io.Discard)
}

// WithContext adds the request id and actor id found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	var attrs []any
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if actorID, ok := ctx.Value(ActorIDKey).(string); ok && actorID != "" {
		attrs = append(attrs, slog.String("actor_id", actorID))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// OfferDecision logs a submission outcome. Rejections go under their own
// message so they can be counted separately.
func (l *Logger) OfferDecision(quotationID, productID, supplierID, outcome, reason string) {
	attrs := []any{
		slog.String("quotation_id", quotationID),
		slog.String("product_id", productID),
		slog.String("supplier_id", supplierID),
		slog.String("outcome", outcome),
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
		l.Info("offer_rejected", attrs...)
		return
	}
	l.Info("offer_decision", attrs...)
}

func (l *Logger) QuotationClosed(quotationID, trigger string, updatedItems int) {
	l.Info("quotation_closed",
		slog.String("quotation_id", quotationID),
		slog.String("trigger", trigger),
		slog.Int("updated_items", updatedItems),
	)
}

func (l *Logger) NotificationFailed(kind, recipient string, err error) {
	l.Warn("notification_failed",
		slog.String("kind", kind),
		slog.String("recipient", recipient),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs a throttled request. key is "actor:<id>" or "ip:<addr>".
func (l *Logger) RateLimitExceeded(key, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("key", key),
		slog.String("path", path),
	)
}
