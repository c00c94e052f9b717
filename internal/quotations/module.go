// Package quotations provides the quotation lifecycle module.
package quotations

import (
	"procurement_backend/internal/events"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/quotations/handler"
	"procurement_backend/internal/quotations/repository"
	"procurement_backend/internal/quotations/service"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quotations module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule wires the lifecycle service over PostgreSQL.
func NewModule(
	pool *pgxpool.Pool,
	offers service.OfferCounter,
	deadlines service.DeadlineScheduler,
	sink service.NotificationSink,
	eventBus events.Bus,
	log *logger.Logger,
	opts service.Options,
	val *validator.Validator,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, offers, deadlines, sink, eventBus, log, opts)
	return &Module{handler: handler.New(svc, val), service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "quotations"
}

// Service returns the lifecycle service.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the quotation store, read by the bidding engine.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts quotation routes on the buyer group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Buyer.Group("/quotations"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
