// Package bidding provides the competitive bidding module: the supplier
// portal submission flow and the buyer's offer views.
package bidding

import (
	"procurement_backend/internal/bidding/handler"
	"procurement_backend/internal/bidding/repository"
	"procurement_backend/internal/bidding/service"
	"procurement_backend/internal/events"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the engine reads and notifies.
type Dependencies struct {
	Offers     *repository.Repository
	Quotations service.QuotationReader
	Suppliers  service.SupplierDirectory
	Sink       service.NotificationSink
	Reminders  service.ReminderReconciler
	EventBus   events.Bus
	Logger     *logger.Logger
}

// Module is the bidding module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the bidding engine.
func NewModule(deps Dependencies, opts service.Options, val *validator.Validator) *Module {
	svc := service.New(deps.Offers, deps.Quotations, deps.Suppliers, deps.Sink, deps.Reminders, deps.EventBus, deps.Logger, opts)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "bidding"
}

// Service returns the bidding engine.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the portal and buyer routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if ctx.PortalRateLimiter != nil {
		limit = ctx.PortalRateLimiter.RateLimit()
	}
	m.handler.RegisterPortalRoutes(ctx.Supplier.Group("/quotations"), limit)
	m.handler.RegisterBuyerRoutes(ctx.Buyer.Group("/quotations"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
