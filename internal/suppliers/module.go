// Package suppliers provides the supplier directory module.
package suppliers

import (
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/suppliers/handler"
	"procurement_backend/internal/suppliers/repository"
	"procurement_backend/internal/suppliers/service"
	"procurement_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the supplier directory module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the suppliers module. region is the default phone region
// for WhatsApp numbers.
func NewModule(pool *pgxpool.Pool, region string, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, region)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "suppliers"
}

// Service returns the service layer for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts supplier routes on the buyer group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Buyer.Group("/suppliers"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
