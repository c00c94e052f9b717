// Package notification persists notification intents in an outbox, delivers
// them out of band and streams live quotation activity.
package notification

import (
	"context"
	"time"

	"procurement_backend/internal/events"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/notification/handler"
	"procurement_backend/internal/notification/outbox"
	"procurement_backend/internal/notification/sse"
	"procurement_backend/internal/quotations/domain"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotationReader loads a quotation to check who may watch it.
type QuotationReader interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Quotation, error)
}

// Module wires the outbox, its delivery side and the live feed.
type Module struct {
	outbox     *outbox.Repository
	sink       *OutboxSink
	dispatcher *Dispatcher
	live       *sse.Service
	inbox      *handler.HTTPHandler
	quotations QuotationReader
	log        *logger.Logger
}

// New creates the module. Messages are delivered to the log until another
// Deliverer is set.
func New(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := outbox.New(pool)
	return &Module{
		outbox:     repo,
		sink:       NewOutboxSink(repo, time.Now),
		dispatcher: NewDispatcher(repo, NewLogDeliverer(log), nil, time.Now, log),
		live:       sse.New(log),
		inbox:      handler.NewHTTPHandler(NewInbox(repo)),
		log:        log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the live feed and the inbox on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/quotations/:id/live", m.live.Handler(actorFromContext, quotationParam, m.canWatch, denyWatch))
	m.inbox.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// Sink returns the outbox-backed notification sink.
func (m *Module) Sink() *OutboxSink { return m.sink }

// Outbox returns the outbox repository drained by the scheduler.
func (m *Module) Outbox() *outbox.Repository { return m.outbox }

// Dispatcher returns the delivery side processing due outbox rows.
func (m *Module) Dispatcher() *Dispatcher { return m.dispatcher }

// Live returns the live feed.
func (m *Module) Live() *sse.Service { return m.live }

// SetQuotationReader injects the quotation store used for feed access.
func (m *Module) SetQuotationReader(reader QuotationReader) { m.quotations = reader }

// SetContactDirectory injects the supplier directory used for delivery.
func (m *Module) SetContactDirectory(contacts ContactDirectory) { m.dispatcher.contacts = contacts }

// SetDeliverer replaces the log deliverer.
func (m *Module) SetDeliverer(d Deliverer) { m.dispatcher.deliverer = d }

// RegisterHandlers subscribes the live feed to board and status events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	m.live.Subscribe(bus)
}

func (m *Module) canWatch(ctx context.Context, quotationID, actorID uuid.UUID, role string) error {
	if m.quotations == nil {
		return apperr.Internal("live feed not configured")
	}
	q, err := m.quotations.Get(ctx, quotationID)
	if err != nil {
		return err
	}
	switch role {
	case httpkit.RoleBuyer:
		if q.BuyerID == actorID {
			return nil
		}
	case httpkit.RoleSupplier:
		for _, id := range q.SupplierIDs {
			if id == actorID {
				return nil
			}
		}
	}
	return apperr.Forbidden("not a participant of this quotation")
}

func actorFromContext(c *gin.Context) (uuid.UUID, string, bool) {
	actor, ok := httpkit.RequireActor(c)
	if !ok {
		return uuid.Nil, "", false
	}
	return actor.ID, actor.Role(), true
}

func quotationParam(c *gin.Context) (uuid.UUID, bool) {
	return httpkit.ParamUUID(c, "id")
}

func denyWatch(c *gin.Context, err error) {
	httpkit.HandleError(c, err)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
