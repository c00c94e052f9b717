// Package service implements the quotation lifecycle: start, pause, reopen,
// manual and deadline-driven close, and conclusion.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/quotations/domain"
	"procurement_backend/internal/quotations/repository"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	notOwnerMsg      = "only the quotation owner can change it"
	sweepBatchSize   = 100
	closureFanout    = 8
	defaultReminders = 33
)

// Options tunes the lifecycle service.
type Options struct {
	DefaultWindowMinutes      int
	DefaultReminderPercentage int
	Now                       func() time.Time
}

// Service is the quotation lifecycle.
type Service struct {
	store     Store
	offers    OfferCounter
	deadlines DeadlineScheduler
	sink      NotificationSink
	suppliers SupplierDirectory
	bus       events.Bus
	log       *logger.Logger

	windowMinutes   int
	reminderPercent int
	now             func() time.Time
}

// New creates the lifecycle service. deadlines and bus may be nil.
func New(store Store, offers OfferCounter, deadlines DeadlineScheduler, sink NotificationSink, bus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultWindowMinutes <= 0 {
		opts.DefaultWindowMinutes = 15
	}
	if opts.DefaultReminderPercentage <= 0 {
		opts.DefaultReminderPercentage = defaultReminders
	}
	return &Service{
		store:           store,
		offers:          offers,
		deadlines:       deadlines,
		sink:            sink,
		bus:             bus,
		log:             log,
		windowMinutes:   opts.DefaultWindowMinutes,
		reminderPercent: opts.DefaultReminderPercentage,
		now:             opts.Now,
	}
}

// SetSupplierDirectory enables the ownership check of invited suppliers and
// the delivery day check of dated lines.
func (s *Service) SetSupplierDirectory(directory SupplierDirectory) {
	s.suppliers = directory
}

// LineInput is a requested product of a new quotation.
type LineInput struct {
	Name            string
	Quantity        decimal.Decimal
	Unit            domain.Unit
	PreferredBrands []string
	DeliveryDate    *time.Time
}

// StartInput describes a quotation to publish.
type StartInput struct {
	Name                   string
	SupplierIDs            []uuid.UUID
	Deadline               time.Time
	CounterProposalMinutes int
	ReminderPercentage     *int
	Lines                  []LineInput
}

// StartResult is the published quotation.
type StartResult struct {
	Quotation          domain.Quotation `json:"quotation"`
	NotificationErrors []string         `json:"notificationErrors,omitempty"`
}

// CloseResult reports whether this call performed the close.
type CloseResult struct {
	QuotationID        uuid.UUID `json:"quotationId"`
	AlreadyClosed      bool      `json:"alreadyClosed"`
	NotDue             bool      `json:"notDue,omitempty"`
	UpdatedItems       int       `json:"updatedItems"`
	TotalOffers        int       `json:"totalOffers"`
	NotificationErrors []string  `json:"notificationErrors,omitempty"`
}

// Start publishes a quotation: it is created Aberta with every line Cotado,
// suppliers are invited and the deadline auto-close is scheduled.
func (s *Service) Start(ctx context.Context, buyerID uuid.UUID, in StartInput) (StartResult, error) {
	now := s.now()
	if err := s.validateStart(in, now); err != nil {
		return StartResult{}, err
	}
	if s.suppliers != nil {
		if err := s.suppliers.EnsureOwned(ctx, buyerID, in.SupplierIDs); err != nil {
			return StartResult{}, err
		}
	}

	window := in.CounterProposalMinutes
	if window <= 0 {
		window = s.windowMinutes
	}
	reminder := s.reminderPercent
	if in.ReminderPercentage != nil {
		reminder = *in.ReminderPercentage
	}

	q := domain.Quotation{
		ID:                     uuid.New(),
		BuyerID:                buyerID,
		Name:                   strings.TrimSpace(in.Name),
		SupplierIDs:            dedupeIDs(in.SupplierIDs),
		Deadline:               in.Deadline,
		Status:                 domain.StatusOpen,
		CounterProposalMinutes: window,
		ReminderPercentage:     reminder,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	for _, line := range in.Lines {
		q.Lines = append(q.Lines, domain.Line{
			ID:              uuid.New(),
			QuotationID:     q.ID,
			Name:            strings.TrimSpace(line.Name),
			Quantity:        line.Quantity,
			Unit:            line.Unit,
			PreferredBrands: line.PreferredBrands,
			ItemStatus:      domain.ItemQuoted,
			DeliveryDate:    line.DeliveryDate,
		})
	}
	if err := s.flagDeliveryMismatches(ctx, &q); err != nil {
		return StartResult{}, err
	}

	created, err := s.store.Create(ctx, q)
	if err != nil {
		return StartResult{}, fmt.Errorf("create quotation: %w", err)
	}

	intents := make([]events.Intent, 0, len(created.SupplierIDs))
	for _, supplierID := range created.SupplierIDs {
		intents = append(intents, events.QuotationInvitation{
			BaseEvent:     events.BaseAt(now),
			Recipient:     events.SupplierRecipient(buyerID, supplierID),
			QuotationID:   created.ID,
			QuotationName: created.Name,
			Deadline:      created.Deadline,
			Products:      len(created.Lines),
		})
	}
	failures := s.fanOut(ctx, intents)
	s.scheduleAutoClose(ctx, created)

	return StartResult{Quotation: created, NotificationErrors: failures}, nil
}

func (s *Service) validateStart(in StartInput, now time.Time) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name is required")
	}
	if len(in.SupplierIDs) == 0 {
		return apperr.Validation("at least one supplier must be invited")
	}
	if len(in.Lines) == 0 {
		return apperr.Validation("at least one product is required")
	}
	if !in.Deadline.After(now) {
		return apperr.Validation("deadline must be in the future")
	}
	if in.ReminderPercentage != nil && (*in.ReminderPercentage < 0 || *in.ReminderPercentage > 100) {
		return apperr.Validation("reminder percentage must be between 0 and 100")
	}
	for _, line := range in.Lines {
		if strings.TrimSpace(line.Name) == "" {
			return apperr.Validation("product name is required")
		}
		if !line.Quantity.IsPositive() {
			return apperr.Validation(fmt.Sprintf("quantity of %s must be positive", line.Name))
		}
		if !line.Unit.IsKnown() {
			return apperr.Validation(fmt.Sprintf("unknown unit %q", line.Unit))
		}
	}
	return nil
}

// Get returns a quotation to its buyer.
func (s *Service) Get(ctx context.Context, buyerID, id uuid.UUID) (domain.Quotation, error) {
	q, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Quotation{}, err
	}
	if q.BuyerID != buyerID {
		return domain.Quotation{}, apperr.Forbidden(notOwnerMsg)
	}
	return q, nil
}

// Pause freezes submissions.
func (s *Service) Pause(ctx context.Context, buyerID, id uuid.UUID) (domain.Quotation, error) {
	return s.transition(ctx, buyerID, id, domain.StatusOpen, domain.StatusPaused, nil)
}

// Reopen resumes a paused quotation, optionally with a new deadline.
func (s *Service) Reopen(ctx context.Context, buyerID, id uuid.UUID, deadline *time.Time) (domain.Quotation, error) {
	now := s.now()
	q, err := s.Get(ctx, buyerID, id)
	if err != nil {
		return domain.Quotation{}, err
	}
	effective := q.Deadline
	if deadline != nil {
		effective = *deadline
	}
	if !effective.After(now) {
		return domain.Quotation{}, apperr.Validation("a future deadline is required to reopen")
	}

	reopened, err := s.transition(ctx, buyerID, id, domain.StatusPaused, domain.StatusOpen, deadline)
	if err != nil {
		return domain.Quotation{}, err
	}
	s.scheduleAutoClose(ctx, reopened)
	return reopened, nil
}

// Conclude marks a closed quotation as concluded.
func (s *Service) Conclude(ctx context.Context, buyerID, id uuid.UUID) (domain.Quotation, error) {
	return s.transition(ctx, buyerID, id, domain.StatusClosed, domain.StatusConcluded, nil)
}

func (s *Service) transition(ctx context.Context, buyerID, id uuid.UUID, from, to domain.Status, deadline *time.Time) (domain.Quotation, error) {
	q, err := s.Get(ctx, buyerID, id)
	if err != nil {
		return domain.Quotation{}, err
	}
	if !domain.CanTransition(q.Status, to) || q.Status != from {
		return domain.Quotation{}, apperr.Conflict(fmt.Sprintf("cannot move quotation from %s to %s", q.Status, to))
	}

	updated, ok, err := s.store.TransitionStatus(ctx, id, []domain.Status{from}, to, deadline)
	if err != nil {
		return domain.Quotation{}, fmt.Errorf("transition quotation: %w", err)
	}
	if !ok {
		return domain.Quotation{}, apperr.Conflict(fmt.Sprintf("quotation is now %s", updated.Status))
	}
	s.publishStatus(ctx, updated, from)
	return updated, nil
}

// flagDeliveryMismatches records, per dated line, the invited suppliers that
// do not deliver on that weekday. Without a directory nothing is flagged.
func (s *Service) flagDeliveryMismatches(ctx context.Context, q *domain.Quotation) error {
	if s.suppliers == nil || !slices.ContainsFunc(q.Lines, func(l domain.Line) bool { return l.DeliveryDate != nil }) {
		return nil
	}
	schedules := make(map[uuid.UUID][]time.Weekday, len(q.SupplierIDs))
	for _, supplierID := range q.SupplierIDs {
		days, err := s.suppliers.DeliveryDays(ctx, q.BuyerID, supplierID)
		if err != nil {
			return fmt.Errorf("load delivery days: %w", err)
		}
		schedules[supplierID] = days
	}
	for i := range q.Lines {
		line := &q.Lines[i]
		if line.DeliveryDate == nil {
			continue
		}
		for _, supplierID := range q.SupplierIDs {
			if !domain.DeliversOn(schedules[supplierID], *line.DeliveryDate) {
				line.DeliveryMismatches = append(line.DeliveryMismatches, supplierID)
			}
		}
	}
	return nil
}

func (s *Service) scheduleAutoClose(ctx context.Context, q domain.Quotation) {
	if s.deadlines == nil {
		return
	}
	if err := s.deadlines.ScheduleAutoClose(ctx, q.ID, q.Deadline); err != nil {
		s.log.Warn("schedule auto-close failed",
			slog.String("quotation_id", q.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) publishStatus(ctx context.Context, q domain.Quotation, from domain.Status) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.QuotationStatusChanged{
		BaseEvent:   events.BaseAt(s.now()),
		QuotationID: q.ID,
		BuyerID:     q.BuyerID,
		From:        string(from),
		To:          string(q.Status),
	})
}

// fanOut emits intents concurrently and collects failures.
func (s *Service) fanOut(ctx context.Context, intents []events.Intent) []string {
	if s.sink == nil || len(intents) == 0 {
		return nil
	}
	var (
		mu       sync.Mutex
		failures []string
	)
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(closureFanout)
	for _, intent := range intents {
		g.Go(func() error {
			if err := s.sink.Emit(gctx, intent); err != nil {
				s.log.NotificationFailed(intent.EventName(), intent.Addressee().RecipientID.String(), err)
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s to %s: %v", intent.EventName(), intent.Addressee().RecipientID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

var _ Store = (*repository.Repository)(nil)
var _ Store = (*repository.MemoryStore)(nil)
