package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"procurement_backend/internal/quotations/domain"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
)

// MemoryStore keeps quotations in process memory. The close claim is guarded
// by the store mutex.
type MemoryStore struct {
	mu         sync.Mutex
	quotations map[uuid.UUID]domain.Quotation
	summaries  map[uuid.UUID]ClosureSummary
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotations: make(map[uuid.UUID]domain.Quotation),
		summaries:  make(map[uuid.UUID]ClosureSummary),
	}
}

func clone(q domain.Quotation) domain.Quotation {
	q.SupplierIDs = append([]uuid.UUID(nil), q.SupplierIDs...)
	lines := make([]domain.Line, len(q.Lines))
	for i, line := range q.Lines {
		line.PreferredBrands = append([]string(nil), line.PreferredBrands...)
		line.StoppedSuppliers = append([]uuid.UUID(nil), line.StoppedSuppliers...)
		line.DeliveryMismatches = append([]uuid.UUID(nil), line.DeliveryMismatches...)
		line.AcknowledgedMismatches = append([]uuid.UUID(nil), line.AcknowledgedMismatches...)
		lines[i] = line
	}
	q.Lines = lines
	return q
}

func (m *MemoryStore) Create(_ context.Context, q domain.Quotation) (domain.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotations[q.ID] = clone(q)
	return clone(q), nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (domain.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return domain.Quotation{}, apperr.NotFound(quotationNotFoundMsg)
	}
	return clone(q), nil
}

func (m *MemoryStore) TransitionStatus(_ context.Context, id uuid.UUID, from []domain.Status, to domain.Status, deadline *time.Time) (domain.Quotation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return domain.Quotation{}, false, apperr.NotFound(quotationNotFoundMsg)
	}
	if !containsStatus(from, q.Status) {
		return clone(q), false, nil
	}
	q.Status = to
	if deadline != nil {
		q.Deadline = *deadline
	}
	m.quotations[id] = q
	return clone(q), true, nil
}

func (m *MemoryStore) ClaimClose(_ context.Context, id uuid.UUID, from []domain.Status, now time.Time) (ClaimResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return ClaimResult{}, apperr.NotFound(quotationNotFoundMsg)
	}
	if !containsStatus(from, q.Status) {
		return ClaimResult{Claimed: false, Quotation: clone(q)}, nil
	}

	q.Status = domain.StatusClosed
	q.UpdatedAt = now
	updated := 0
	for i := range q.Lines {
		if q.Lines[i].ItemStatus.IsFinal() {
			continue
		}
		q.Lines[i].ItemStatus = domain.ItemClosed
		updated++
	}
	m.quotations[id] = q
	return ClaimResult{Claimed: true, UpdatedItems: updated, Quotation: clone(q)}, nil
}

func (m *MemoryStore) RecordClosureSummary(_ context.Context, id uuid.UUID, summary ClosureSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[id]; !ok {
		return apperr.NotFound(quotationNotFoundMsg)
	}
	m.summaries[id] = summary
	return nil
}

// ClosureSummary returns the stored summary of a closed quotation.
func (m *MemoryStore) ClosureSummary(id uuid.UUID) (ClosureSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[id]
	return s, ok
}

func (m *MemoryStore) ListExpiredOpen(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []domain.Quotation
	for _, q := range m.quotations {
		if q.IsExpired(now) {
			expired = append(expired, q)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Deadline.Before(expired[j].Deadline) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]uuid.UUID, len(expired))
	for i, q := range expired {
		ids[i] = q.ID
	}
	return ids, nil
}

func (m *MemoryStore) MarkStopped(_ context.Context, quotationID, productID, supplierID uuid.UUID) error {
	return m.updateLine(quotationID, productID, func(line *domain.Line) {
		if !line.IsStopped(supplierID) {
			line.StoppedSuppliers = append(line.StoppedSuppliers, supplierID)
		}
	})
}

func (m *MemoryStore) AcknowledgeMismatch(_ context.Context, quotationID, productID, supplierID uuid.UUID) error {
	return m.updateLine(quotationID, productID, func(line *domain.Line) {
		if !line.IsMismatchAcknowledged(supplierID) {
			line.AcknowledgedMismatches = append(line.AcknowledgedMismatches, supplierID)
		}
	})
}

func (m *MemoryStore) updateLine(quotationID, productID uuid.UUID, apply func(*domain.Line)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[quotationID]
	if !ok {
		return apperr.NotFound(quotationNotFoundMsg)
	}
	for i := range q.Lines {
		if q.Lines[i].ID == productID {
			apply(&q.Lines[i])
			m.quotations[quotationID] = q
			return nil
		}
	}
	return apperr.NotFound(lineNotFoundMsg)
}
