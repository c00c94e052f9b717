package repository

import (
	"context"
	"sort"
	"sync"

	"procurement_backend/internal/bidding/domain"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
)

// MemoryStore keeps offers in process memory. It backs tests and local runs
// without PostgreSQL.
type MemoryStore struct {
	mu     sync.RWMutex
	offers map[uuid.UUID]domain.Offer
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{offers: make(map[uuid.UUID]domain.Offer)}
}

func (m *MemoryStore) filter(keep func(domain.Offer) bool) []domain.Offer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Offer
	for _, offer := range m.offers {
		if keep(offer) {
			out = append(out, offer)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].PricePerUnit.Cmp(out[j].PricePerUnit); c != 0 {
			return c < 0
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *MemoryStore) ListByProduct(_ context.Context, quotationID, productID uuid.UUID) ([]domain.Offer, error) {
	return m.filter(func(o domain.Offer) bool {
		return o.QuotationID == quotationID && o.ProductID == productID
	}), nil
}

func (m *MemoryStore) ListByQuotation(_ context.Context, quotationID uuid.UUID) ([]domain.Offer, error) {
	return m.filter(func(o domain.Offer) bool { return o.QuotationID == quotationID }), nil
}

func (m *MemoryStore) GetByID(_ context.Context, offerID uuid.UUID) (domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offer, ok := m.offers[offerID]
	if !ok {
		return domain.Offer{}, apperr.NotFound(offerNotFoundMsg)
	}
	return offer, nil
}

// Upsert enforces one offer per (quotation, product, supplier, brand).
func (m *MemoryStore) Upsert(_ context.Context, offer domain.Offer) (domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.offers {
		if existing.QuotationID == offer.QuotationID &&
			existing.ProductID == offer.ProductID &&
			existing.SupplierID == offer.SupplierID &&
			existing.BrandKey() == offer.BrandKey() {
			offer.ID = id
			offer.CreatedAt = existing.CreatedAt
			break
		}
	}
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	m.offers[offer.ID] = offer
	return offer, nil
}

func (m *MemoryStore) Delete(_ context.Context, offerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offers[offerID]; !ok {
		return apperr.NotFound(offerNotFoundMsg)
	}
	delete(m.offers, offerID)
	return nil
}

func (m *MemoryStore) DeleteBySupplier(_ context.Context, quotationID, productID, supplierID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, offer := range m.offers {
		if offer.QuotationID == quotationID && offer.ProductID == productID && offer.SupplierID == supplierID {
			delete(m.offers, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) CountByQuotation(_ context.Context, quotationID uuid.UUID) (int, error) {
	return len(m.filter(func(o domain.Offer) bool { return o.QuotationID == quotationID })), nil
}
