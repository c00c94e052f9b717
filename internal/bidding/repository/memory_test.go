package repository

import (
	"context"
	"testing"

	"procurement_backend/internal/bidding/domain"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMemoryStoreUpsertKeepsOneOfferPerBrand(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	q, p, s := uuid.New(), uuid.New(), uuid.New()

	first, _ := store.Upsert(ctx, domain.Offer{QuotationID: q, ProductID: p, SupplierID: s, Brand: "Acme", PricePerUnit: decimal.NewFromInt(10)})
	second, _ := store.Upsert(ctx, domain.Offer{QuotationID: q, ProductID: p, SupplierID: s, Brand: " ACME ", PricePerUnit: decimal.NewFromInt(9)})

	if first.ID != second.ID {
		t.Fatalf("expected same brand to replace the offer")
	}
	offers, _ := store.ListByProduct(ctx, q, p)
	if len(offers) != 1 || !offers[0].PricePerUnit.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("expected single updated offer, got %+v", offers)
	}
}

func TestMemoryStoreDeleteBySupplier(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	q, p, s, other := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	_, _ = store.Upsert(ctx, domain.Offer{QuotationID: q, ProductID: p, SupplierID: s, Brand: "A"})
	_, _ = store.Upsert(ctx, domain.Offer{QuotationID: q, ProductID: p, SupplierID: s, Brand: "B"})
	_, _ = store.Upsert(ctx, domain.Offer{QuotationID: q, ProductID: p, SupplierID: other, Brand: "A"})

	removed, err := store.DeleteBySupplier(ctx, q, p, s)
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 offers removed, got %d / %v", removed, err)
	}
	count, _ := store.CountByQuotation(ctx, q)
	if count != 1 {
		t.Fatalf("expected 1 offer left, got %d", count)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	_, err := NewMemoryStore().GetByID(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
