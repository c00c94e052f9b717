// Package repository stores offers in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"

	"procurement_backend/internal/bidding/domain"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const offerNotFoundMsg = "offer not found"

// Repository persists offers with pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new offers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const offerColumns = `id, quotation_id, product_id, supplier_id, supplier_name, brand,
	packaging_description, packages, units_per_package,
	unit_weight::text, total_price::text, price_per_unit::text,
	COALESCE(quantity_decision, ''), created_at, updated_at`

func scanOffer(row pgx.Row) (domain.Offer, error) {
	var (
		o                          domain.Offer
		unitWeight, total, perUnit string
		decision                   string
	)
	if err := row.Scan(
		&o.ID, &o.QuotationID, &o.ProductID, &o.SupplierID, &o.SupplierName, &o.Brand,
		&o.PackagingDescription, &o.Packages, &o.UnitsPerPackage,
		&unitWeight, &total, &perUnit,
		&decision, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return domain.Offer{}, err
	}
	var err error
	if o.UnitWeight, err = decimal.NewFromString(unitWeight); err != nil {
		return domain.Offer{}, fmt.Errorf("parse unit weight: %w", err)
	}
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return domain.Offer{}, fmt.Errorf("parse total price: %w", err)
	}
	if o.PricePerUnit, err = decimal.NewFromString(perUnit); err != nil {
		return domain.Offer{}, fmt.Errorf("parse price per unit: %w", err)
	}
	o.QuantityDecision = domain.DecisionKind(decision)
	return o, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Offer, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

// ListByProduct returns every offer on one requested line.
func (r *Repository) ListByProduct(ctx context.Context, quotationID, productID uuid.UUID) ([]domain.Offer, error) {
	offers, err := r.list(ctx, `SELECT `+offerColumns+`
		FROM offers
		WHERE quotation_id = $1 AND product_id = $2
		ORDER BY price_per_unit ASC, updated_at DESC`, quotationID, productID)
	if err != nil {
		return nil, fmt.Errorf("list offers by product: %w", err)
	}
	return offers, nil
}

// ListByQuotation returns every offer of a quotation.
func (r *Repository) ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]domain.Offer, error) {
	offers, err := r.list(ctx, `SELECT `+offerColumns+`
		FROM offers
		WHERE quotation_id = $1
		ORDER BY product_id, price_per_unit ASC`, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list offers by quotation: %w", err)
	}
	return offers, nil
}

// GetByID loads one offer.
func (r *Repository) GetByID(ctx context.Context, offerID uuid.UUID) (domain.Offer, error) {
	offer, err := scanOffer(r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, offerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Offer{}, apperr.NotFound(offerNotFoundMsg)
	}
	if err != nil {
		return domain.Offer{}, fmt.Errorf("get offer: %w", err)
	}
	return offer, nil
}

// Upsert inserts or replaces the offer of (quotation, product, supplier, brand).
func (r *Repository) Upsert(ctx context.Context, o domain.Offer) (domain.Offer, error) {
	var decision *string
	if o.QuantityDecision != "" {
		d := string(o.QuantityDecision)
		decision = &d
	}
	query := `
		INSERT INTO offers (
			id, quotation_id, product_id, supplier_id, supplier_name, brand, brand_key,
			packaging_description, packages, units_per_package,
			unit_weight, total_price, price_per_unit, quantity_decision, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11::numeric, $12::numeric, $13::numeric, $14, $15, $16)
		ON CONFLICT (quotation_id, product_id, supplier_id, brand_key) DO UPDATE SET
			supplier_name = EXCLUDED.supplier_name,
			brand = EXCLUDED.brand,
			packaging_description = EXCLUDED.packaging_description,
			packages = EXCLUDED.packages,
			units_per_package = EXCLUDED.units_per_package,
			unit_weight = EXCLUDED.unit_weight,
			total_price = EXCLUDED.total_price,
			price_per_unit = EXCLUDED.price_per_unit,
			quantity_decision = EXCLUDED.quantity_decision,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + offerColumns

	stored, err := scanOffer(r.pool.QueryRow(ctx, query,
		o.ID, o.QuotationID, o.ProductID, o.SupplierID, o.SupplierName, o.Brand, o.BrandKey(),
		o.PackagingDescription, o.Packages, o.UnitsPerPackage,
		o.UnitWeight.String(), o.TotalPrice.String(), o.PricePerUnit.String(), decision,
		o.CreatedAt, o.UpdatedAt,
	))
	if err != nil {
		return domain.Offer{}, fmt.Errorf("upsert offer: %w", err)
	}
	return stored, nil
}

// Delete removes one offer.
func (r *Repository) Delete(ctx context.Context, offerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, offerID)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(offerNotFoundMsg)
	}
	return nil
}

// DeleteBySupplier removes all of a supplier's offers on a product.
func (r *Repository) DeleteBySupplier(ctx context.Context, quotationID, productID, supplierID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM offers WHERE quotation_id = $1 AND product_id = $2 AND supplier_id = $3`,
		quotationID, productID, supplierID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete supplier offers: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountByQuotation counts the offers of a quotation.
func (r *Repository) CountByQuotation(ctx context.Context, quotationID uuid.UUID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offers WHERE quotation_id = $1`, quotationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count offers: %w", err)
	}
	return count, nil
}
