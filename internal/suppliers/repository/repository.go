package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const supplierNotFoundMsg = "supplier not found"

// Repository provides database operations for suppliers.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new suppliers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Supplier is a vendor a buyer can invite to quotations.
type Supplier struct {
	ID           uuid.UUID
	BuyerID      uuid.UUID
	CompanyName  string
	SellerName   string
	WhatsApp     string
	DeliveryDays []string // lowercase English weekday names
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SupplierUpdate carries the fields to change; nil keeps the stored value.
type SupplierUpdate struct {
	ID           uuid.UUID
	BuyerID      uuid.UUID
	CompanyName  *string
	SellerName   *string
	WhatsApp     *string
	DeliveryDays *[]string
}

func (r *Repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	query := `
		INSERT INTO suppliers (id, buyer_id, company_name, seller_name, whatsapp, delivery_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	days := supplier.DeliveryDays
	if days == nil {
		days = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		supplier.ID,
		supplier.BuyerID,
		supplier.CompanyName,
		supplier.SellerName,
		supplier.WhatsApp,
		days,
		supplier.CreatedAt,
		supplier.UpdatedAt,
	)
	if err != nil {
		return Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	return supplier, nil
}

func (r *Repository) GetByID(ctx context.Context, id, buyerID uuid.UUID) (Supplier, error) {
	query := `
		SELECT id, buyer_id, company_name, seller_name, whatsapp, delivery_days, created_at, updated_at
		FROM suppliers
		WHERE id = $1 AND buyer_id = $2
	`
	var s Supplier
	err := r.pool.QueryRow(ctx, query, id, buyerID).Scan(
		&s.ID, &s.BuyerID, &s.CompanyName, &s.SellerName, &s.WhatsApp, &s.DeliveryDays, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, apperr.NotFound(supplierNotFoundMsg)
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("get supplier: %w", err)
	}
	return s, nil
}

func (r *Repository) List(ctx context.Context, buyerID uuid.UUID) ([]Supplier, error) {
	query := `
		SELECT id, buyer_id, company_name, seller_name, whatsapp, delivery_days, created_at, updated_at
		FROM suppliers
		WHERE buyer_id = $1
		ORDER BY company_name ASC
	`
	rows, err := r.pool.Query(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	items := make([]Supplier, 0)
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.BuyerID, &s.CompanyName, &s.SellerName, &s.WhatsApp, &s.DeliveryDays, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suppliers: %w", err)
	}
	return items, nil
}

func (r *Repository) Update(ctx context.Context, update SupplierUpdate) (Supplier, error) {
	query := `
		UPDATE suppliers SET
			company_name = COALESCE($3, company_name),
			seller_name = COALESCE($4, seller_name),
			whatsapp = COALESCE($5, whatsapp),
			delivery_days = COALESCE($6, delivery_days),
			updated_at = now()
		WHERE id = $1 AND buyer_id = $2
		RETURNING id, buyer_id, company_name, seller_name, whatsapp, delivery_days, created_at, updated_at
	`
	var s Supplier
	err := r.pool.QueryRow(ctx, query,
		update.ID, update.BuyerID, update.CompanyName, update.SellerName, update.WhatsApp, update.DeliveryDays,
	).Scan(&s.ID, &s.BuyerID, &s.CompanyName, &s.SellerName, &s.WhatsApp, &s.DeliveryDays, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, apperr.NotFound(supplierNotFoundMsg)
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("update supplier: %w", err)
	}
	return s, nil
}

// CompanyName returns the display name of a supplier regardless of buyer.
func (r *Repository) CompanyName(ctx context.Context, id uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT company_name FROM suppliers WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound(supplierNotFoundMsg)
	}
	if err != nil {
		return "", fmt.Errorf("get supplier name: %w", err)
	}
	return name, nil
}

// CountOwned returns how many of ids belong to the buyer.
func (r *Repository) CountOwned(ctx context.Context, buyerID uuid.UUID, ids []uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM suppliers WHERE buyer_id = $1 AND id = ANY($2)`,
		buyerID, ids,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count suppliers: %w", err)
	}
	return count, nil
}
