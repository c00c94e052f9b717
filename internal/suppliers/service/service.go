// Package service holds the supplier directory: the buyer's vendors and
// their WhatsApp contact used by notifications.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"procurement_backend/internal/suppliers/repository"
	"procurement_backend/internal/suppliers/transport"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/phone"
	"procurement_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the persistence the directory needs.
type Store interface {
	Create(ctx context.Context, supplier repository.Supplier) (repository.Supplier, error)
	GetByID(ctx context.Context, id, buyerID uuid.UUID) (repository.Supplier, error)
	List(ctx context.Context, buyerID uuid.UUID) ([]repository.Supplier, error)
	Update(ctx context.Context, update repository.SupplierUpdate) (repository.Supplier, error)
	CompanyName(ctx context.Context, id uuid.UUID) (string, error)
	CountOwned(ctx context.Context, buyerID uuid.UUID, ids []uuid.UUID) (int, error)
}

// Service provides business logic for suppliers.
type Service struct {
	repo   Store
	region string
	now    func() time.Time
}

// New creates a new suppliers service. region is the default phone region.
func New(repo Store, region string) *Service {
	return &Service{repo: repo, region: region, now: time.Now}
}

func (s *Service) Create(ctx context.Context, buyerID uuid.UUID, req transport.CreateSupplierRequest) (transport.SupplierResponse, error) {
	whatsapp, err := s.normalizePhone(req.WhatsApp)
	if err != nil {
		return transport.SupplierResponse{}, err
	}
	name := sanitize.Text(req.CompanyName)
	if name == "" {
		return transport.SupplierResponse{}, apperr.Validation("company name is required")
	}
	days, err := normalizeDeliveryDays(req.DeliveryDays)
	if err != nil {
		return transport.SupplierResponse{}, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, repository.Supplier{
		ID:           uuid.New(),
		BuyerID:      buyerID,
		CompanyName:  name,
		SellerName:   sanitize.Text(req.SellerName),
		WhatsApp:     whatsapp,
		DeliveryDays: days,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return transport.SupplierResponse{}, err
	}
	return toResponse(created), nil
}

func (s *Service) GetByID(ctx context.Context, buyerID, id uuid.UUID) (transport.SupplierResponse, error) {
	supplier, err := s.repo.GetByID(ctx, id, buyerID)
	if err != nil {
		return transport.SupplierResponse{}, err
	}
	return toResponse(supplier), nil
}

func (s *Service) List(ctx context.Context, buyerID uuid.UUID) (transport.ListSuppliersResponse, error) {
	suppliers, err := s.repo.List(ctx, buyerID)
	if err != nil {
		return transport.ListSuppliersResponse{}, err
	}
	items := make([]transport.SupplierResponse, 0, len(suppliers))
	for _, supplier := range suppliers {
		items = append(items, toResponse(supplier))
	}
	return transport.ListSuppliersResponse{Items: items, Total: len(items)}, nil
}

func (s *Service) Update(ctx context.Context, buyerID, id uuid.UUID, req transport.UpdateSupplierRequest) (transport.SupplierResponse, error) {
	update := repository.SupplierUpdate{ID: id, BuyerID: buyerID}
	if req.CompanyName != nil {
		name := sanitize.Text(*req.CompanyName)
		if name == "" {
			return transport.SupplierResponse{}, apperr.Validation("company name is required")
		}
		update.CompanyName = &name
	}
	if req.SellerName != nil {
		seller := sanitize.Text(*req.SellerName)
		update.SellerName = &seller
	}
	if req.WhatsApp != nil {
		whatsapp, err := s.normalizePhone(*req.WhatsApp)
		if err != nil {
			return transport.SupplierResponse{}, err
		}
		update.WhatsApp = &whatsapp
	}
	if req.DeliveryDays != nil {
		days, err := normalizeDeliveryDays(*req.DeliveryDays)
		if err != nil {
			return transport.SupplierResponse{}, err
		}
		update.DeliveryDays = &days
	}

	updated, err := s.repo.Update(ctx, update)
	if err != nil {
		return transport.SupplierResponse{}, err
	}
	return toResponse(updated), nil
}

// DisplayName returns the name shown to other suppliers and the buyer.
func (s *Service) DisplayName(ctx context.Context, supplierID uuid.UUID) (string, error) {
	return s.repo.CompanyName(ctx, supplierID)
}

// WhatsAppContact returns the E.164 number of a supplier, empty when none is
// on file.
func (s *Service) WhatsAppContact(ctx context.Context, buyerID, supplierID uuid.UUID) (string, error) {
	supplier, err := s.repo.GetByID(ctx, supplierID, buyerID)
	if err != nil {
		return "", err
	}
	return supplier.WhatsApp, nil
}

// DeliveryDays returns the weekdays the supplier delivers on. An empty
// schedule means no day is covered.
func (s *Service) DeliveryDays(ctx context.Context, buyerID, supplierID uuid.UUID) ([]time.Weekday, error) {
	supplier, err := s.repo.GetByID(ctx, supplierID, buyerID)
	if err != nil {
		return nil, err
	}
	days := make([]time.Weekday, 0, len(supplier.DeliveryDays))
	for _, name := range supplier.DeliveryDays {
		if day, ok := weekdays[name]; ok {
			days = append(days, day)
		}
	}
	return days, nil
}

// EnsureOwned fails with a validation error when any supplier does not
// belong to the buyer.
func (s *Service) EnsureOwned(ctx context.Context, buyerID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	count, err := s.repo.CountOwned(ctx, buyerID, ids)
	if err != nil {
		return err
	}
	if count != len(unique) {
		return apperr.Validation("one or more suppliers are not in your directory")
	}
	return nil
}

func (s *Service) normalizePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	normalized, err := phone.ParseE164(raw, s.region)
	if err != nil {
		return "", apperr.Validation("whatsapp must be a valid phone number")
	}
	return normalized, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// normalizeDeliveryDays lowercases, dedupes and orders weekday names from
// Sunday to Saturday.
func normalizeDeliveryDays(raw []string) ([]string, error) {
	seen := make(map[time.Weekday]bool, len(raw))
	for _, name := range raw {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown delivery day %q", name))
		}
		seen[day] = true
	}
	days := make([]string, 0, len(seen))
	for day := time.Sunday; day <= time.Saturday; day++ {
		if seen[day] {
			days = append(days, strings.ToLower(day.String()))
		}
	}
	return days, nil
}

func toResponse(s repository.Supplier) transport.SupplierResponse {
	return transport.SupplierResponse{
		ID:           s.ID,
		CompanyName:  s.CompanyName,
		SellerName:   s.SellerName,
		WhatsApp:     s.WhatsApp,
		WhatsAppLink: phone.WhatsAppLink(s.WhatsApp),
		DeliveryDays: s.DeliveryDays,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
