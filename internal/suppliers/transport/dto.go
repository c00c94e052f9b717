package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateSupplierRequest registers a vendor. DeliveryDays are English weekday
// names such as "monday".
type CreateSupplierRequest struct {
	CompanyName  string   `json:"companyName" validate:"required,notblank,max=200"`
	SellerName   string   `json:"sellerName,omitempty" validate:"omitempty,max=120"`
	WhatsApp     string   `json:"whatsapp,omitempty" validate:"omitempty,max=40"`
	DeliveryDays []string `json:"deliveryDays,omitempty" validate:"omitempty,max=7,dive,max=16"`
}

// UpdateSupplierRequest changes the fields that are set. A DeliveryDays of
// [] clears the schedule.
type UpdateSupplierRequest struct {
	CompanyName  *string   `json:"companyName,omitempty" validate:"omitempty,notblank,max=200"`
	SellerName   *string   `json:"sellerName,omitempty" validate:"omitempty,max=120"`
	WhatsApp     *string   `json:"whatsapp,omitempty" validate:"omitempty,max=40"`
	DeliveryDays *[]string `json:"deliveryDays,omitempty" validate:"omitempty,max=7"`
}

type SupplierResponse struct {
	ID           uuid.UUID `json:"id"`
	CompanyName  string    `json:"companyName"`
	SellerName   string    `json:"sellerName,omitempty"`
	WhatsApp     string    `json:"whatsapp,omitempty"`
	WhatsAppLink string    `json:"whatsappLink,omitempty"`
	DeliveryDays []string  `json:"deliveryDays"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ListSuppliersResponse struct {
	Items []SupplierResponse `json:"items"`
	Total int                `json:"total"`
}
