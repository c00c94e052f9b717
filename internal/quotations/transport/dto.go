package transport

import (
	"time"

	"procurement_backend/internal/quotations/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineRequest struct {
	Name            string          `json:"name" validate:"required,notblank,max=200"`
	Quantity        decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit            domain.Unit     `json:"unit" validate:"required"`
	PreferredBrands []string        `json:"preferredBrands,omitempty" validate:"omitempty,max=20,dive,max=120"`
	DeliveryDate    *time.Time      `json:"deliveryDate,omitempty"`
}

type StartQuotationRequest struct {
	Name                   string        `json:"name" validate:"required,notblank,max=200"`
	SupplierIDs            []uuid.UUID   `json:"supplierIds" validate:"required,min=1,dive,required"`
	Deadline               time.Time     `json:"deadline" validate:"required"`
	CounterProposalMinutes int           `json:"counterProposalMinutes,omitempty" validate:"omitempty,min=1,max=1440"`
	ReminderPercentage     *int          `json:"reminderPercentage,omitempty" validate:"omitempty,min=0,max=100"`
	Lines                  []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

type ReopenQuotationRequest struct {
	Deadline *time.Time `json:"deadline,omitempty"`
}
