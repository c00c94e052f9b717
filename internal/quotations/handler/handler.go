package handler

import (
	"net/http"

	"procurement_backend/internal/quotations/service"
	"procurement_backend/internal/quotations/transport"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/sanitize"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles the buyer's quotation lifecycle requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quotations handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers quotation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Start)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/pause", h.Pause)
	rg.POST("/:id/reopen", h.Reopen)
	rg.POST("/:id/close", h.Close)
	rg.POST("/:id/conclude", h.Conclude)
}

func (h *Handler) Start(c *gin.Context) {
	var req transport.StartQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	in := service.StartInput{
		Name:                   sanitize.Text(req.Name),
		SupplierIDs:            req.SupplierIDs,
		Deadline:               req.Deadline,
		CounterProposalMinutes: req.CounterProposalMinutes,
		ReminderPercentage:     req.ReminderPercentage,
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, service.LineInput{
			Name:            sanitize.Text(line.Name),
			Quantity:        line.Quantity,
			Unit:            line.Unit,
			PreferredBrands: sanitize.Texts(line.PreferredBrands),
			DeliveryDate:    line.DeliveryDate,
		})
	}

	result, err := h.svc.Start(c.Request.Context(), buyerID, in)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), buyerID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Pause(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	result, err := h.svc.Pause(c.Request.Context(), buyerID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Reopen(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req transport.ReopenQuotationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	result, err := h.svc.Reopen(c.Request.Context(), buyerID, id, req.Deadline)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Close(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	result, err := h.svc.Close(c.Request.Context(), buyerID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Conclude(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	result, err := h.svc.Conclude(c.Request.Context(), buyerID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
