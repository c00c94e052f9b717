package handler

import (
	"net/http"

	"procurement_backend/internal/suppliers/service"
	"procurement_backend/internal/suppliers/transport"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the supplier directory.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new suppliers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers supplier routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
}

func (h *Handler) List(c *gin.Context) {
	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), buyerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateSupplierRequest
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

	result, err := h.svc.Create(c.Request.Context(), buyerID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), buyerID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req transport.UpdateSupplierRequest
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

	result, err := h.svc.Update(c.Request.Context(), buyerID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
