package handler

import (
	"net/http"

	"procurement_backend/internal/bidding/service"
	"procurement_backend/internal/bidding/transport"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/sanitize"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves the supplier portal and the buyer's offer views.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new bidding handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPortalRoutes registers supplier routes. submitLimit guards writes.
func (h *Handler) RegisterPortalRoutes(rg *gin.RouterGroup, submitLimit gin.HandlerFunc) {
	rg.GET("/:id", h.SupplierView)
	rg.POST("/:id/products/:productId/offers", submitLimit, h.Submit)
	rg.DELETE("/:id/products/:productId/offers/:offerId", submitLimit, h.Withdraw)
	rg.POST("/:id/products/:productId/stop", h.StopQuoting)
	rg.POST("/:id/products/:productId/acknowledgements", h.ConfirmDelivery)
}

// RegisterBuyerRoutes registers the buyer's offer routes.
func (h *Handler) RegisterBuyerRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/products/:productId/leaderboard", h.Leaderboard)
	rg.PATCH("/:id/products/:productId/offers/:offerId/quantity", h.AdjustQuantity)
}

func (h *Handler) SupplierView(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	supplierID, ok := httpkit.MustGetActor(c, httpkit.RoleSupplier)
	if !ok {
		return
	}

	result, err := h.svc.SupplierView(c.Request.Context(), id, supplierID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Submit(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := httpkit.ParamUUID(c, "productId")
	if !ok {
		return
	}

	var req transport.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	supplierID, ok := httpkit.MustGetActor(c, httpkit.RoleSupplier)
	if !ok {
		return
	}

	req.Brand = sanitize.Text(req.Brand)
	req.PackagingDescription = sanitize.Text(req.PackagingDescription)
	result, err := h.svc.Submit(c.Request.Context(), req.ToInput(id, productID, supplierID))
	if httpkit.HandleError(c, err) {
		return
	}
	if httpkit.HandleError(c, ResultError(result)) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) Withdraw(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := httpkit.ParamUUID(c, "productId")
	if !ok {
		return
	}
	offerID, ok := httpkit.ParamUUID(c, "offerId")
	if !ok {
		return
	}
	supplierID, ok := httpkit.MustGetActor(c, httpkit.RoleSupplier)
	if !ok {
		return
	}

	err := h.svc.WithdrawOffer(c.Request.Context(), id, productID, supplierID, offerID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) StopQuoting(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := httpkit.ParamUUID(c, "productId")
	if !ok {
		return
	}
	supplierID, ok := httpkit.MustGetActor(c, httpkit.RoleSupplier)
	if !ok {
		return
	}

	err := h.svc.StopQuoting(c.Request.Context(), id, productID, supplierID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ConfirmDelivery(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := httpkit.ParamUUID(c, "productId")
	if !ok {
		return
	}
	supplierID, ok := httpkit.MustGetActor(c, httpkit.RoleSupplier)
	if !ok {
		return
	}

	err := h.svc.ConfirmDelivery(c.Request.Context(), id, productID, supplierID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := httpkit.ParamUUID(c, "productId")
	if !ok {
		return
	}
	buyerID, ok := httpkit.MustGetActor(c, httpkit.RoleBuyer)
	if !ok {
		return
	}

	result, err := h.svc.ProductLeaderboard(c.Request.Context(), buyerID, id, productID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) AdjustQuantity(c *gin.Context) {
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := httpkit.ParamUUID(c, "productId")
	if !ok {
		return
	}
	offerID, ok := httpkit.ParamUUID(c, "offerId")
	if !ok {
		return
	}

	var req transport.AdjustQuantityRequest
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

	offer, failures, err := h.svc.AdjustOfferQuantity(c.Request.Context(), service.AdjustQuantityInput{
		BuyerID:         buyerID,
		QuotationID:     id,
		ProductID:       productID,
		OfferID:         offerID,
		Packages:        req.Packages,
		UnitsPerPackage: req.UnitsPerPackage,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AdjustQuantityResponse{Offer: offer, NotificationErrors: failures})
}

// ResultError maps a non-accepted submission to the error answered to the
// supplier. The full result travels in the details.
func ResultError(res service.SubmitResult) error {
	if res.Outcome == service.OutcomeAccepted {
		return nil
	}

	var err *apperr.Error
	switch res.Reason {
	case service.ReasonNeedsQuantityDecision:
		err = apperr.Conflict("quantity differs from the request; choose how to proceed")
	case service.ReasonQuotationClosed:
		err = apperr.Gone("quotation is not accepting offers")
	case service.ReasonSupplierLockedOut:
		err = apperr.Forbidden("counter-proposal window expired")
	case service.ReasonSupplierStopped:
		err = apperr.Forbidden("you stopped quoting this product")
	case service.ReasonDeliveryUnconfirmed:
		err = apperr.Conflict("confirm the delivery date before offering")
	case service.ReasonIncompleteOffer:
		err = apperr.Validation("offer is incomplete")
	case service.ReasonInsufficientUndercut:
		err = apperr.Unprocessable("offer must be at least 1% below the best competing price")
	case service.ReasonDuplicatePrice:
		err = apperr.Conflict("another supplier already offers this price")
	default:
		err = apperr.Validation("offer rejected")
	}
	return err.WithReason(string(res.Reason)).WithDetails(res)
}
