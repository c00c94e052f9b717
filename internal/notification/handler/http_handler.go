package handler

import (
	"context"
	"strconv"
	"time"

	"procurement_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Item is one notification addressed to the caller.
type Item struct {
	ID     uuid.UUID `json:"id"`
	Kind   string    `json:"kind"`
	Status string    `json:"status"`
	Text   string    `json:"text"`
	RunAt  time.Time `json:"runAt"`
}

// Inbox lists the notifications of a recipient.
type Inbox interface {
	List(ctx context.Context, recipientID uuid.UUID, page, limit int) ([]Item, int, error)
}

type HTTPHandler struct {
	inbox Inbox
}

func NewHTTPHandler(inbox Inbox) *HTTPHandler {
	return &HTTPHandler{inbox: inbox}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}

func (h *HTTPHandler) List(c *gin.Context) {
	actor, ok := httpkit.RequireActor(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	items, total, err := h.inbox.List(c.Request.Context(), actor.ID, page, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
		"page":  page,
	})
}
