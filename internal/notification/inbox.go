package notification

import (
	"context"

	"procurement_backend/internal/notification/handler"
	"procurement_backend/internal/notification/outbox"

	"github.com/google/uuid"
)

// InboxSource pages the outbox rows of a recipient.
type InboxSource interface {
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]outbox.Record, int, error)
}

// Inbox exposes the outbox as a per-recipient notification list.
type Inbox struct {
	source InboxSource
}

func NewInbox(source InboxSource) *Inbox {
	return &Inbox{source: source}
}

// List returns a page of rendered notifications. Rows that can no longer be
// rendered are listed with an empty text.
func (i *Inbox) List(ctx context.Context, recipientID uuid.UUID, page, limit int) ([]handler.Item, int, error) {
	records, total, err := i.source.ListByRecipient(ctx, recipientID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	items := make([]handler.Item, 0, len(records))
	for _, rec := range records {
		item := handler.Item{ID: rec.ID, Kind: rec.Kind, Status: string(rec.Status), RunAt: rec.RunAt}
		if msg, err := Render(rec.Kind, rec.Payload); err == nil {
			item.Text = msg.Text
		}
		items = append(items, item)
	}
	return items, total, nil
}
