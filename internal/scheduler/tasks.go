package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"procurement_backend/internal/reminders"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskQuotationAutoClose = "quotations.autoclose"

const TaskBiddingReminder = "bidding.reminder"

const TaskNotificationOutboxDue = "notification.outbox.due"

type QuotationAutoClosePayload struct {
	QuotationID string `json:"quotationId"`
}

type BiddingReminderPayload struct {
	Reminder reminders.Reminder `json:"reminder"`
}

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
	BuyerID  string `json:"buyerId"`
}

// autoCloseTaskID is unique per quotation deadline so a reopened quotation
// gets a fresh task while repeated scheduling of one deadline collapses.
func autoCloseTaskID(quotationID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("autoclose:%s:%d", quotationID, at.Unix())
}

func NewQuotationAutoCloseTask(payload QuotationAutoClosePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationAutoClose, data), nil
}

func ParseQuotationAutoClosePayload(task *asynq.Task) (QuotationAutoClosePayload, error) {
	var payload QuotationAutoClosePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return QuotationAutoClosePayload{}, err
	}
	return payload, nil
}

func NewBiddingReminderTask(payload BiddingReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBiddingReminder, data), nil
}

func ParseBiddingReminderPayload(task *asynq.Task) (BiddingReminderPayload, error) {
	var payload BiddingReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BiddingReminderPayload{}, err
	}
	return payload, nil
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}
