package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskNotifyCustomer emails a customer about their quotation.
	TaskNotifyCustomer = "notify:customer"
	// TaskNotifyStaff emails the staff inbox about a quotation.
	TaskNotifyStaff = "notify:staff"
	// TaskExpireQuotations sweeps quotations past their validity window.
	TaskExpireQuotations = "quotations:expire"
)

// NotificationPayload carries one rendered notification email.
type NotificationPayload struct {
	QuotationID int64  `json:"quotation_id,omitempty"`
	Number      string `json:"number,omitempty"`
	Target      string `json:"target,omitempty"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
}

// NewNotificationTask constructs a notification task of the given type.
func NewNotificationTask(taskType string, payload NotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

// NewExpireQuotationsTask constructs the periodic expiry sweep task.
func NewExpireQuotationsTask() *asynq.Task {
	return asynq.NewTask(TaskExpireQuotations, nil)
}
