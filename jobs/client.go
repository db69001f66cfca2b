package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/pradeep-opticals/opticals-api/internal/quotations"
)

// Client submits jobs to the queue. It satisfies quotations.Dispatcher and
// the appointment notifier, so services enqueue without knowing asynq.
type Client struct {
	client     *asynq.Client
	staffInbox string
}

// NewClient constructs an asynq-backed job client. staffInbox is the
// address staff notifications are delivered to.
func NewClient(redisOpts asynq.RedisClientOpt, staffInbox string) *Client {
	return &Client{client: asynq.NewClient(redisOpts), staffInbox: staffInbox}
}

// Dispatch enqueues one task per notification intent. The order intent is
// executed synchronously by the quotation service, never queued, so it is
// skipped here.
func (c *Client) Dispatch(ctx context.Context, intents []quotations.Intent) error {
	for _, intent := range intents {
		var taskType string
		payload := NotificationPayload{
			QuotationID: intent.QuotationID,
			Number:      intent.Number,
			Target:      intent.Target,
			Subject:     intent.Subject,
			Message:     intent.Message,
		}

		switch intent.Kind {
		case quotations.IntentNotifyCustomer:
			taskType = TaskNotifyCustomer
		case quotations.IntentNotifyStaff:
			taskType = TaskNotifyStaff
			payload.Target = c.staffInbox
		default:
			continue
		}

		task, err := NewNotificationTask(taskType, payload)
		if err != nil {
			return fmt.Errorf("build %s task: %w", taskType, err)
		}
		if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5)); err != nil {
			return fmt.Errorf("enqueue %s: %w", taskType, err)
		}
	}
	return nil
}

// NotifyEmail enqueues a single customer-facing email, used by the
// appointment service.
func (c *Client) NotifyEmail(ctx context.Context, target, subject, message string) error {
	task, err := NewNotificationTask(TaskNotifyCustomer, NotificationPayload{
		Target:  target,
		Subject: subject,
		Message: message,
	})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
