package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	sent []string
	err  error
}

func (m *captureMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func notificationTask(t *testing.T, payload NotificationPayload) *asynq.Task {
	t.Helper()
	task, err := NewNotificationTask(TaskNotifyCustomer, payload)
	require.NoError(t, err)
	return task
}

func TestNotificationHandlerSends(t *testing.T) {
	mailer := &captureMailer{}
	h := NewNotificationHandler(mailer, discardLogger())

	task := notificationTask(t, NotificationPayload{
		Number:  "QUO-20260210-0001",
		Target:  "ravi@example.com",
		Subject: "Quotation approved",
		Message: "Please confirm.",
	})

	require.NoError(t, h.Handle(context.Background(), task))
	assert.Equal(t, []string{"ravi@example.com"}, mailer.sent)
}

func TestNotificationHandlerRetriesOnMailFailure(t *testing.T) {
	mailer := &captureMailer{err: errors.New("relay unreachable")}
	h := NewNotificationHandler(mailer, discardLogger())

	task := notificationTask(t, NotificationPayload{Target: "ravi@example.com", Subject: "hi"})

	err := h.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "delivery failures must stay retryable")
}

func TestNotificationHandlerDropsMalformedPayload(t *testing.T) {
	h := NewNotificationHandler(&captureMailer{}, discardLogger())

	err := h.Handle(context.Background(), asynq.NewTask(TaskNotifyCustomer, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNotificationHandlerDropsMissingTarget(t *testing.T) {
	mailer := &captureMailer{}
	h := NewNotificationHandler(mailer, discardLogger())

	task := notificationTask(t, NotificationPayload{Subject: "no recipient"})

	err := h.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, mailer.sent)
}

func TestNotificationPayloadRoundTrip(t *testing.T) {
	task, err := NewNotificationTask(TaskNotifyStaff, NotificationPayload{
		QuotationID: 11,
		Number:      "QUO-20260210-0001",
		Target:      "sales@pradeepopticals.local",
		Subject:     "Quotation confirmed",
		Message:     "Ready to convert.",
	})
	require.NoError(t, err)
	assert.Equal(t, TaskNotifyStaff, task.Type())

	var decoded NotificationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, int64(11), decoded.QuotationID)
	assert.Equal(t, "sales@pradeepopticals.local", decoded.Target)
}

func TestSMTPMailerLogsWhenUnconfigured(t *testing.T) {
	m := NewSMTPMailer("", "no-reply@pradeepopticals.local", discardLogger())
	assert.NoError(t, m.Send("ravi@example.com", "subject", "body"))
	assert.Error(t, m.Send("", "subject", "body"))
}
