package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pradeep-opticals/opticals-api/internal/quotations"
)

// NotificationHandler processes the notify tasks by handing them to the
// mailer. Malformed payloads are dropped; delivery failures are retried by
// asynq.
type NotificationHandler struct {
	mailer Mailer
	logger *slog.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(mailer Mailer, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{mailer: mailer, logger: logger}
}

// Handle processes one notification task.
func (h *NotificationHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("decode notification payload", slog.Any("error", err))
		return asynq.SkipRetry
	}
	if payload.Target == "" {
		h.logger.Warn("notification without target dropped", slog.String("subject", payload.Subject))
		return asynq.SkipRetry
	}

	if err := h.mailer.Send(payload.Target, payload.Subject, payload.Message); err != nil {
		h.logger.Error("send notification",
			slog.String("to", payload.Target),
			slog.Any("error", err))
		return err
	}

	h.logger.Info("notification sent",
		slog.String("type", t.Type()),
		slog.String("to", payload.Target),
		slog.String("number", payload.Number))
	return nil
}

// ExpiryJob materialises the expired status for quotations whose validity
// window has passed. It runs from the scheduler; reads already treat such
// quotations as expired, the sweep just makes listings match.
type ExpiryJob struct {
	repo   quotations.Repository
	logger *slog.Logger
}

// NewExpiryJob constructs the sweep job.
func NewExpiryJob(repo quotations.Repository, logger *slog.Logger) *ExpiryJob {
	return &ExpiryJob{repo: repo, logger: logger}
}

// Handle runs one sweep.
func (j *ExpiryJob) Handle(ctx context.Context, t *asynq.Task) error {
	count, err := j.repo.MarkExpired(ctx, time.Now())
	if err != nil {
		j.logger.Error("expire quotations", slog.Any("error", err))
		return err
	}
	if count > 0 {
		j.logger.Info("quotations expired", slog.Int64("count", count))
	}
	return nil
}
