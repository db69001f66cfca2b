package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

// ErrInvalidStatus indicates a transition the appointment flow forbids.
var ErrInvalidStatus = errors.New("invalid appointment transition")

// Notifier delivers appointment emails, typically via the job queue.
type Notifier interface {
	NotifyEmail(ctx context.Context, target, subject, message string) error
}

// Service books and tracks store visits.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs the appointment service. The notifier is optional.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// Book schedules a visit in the future for the calling customer.
func (s *Service) Book(ctx context.Context, req BookRequest, customer rbac.Actor, email string) (*Appointment, error) {
	if !req.ScheduledAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: scheduled_at must be in the future", ErrInvalidStatus)
	}

	a := Appointment{
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		CustomerEmail: email,
		Kind:          req.Kind,
		ScheduledAt:   req.ScheduledAt,
		Notes:         req.Notes,
		Status:        StatusScheduled,
	}
	id, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, created.CustomerEmail, "Appointment received",
		fmt.Sprintf("Your %s appointment on %s is scheduled. We will confirm it shortly.",
			created.Kind, created.ScheduledAt.Format("Mon 2 Jan 2006 15:04")))
	return created, nil
}

// SetStatus moves an appointment along its flow. Terminal appointments
// cannot change; only cancellation may skip the confirmed step.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, fmt.Errorf("%w: appointment is already %s", ErrInvalidStatus, a.Status)
	}
	if status == StatusCompleted && a.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: only confirmed appointments can be completed", ErrInvalidStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch status {
	case StatusConfirmed:
		s.notify(ctx, updated.CustomerEmail, "Appointment confirmed",
			fmt.Sprintf("Your %s appointment on %s is confirmed.", updated.Kind, updated.ScheduledAt.Format("Mon 2 Jan 2006 15:04")))
	case StatusCancelled:
		s.notify(ctx, updated.CustomerEmail, "Appointment cancelled",
			fmt.Sprintf("Your %s appointment on %s was cancelled.", updated.Kind, updated.ScheduledAt.Format("Mon 2 Jan 2006 15:04")))
	}
	return updated, nil
}

// Get returns an appointment by id.
func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

// List returns appointments matching the filters plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Appointment, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) notify(ctx context.Context, target, subject, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyEmail(ctx, target, subject, message); err != nil {
		s.logger.Error("enqueue appointment notification", slog.Any("error", err))
	}
}
