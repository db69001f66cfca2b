package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

type memoryRepo struct {
	appointments map[int64]*Appointment
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{appointments: map[int64]*Appointment{}, nextID: 1}
}

func (r *memoryRepo) Create(ctx context.Context, a Appointment) (int64, error) {
	a.ID = r.nextID
	r.nextID++
	a.CreatedAt = time.Now()
	r.appointments[a.ID] = &a
	return a.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListRequest) ([]Appointment, int, error) {
	var out []Appointment
	for _, a := range r.appointments {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	a, ok := r.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

type captureNotifier struct {
	subjects []string
}

func (n *captureNotifier) NotifyEmail(ctx context.Context, target, subject, message string) error {
	n.subjects = append(n.subjects, subject)
	return nil
}

var ravi = rbac.Actor{ID: 42, Name: "Ravi", Role: rbac.RoleCustomer}

func book(t *testing.T, svc *Service) *Appointment {
	t.Helper()
	a, err := svc.Book(context.Background(), BookRequest{
		Kind:        KindEyeExam,
		ScheduledAt: time.Now().Add(48 * time.Hour),
	}, ravi, "ravi@example.com")
	require.NoError(t, err)
	return a
}

func TestBook(t *testing.T) {
	notifier := &captureNotifier{}
	svc := NewService(newMemoryRepo(), notifier, nil)

	a := book(t, svc)

	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, int64(42), a.CustomerID)
	assert.Equal(t, []string{"Appointment received"}, notifier.subjects)
}

func TestBookInThePast(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	_, err := svc.Book(context.Background(), BookRequest{
		Kind:        KindFitting,
		ScheduledAt: time.Now().Add(-time.Hour),
	}, ravi, "ravi@example.com")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatusFlow(t *testing.T) {
	notifier := &captureNotifier{}
	svc := NewService(newMemoryRepo(), notifier, nil)
	a := book(t, svc)

	confirmed, err := svc.SetStatus(context.Background(), a.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	done, err := svc.SetStatus(context.Background(), a.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	// Terminal appointments cannot change again.
	_, err = svc.SetStatus(context.Background(), a.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.Equal(t, []string{"Appointment received", "Appointment confirmed"}, notifier.subjects)
}

func TestCompleteRequiresConfirmation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	a := book(t, svc)

	_, err := svc.SetStatus(context.Background(), a.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelFromScheduled(t *testing.T) {
	notifier := &captureNotifier{}
	svc := NewService(newMemoryRepo(), notifier, nil)
	a := book(t, svc)

	cancelled, err := svc.SetStatus(context.Background(), a.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Contains(t, notifier.subjects, "Appointment cancelled")
}
