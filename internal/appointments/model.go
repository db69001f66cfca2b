package appointments

import "time"

// Status enumerates the appointment lifecycle.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the appointment can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Kind is the service the customer is booking.
type Kind string

const (
	KindEyeExam Kind = "eye_exam"
	KindFitting Kind = "fitting"
	KindPickup  Kind = "pickup"
)

// Appointment is a booked visit to the store.
type Appointment struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Kind          Kind      `json:"kind"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Notes         *string   `json:"notes,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BookRequest is the customer payload for booking a visit.
type BookRequest struct {
	Kind        Kind      `json:"kind" validate:"required,oneof=eye_exam fitting pickup"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       *string   `json:"notes"`
}

// ListRequest filters appointment listings.
type ListRequest struct {
	CustomerID *int64
	Status     *Status
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
