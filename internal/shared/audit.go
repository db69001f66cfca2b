package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRecorder persists the who-did-what trail for quotation transitions.
type EventRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEventRecorder constructs an EventRecorder.
func NewEventRecorder(pool *pgxpool.Pool, logger *slog.Logger) *EventRecorder {
	return &EventRecorder{pool: pool, logger: logger}
}

// Record writes one transition event.
func (r *EventRecorder) Record(ctx context.Context, quotationID, actorID int64, action string, note string) error {
	if r == nil {
		return errors.New("event recorder not initialised")
	}
	if quotationID == 0 {
		return errors.New("event quotation id required")
	}
	if actorID == 0 {
		return errors.New("event actor required")
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO quotation_events (quotation_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5)`, quotationID, actorID, action, note, time.Now())
	if err != nil {
		r.logger.Error("record quotation event", slog.Any("error", err))
		return err
	}
	return nil
}

// Event is a single recorded transition.
type Event struct {
	ID          int64     `json:"id"`
	QuotationID int64     `json:"quotation_id"`
	ActorID     int64     `json:"actor_id"`
	Action      string    `json:"action"`
	Note        string    `json:"note,omitempty"`
	At          time.Time `json:"at"`
}

// List returns the events for one quotation, oldest first.
func (r *EventRecorder) List(ctx context.Context, quotationID int64) ([]Event, error) {
	if r == nil {
		return nil, errors.New("event recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, quotation_id, actor_id, action, note, at
FROM quotation_events WHERE quotation_id = $1 ORDER BY at ASC, id ASC`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.QuotationID, &e.ActorID, &e.Action, &e.Note, &e.At); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
