package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the appointment does not exist.
var ErrNotFound = errors.New("appointment not found")

// Repository persists appointments.
type Repository interface {
	Create(ctx context.Context, a Appointment) (int64, error)
	Get(ctx context.Context, id int64) (*Appointment, error)
	List(ctx context.Context, req ListRequest) ([]Appointment, int, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed appointment repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const appointmentColumns = `id, customer_id, customer_name, customer_email, kind, scheduled_at, notes, status, created_at, updated_at`

func (r *repository) Create(ctx context.Context, a Appointment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (customer_id, customer_name, customer_email, kind, scheduled_at, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.CustomerID, a.CustomerName, a.CustomerEmail, a.Kind, a.ScheduledAt, a.Notes, a.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert appointment: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM appointments WHERE id = $1", appointmentColumns), id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Appointment, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	add := func(cond string, arg interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, arg)
		argPos++
	}

	if req.CustomerID != nil {
		add("customer_id = $%d", *req.CustomerID)
	}
	if req.Status != nil {
		add("status = $%d", *req.Status)
	}
	if req.From != nil {
		add("scheduled_at >= $%d", *req.From)
	}
	if req.To != nil {
		add("scheduled_at <= $%d", *req.To)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM appointments %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM appointments %s ORDER BY scheduled_at, id LIMIT $%d OFFSET $%d",
		appointmentColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *a)
	}
	return items, total, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE appointments SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.CustomerID, &a.CustomerName, &a.CustomerEmail, &a.Kind,
		&a.ScheduledAt, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
