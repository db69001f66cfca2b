package quotations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pradeep-opticals/opticals-api/internal/platform/db"
)

// Repository persists quotations. Every transition write is conditioned on
// the version read before mutation; a stale version fails with
// ErrConcurrentModification.
type Repository interface {
	Create(ctx context.Context, q Quotation) (int64, error)
	Get(ctx context.Context, id int64) (*Quotation, error)
	GetByNumber(ctx context.Context, number string) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	ApplyTransition(ctx context.Context, q Quotation) error
	AppendReply(ctx context.Context, quotationID, version int64, reply StaffReply) error
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed quotation repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

const quotationColumns = `id, number, customer_id, customer_name, customer_email, customer_phone,
subtotal, tax_amount, discount, total_amount, status, prescription_url,
staff_notes, rejection_reason, customer_rejection_reason,
approved_by, approved_at, rejected_by, rejected_at,
customer_approved_at, customer_rejected_at, converted_at, order_id,
valid_until, version, created_at, updated_at`

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO quotations (number, customer_id, customer_name, customer_email, customer_phone,
				subtotal, tax_amount, discount, total_amount, status, prescription_url, valid_until)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`, q.Number, q.CustomerID, q.CustomerName, q.CustomerEmail, q.CustomerPhone,
			q.Subtotal, q.TaxAmount, q.Discount, q.TotalAmount, q.Status, q.PrescriptionURL, q.ValidUntil).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert quotation: %w", err)
		}

		for _, item := range q.Items {
			specs, err := encodeSpecs(item.Specifications)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO quotation_items (quotation_id, product_id, product_name, quantity, unit_price, total_price, specifications)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, id, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.TotalPrice, specs)
			if err != nil {
				return fmt.Errorf("insert quotation item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	return r.getBy(ctx, "number = $1", number)
}

func (r *repository) getBy(ctx context.Context, cond string, arg interface{}) (*Quotation, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM quotations WHERE %s", quotationColumns, cond), arg)
	q, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.loadItems(ctx, q); err != nil {
		return nil, err
	}
	if err := r.loadReplies(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) loadItems(ctx context.Context, q *Quotation) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, product_name, quantity, unit_price, total_price, specifications
		FROM quotation_items WHERE quotation_id = $1 ORDER BY id
	`, q.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		var specs []byte
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &specs); err != nil {
			return err
		}
		if len(specs) > 0 {
			if err := json.Unmarshal(specs, &item.Specifications); err != nil {
				return fmt.Errorf("decode item specifications: %w", err)
			}
		}
		q.Items = append(q.Items, item)
	}
	return rows.Err()
}

func (r *repository) loadReplies(ctx context.Context, q *Quotation) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, message, staff_id, staff_name, created_at
		FROM quotation_replies WHERE quotation_id = $1 ORDER BY created_at, id
	`, q.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var reply StaffReply
		if err := rows.Scan(&reply.ID, &reply.Message, &reply.StaffID, &reply.StaffName, &reply.CreatedAt); err != nil {
			return err
		}
		q.StaffReplies = append(q.StaffReplies, reply)
	}
	return rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
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
	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(number ILIKE $%d OR customer_name ILIKE $%d OR customer_email ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}
	if req.DateFrom != nil {
		add("created_at >= $%d", *req.DateFrom)
	}
	if req.DateTo != nil {
		add("created_at <= $%d", *req.DateTo)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM quotations %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM quotations %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		quotationColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		quotations = append(quotations, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Listings omit items and replies; detail fetches load them.
	return quotations, total, nil
}

func (r *repository) ApplyTransition(ctx context.Context, q Quotation) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations SET
			status = $1,
			staff_notes = $2,
			rejection_reason = $3,
			customer_rejection_reason = $4,
			approved_by = $5,
			approved_at = $6,
			rejected_by = $7,
			rejected_at = $8,
			customer_approved_at = $9,
			customer_rejected_at = $10,
			converted_at = $11,
			order_id = $12,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $13 AND version = $14
	`, q.Status, q.StaffNotes, q.RejectionReason, q.CustomerRejectionReason,
		q.ApprovedBy, q.ApprovedAt, q.RejectedBy, q.RejectedAt,
		q.CustomerApprovedAt, q.CustomerRejectedAt, q.ConvertedAt, q.OrderID,
		q.ID, q.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, q.ID)
	}
	return nil
}

func (r *repository) AppendReply(ctx context.Context, quotationID, version int64, reply StaffReply) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE quotations SET version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $2
		`, quotationID, version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.staleOrMissing(ctx, quotationID)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO quotation_replies (quotation_id, message, staff_id, staff_name, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, quotationID, reply.Message, reply.StaffID, reply.StaffName, reply.CreatedAt)
		return err
	})
}

func (r *repository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations SET status = $1, version = version + 1, updated_at = NOW()
		WHERE status IN ($2, $3) AND valid_until < $4
	`, StatusExpired, StatusPending, StatusApproved, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	// QUO-YYYYMMDD-NNNN, sequence scoped to the day.
	period := date.Format("20060102")
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "QUO", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QUO-%s-%04d", period, seq), nil
}

func (r *repository) staleOrMissing(ctx context.Context, id int64) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT true FROM quotations WHERE id = $1`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrConcurrentModification
}

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.Number, &q.CustomerID, &q.CustomerName, &q.CustomerEmail, &q.CustomerPhone,
		&q.Subtotal, &q.TaxAmount, &q.Discount, &q.TotalAmount, &q.Status, &q.PrescriptionURL,
		&q.StaffNotes, &q.RejectionReason, &q.CustomerRejectionReason,
		&q.ApprovedBy, &q.ApprovedAt, &q.RejectedBy, &q.RejectedAt,
		&q.CustomerApprovedAt, &q.CustomerRejectedAt, &q.ConvertedAt, &q.OrderID,
		&q.ValidUntil, &q.Version, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func encodeSpecs(specs map[string]string) ([]byte, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("encode item specifications: %w", err)
	}
	return data, nil
}
