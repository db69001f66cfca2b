package orders

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

// ErrNotFound indicates the order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrDuplicateQuotation indicates an order already exists for the
// quotation; the unique index on quotation_id enforces at most one.
var ErrDuplicateQuotation = errors.New("order already exists for quotation")

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o Order) (int64, error)
	Get(ctx context.Context, id int64) (*Order, error)
	FindByQuotation(ctx context.Context, quotationID int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed order repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const orderColumns = `id, number, customer_id, customer_name, customer_email, quotation_id,
subtotal, tax_amount, discount, total_amount, status, created_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (number, customer_id, customer_name, customer_email, quotation_id,
				subtotal, tax_amount, discount, total_amount, status, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`, o.Number, o.CustomerID, o.CustomerName, o.CustomerEmail, o.QuotationID,
			o.Subtotal, o.TaxAmount, o.Discount, o.TotalAmount, o.Status, o.CreatedBy).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_orders_quotation" {
				return ErrDuplicateQuotation
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range o.Items {
			var specs []byte
			if len(item.Specifications) > 0 {
				specs, err = json.Marshal(item.Specifications)
				if err != nil {
					return fmt.Errorf("encode item specifications: %w", err)
				}
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price, specifications)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, id, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.TotalPrice, specs)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns), id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, product_name, quantity, unit_price, total_price, specifications
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		var specs []byte
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &specs); err != nil {
			return nil, err
		}
		if len(specs) > 0 {
			if err := json.Unmarshal(specs, &item.Specifications); err != nil {
				return nil, fmt.Errorf("decode item specifications: %w", err)
			}
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) FindByQuotation(ctx context.Context, quotationID int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM orders WHERE quotation_id = $1", orderColumns), quotationID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		orderColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *o)
	}
	return items, total, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	period := date.Format("20060102")
	var seq int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "ORD", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%04d", period, seq), nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.CustomerID, &o.CustomerName, &o.CustomerEmail, &o.QuotationID,
		&o.Subtotal, &o.TaxAmount, &o.Discount, &o.TotalAmount, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
