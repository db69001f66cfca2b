package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrDuplicateSKU indicates another product already carries the SKU.
var ErrDuplicateSKU = errors.New("sku already exists")

// Repository persists catalog entries.
type Repository interface {
	Create(ctx context.Context, p Product) (int64, error)
	Get(ctx context.Context, id int64) (*Product, error)
	Update(ctx context.Context, p Product) error
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	AdjustStock(ctx context.Context, id int64, delta int) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, sku, name, description, category, price, stock_quantity, image_url, is_active, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, category, price, stock_quantity, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, p.SKU, p.Name, p.Description, p.Category, p.Price, p.StockQuantity, p.ImageURL, p.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateSKU
		}
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM products WHERE id = $1", productColumns), id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET
			name = $1, description = $2, category = $3, price = $4,
			stock_quantity = $5, image_url = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
	`, p.Name, p.Description, p.Category, p.Price, p.StockQuantity, p.ImageURL, p.IsActive, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	conditions := []string{"is_active = true"}
	var args []interface{}
	argPos := 1

	if req.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argPos))
		args = append(args, *req.Category)
		argPos++
	}
	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.InStock {
		conditions = append(conditions, "stock_quantity > 0")
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM products %s ORDER BY name, id LIMIT $%d OFFSET $%d",
		productColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *p)
	}
	return items, total, rows.Err()
}

// AdjustStock applies a delta without letting stock go negative.
func (r *repository) AdjustStock(ctx context.Context, id int64, delta int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2 AND stock_quantity + $1 >= 0
	`, delta, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("insufficient stock for product %d", id)
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Price,
		&p.StockQuantity, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
