package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pradeep-opticals/opticals-api/internal/products"
	"github.com/pradeep-opticals/opticals-api/internal/quotations"
	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

// Service creates and tracks orders. It satisfies quotations.OrderCreator
// so the quotation service can convert without importing this package.
type Service struct {
	repo    Repository
	catalog *products.Service
	logger  *slog.Logger
}

// NewService constructs the order service. The catalog is used to reserve
// stock when an order is created; it may be nil in tests.
func NewService(repo Repository, catalog *products.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: catalog, logger: logger}
}

// CreateFromQuotation copies the quotation snapshot into a new pending
// order and reserves stock for each line. The monetary summary is carried
// over verbatim so the customer pays exactly what was quoted.
//
// The operation is idempotent per quotation: if an order for this
// quotation already exists — a previous conversion attempt created it but
// failed before the quotation was finalised — its id is returned and no
// second order or stock reservation happens.
func (s *Service) CreateFromQuotation(ctx context.Context, q quotations.Quotation, actor rbac.Actor) (int64, error) {
	if len(q.Items) == 0 {
		return 0, fmt.Errorf("quotation %s has no items", q.Number)
	}

	if existing, err := s.repo.FindByQuotation(ctx, q.ID); err == nil {
		return existing.ID, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	number, err := s.repo.GenerateNumber(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("generate order number: %w", err)
	}

	o := Order{
		Number:        number,
		CustomerID:    q.CustomerID,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		QuotationID:   &q.ID,
		Subtotal:      q.Subtotal,
		TaxAmount:     q.TaxAmount,
		Discount:      q.Discount,
		TotalAmount:   q.TotalAmount,
		Status:        StatusPending,
		CreatedBy:     actor.ID,
	}
	for _, item := range q.Items {
		o.Items = append(o.Items, Item{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			TotalPrice:     item.TotalPrice,
			Specifications: item.Specifications,
		})
	}

	id, err := s.repo.Create(ctx, o)
	if err != nil {
		// Lost a race against a concurrent conversion of the same
		// quotation; the winner's order is the one to use.
		if errors.Is(err, ErrDuplicateQuotation) {
			existing, findErr := s.repo.FindByQuotation(ctx, q.ID)
			if findErr != nil {
				return 0, findErr
			}
			return existing.ID, nil
		}
		return 0, err
	}

	s.reserveStock(ctx, o)
	return id, nil
}

// reserveStock decrements catalog stock for each order line. Failures are
// logged, not fatal: the order exists and staff reconcile stock manually.
func (s *Service) reserveStock(ctx context.Context, o Order) {
	if s.catalog == nil {
		return
	}
	for _, item := range o.Items {
		if err := s.catalog.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			s.logger.Warn("reserve stock",
				slog.String("order", o.Number),
				slog.Int64("product_id", item.ProductID),
				slog.Any("error", err))
		}
	}
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filters plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// UpdateStatus moves an order along the fulfilment flow.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
