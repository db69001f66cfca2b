package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradeep-opticals/opticals-api/internal/quotations"
	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

type memoryRepo struct {
	orders map[int64]*Order
	nextID int64
	seq    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[int64]*Order{}, nextID: 1}
}

func (r *memoryRepo) Create(ctx context.Context, o Order) (int64, error) {
	o.ID = r.nextID
	r.nextID++
	o.CreatedAt = time.Now()
	r.orders[o.ID] = &o
	return o.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (r *memoryRepo) FindByQuotation(ctx context.Context, quotationID int64) (*Order, error) {
	for _, o := range r.orders {
		if o.QuotationID != nil && *o.QuotationID == quotationID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	var out []Order
	for _, o := range r.orders {
		if req.CustomerID != nil && o.CustomerID != *req.CustomerID {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (r *memoryRepo) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	r.seq++
	return fmt.Sprintf("ORD-%s-%04d", date.Format("20060102"), r.seq), nil
}

func sourceQuotation() quotations.Quotation {
	q := quotations.Quotation{
		ID:            11,
		Number:        "QUO-20260210-0001",
		CustomerID:    42,
		CustomerName:  "Ravi",
		CustomerEmail: "ravi@example.com",
		Status:        quotations.StatusApproved,
	}
	_ = q.AddItem(quotations.DefaultPricing, quotations.Item{ProductID: 1, ProductName: "Titan frame", Quantity: 1, UnitPrice: 150})
	_ = q.AddItem(quotations.DefaultPricing, quotations.Item{ProductID: 2, ProductName: "Blue-cut lens", Quantity: 2, UnitPrice: 50, Specifications: map[string]string{"coating": "anti-glare"}})
	return q
}

func TestCreateFromQuotation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	staff := rbac.Actor{ID: 7, Name: "Anita", Role: rbac.RoleStaff}

	id, err := svc.CreateFromQuotation(context.Background(), sourceQuotation(), staff)
	require.NoError(t, err)

	order, err := svc.Get(context.Background(), id)
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-\d{8}-\d{4}$`, order.Number)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, int64(42), order.CustomerID)
	require.NotNil(t, order.QuotationID)
	assert.Equal(t, int64(11), *order.QuotationID)
	assert.Equal(t, int64(7), order.CreatedBy)

	// The monetary summary is copied verbatim from the quotation.
	assert.Equal(t, 250.0, order.Subtotal)
	assert.Equal(t, 25.0, order.TaxAmount)
	assert.Equal(t, 275.0, order.TotalAmount)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "Titan frame", order.Items[0].ProductName)
	assert.Equal(t, map[string]string{"coating": "anti-glare"}, order.Items[1].Specifications)
}

func TestCreateFromQuotationIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	staff := rbac.Actor{ID: 7, Name: "Anita", Role: rbac.RoleStaff}

	first, err := svc.CreateFromQuotation(context.Background(), sourceQuotation(), staff)
	require.NoError(t, err)

	// A conversion retried after a version conflict must find the order
	// made by the first attempt, not create a second one.
	second, err := svc.CreateFromQuotation(context.Background(), sourceQuotation(), staff)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, repo.orders, 1)
}

func TestCreateFromQuotationWithoutItems(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	staff := rbac.Actor{ID: 7, Role: rbac.RoleStaff}

	_, err := svc.CreateFromQuotation(context.Background(), quotations.Quotation{Number: "QUO-20260210-0002"}, staff)
	assert.Error(t, err)
}

func TestUpdateStatus(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	staff := rbac.Actor{ID: 7, Role: rbac.RoleStaff}

	id, err := svc.CreateFromQuotation(context.Background(), sourceQuotation(), staff)
	require.NoError(t, err)

	order, err := svc.UpdateStatus(context.Background(), id, StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, order.Status)

	_, err = svc.UpdateStatus(context.Background(), 999, StatusReady)
	assert.ErrorIs(t, err, ErrNotFound)
}
