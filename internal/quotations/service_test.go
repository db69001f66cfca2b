package quotations

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

type memoryRepo struct {
	quotations map[int64]*Quotation
	nextID     int64
	seq        int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{quotations: map[int64]*Quotation{}, nextID: 1}
}

func (r *memoryRepo) Create(ctx context.Context, q Quotation) (int64, error) {
	q.ID = r.nextID
	r.nextID++
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	r.quotations[q.ID] = &q
	return q.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := r.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (r *memoryRepo) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	for _, q := range r.quotations {
		if q.Number == number {
			copied := *q
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range r.quotations {
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (r *memoryRepo) ApplyTransition(ctx context.Context, q Quotation) error {
	stored, ok := r.quotations[q.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != q.Version {
		return ErrConcurrentModification
	}
	q.Version++
	q.UpdatedAt = time.Now()
	r.quotations[q.ID] = &q
	return nil
}

func (r *memoryRepo) AppendReply(ctx context.Context, quotationID, version int64, reply StaffReply) error {
	stored, ok := r.quotations[quotationID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != version {
		return ErrConcurrentModification
	}
	stored.Version++
	stored.StaffReplies = append(stored.StaffReplies, reply)
	return nil
}

func (r *memoryRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	for _, q := range r.quotations {
		if (q.Status == StatusPending || q.Status == StatusApproved) && q.ValidUntil.Before(now) {
			q.Status = StatusExpired
			q.Version++
			count++
		}
	}
	return count, nil
}

func (r *memoryRepo) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	r.seq++
	return fmt.Sprintf("QUO-%s-%04d", date.Format("20060102"), r.seq), nil
}

type memoryCatalog struct {
	products map[int64]ProductInfo
}

func (c *memoryCatalog) Resolve(ctx context.Context, productID int64) (*ProductInfo, error) {
	p, ok := c.products[productID]
	if !ok {
		return nil, errors.New("no such product")
	}
	return &p, nil
}

// stubOrders honours the OrderCreator contract: creation is idempotent
// per quotation, so a retry returns the order made by the first attempt.
type stubOrders struct {
	orderID int64
	err     error
	calls   int
	created map[int64]int64
}

func (o *stubOrders) CreateFromQuotation(ctx context.Context, q Quotation, actor rbac.Actor) (int64, error) {
	o.calls++
	if o.err != nil {
		return 0, o.err
	}
	if o.created == nil {
		o.created = map[int64]int64{}
	}
	if id, ok := o.created[q.ID]; ok {
		return id, nil
	}
	o.created[q.ID] = o.orderID
	return o.orderID, nil
}

type captureDispatcher struct {
	intents []Intent
}

func (d *captureDispatcher) Dispatch(ctx context.Context, intents []Intent) error {
	d.intents = append(d.intents, intents...)
	return nil
}

type testEnv struct {
	repo       *memoryRepo
	orders     *stubOrders
	dispatcher *captureDispatcher
	service    *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMemoryRepo()
	orders := &stubOrders{orderID: 901}
	dispatcher := &captureDispatcher{}
	catalog := &memoryCatalog{products: map[int64]ProductInfo{
		1: {ID: 1, Name: "Titan frame", Price: 150, InStock: true},
		2: {ID: 2, Name: "Blue-cut lens", Price: 50, InStock: true},
		3: {ID: 3, Name: "Aviator", Price: 200, InStock: false},
	}}
	service := NewService(ServiceConfig{
		Repo:       repo,
		Catalog:    catalog,
		Orders:     orders,
		Dispatcher: dispatcher,
	})
	return &testEnv{repo: repo, orders: orders, dispatcher: dispatcher, service: service}
}

func createPending(t *testing.T, env *testEnv) *Quotation {
	t.Helper()
	q, err := env.service.Create(context.Background(), CreateQuotationRequest{
		Items: []CreateQuotationItemReq{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 2},
		},
	}, CustomerIdentity{ID: customer.ID, Name: customer.Name, Email: "ravi@example.com"})
	require.NoError(t, err)
	env.dispatcher.intents = nil
	return q
}

func TestServiceCreate(t *testing.T) {
	env := newTestEnv(t)

	q, err := env.service.Create(context.Background(), CreateQuotationRequest{
		Items: []CreateQuotationItemReq{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 2, Specifications: map[string]string{"coating": "anti-glare"}},
		},
	}, CustomerIdentity{ID: 42, Name: "Ravi", Email: "ravi@example.com"})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, q.Status)
	assert.Equal(t, 250.0, q.Subtotal)
	assert.Equal(t, 25.0, q.TaxAmount)
	assert.Equal(t, 275.0, q.TotalAmount)
	assert.Regexp(t, `^QUO-\d{8}-\d{4}$`, q.Number)
	assert.Equal(t, "Titan frame", q.Items[0].ProductName)
	assert.Equal(t, 150.0, q.Items[0].UnitPrice)

	require.Len(t, env.dispatcher.intents, 1)
	assert.Equal(t, IntentNotifyStaff, env.dispatcher.intents[0].Kind)
}

func TestServiceCreateZeroTaxPolicy(t *testing.T) {
	env := newTestEnv(t)
	svc := NewService(ServiceConfig{
		Repo:       env.repo,
		Catalog:    &memoryCatalog{products: map[int64]ProductInfo{1: {ID: 1, Name: "Titan frame", Price: 150, InStock: true}}},
		Dispatcher: env.dispatcher,
		Policy:     &Policy{Pricing: Pricing{TaxRate: 0}, ValidityDays: 30},
	})

	q, err := svc.Create(context.Background(), CreateQuotationRequest{
		Items: []CreateQuotationItemReq{{ProductID: 1, Quantity: 1}},
	}, CustomerIdentity{ID: 42, Name: "Ravi", Email: "ravi@example.com"})
	require.NoError(t, err)

	// A configured zero rate is tax-free, not an invitation to fall back
	// to the default rate.
	assert.Equal(t, 150.0, q.Subtotal)
	assert.Equal(t, 0.0, q.TaxAmount)
	assert.Equal(t, 150.0, q.TotalAmount)
}

func TestServiceCreateOutOfStock(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Create(context.Background(), CreateQuotationRequest{
		Items: []CreateQuotationItemReq{{ProductID: 3, Quantity: 1}},
	}, CustomerIdentity{ID: 42, Name: "Ravi", Email: "ravi@example.com"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestServiceCreateUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Create(context.Background(), CreateQuotationRequest{
		Items: []CreateQuotationItemReq{{ProductID: 99, Quantity: 1}},
	}, CustomerIdentity{ID: 42, Name: "Ravi", Email: "ravi@example.com"})
	assert.ErrorIs(t, err, ErrDependencyFailure)
}

func TestServiceApprove(t *testing.T) {
	env := newTestEnv(t)
	q := createPending(t, env)

	approved, err := env.service.Approve(context.Background(), q.ID, staff, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, q.Version+1, approved.Version)
	require.Len(t, env.dispatcher.intents, 1)
	assert.Equal(t, IntentNotifyCustomer, env.dispatcher.intents[0].Kind)
}

// raceRepo bumps the stored version after every read, simulating another
// writer landing between the service's load and its conditional write.
type raceRepo struct {
	*memoryRepo
}

func (r *raceRepo) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := r.memoryRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.memoryRepo.quotations[id].Version++
	return q, nil
}

func TestServiceApproveStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	q := createPending(t, env)

	svc := NewService(ServiceConfig{
		Repo:       &raceRepo{env.repo},
		Orders:     env.orders,
		Dispatcher: env.dispatcher,
	})

	_, err := svc.Approve(context.Background(), q.ID, staff, nil)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestServiceRejectByCustomer(t *testing.T) {
	env := newTestEnv(t)
	q := createPending(t, env)

	_, err := env.service.Approve(context.Background(), q.ID, staff, nil)
	require.NoError(t, err)
	env.dispatcher.intents = nil

	declined, err := env.service.Reject(context.Background(), q.ID, customer, "found cheaper elsewhere", nil)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, declined.Status)
	require.NotNil(t, declined.CustomerRejectionReason)
	assert.Equal(t, "found cheaper elsewhere", *declined.CustomerRejectionReason)
	require.Len(t, env.dispatcher.intents, 1)
	assert.Equal(t, IntentNotifyStaff, env.dispatcher.intents[0].Kind)
}

func TestServiceConvert(t *testing.T) {
	env := newTestEnv(t)
	q := createPending(t, env)

	_, err := env.service.Approve(context.Background(), q.ID, staff, nil)
	require.NoError(t, err)
	env.dispatcher.intents = nil

	converted, err := env.service.Convert(context.Background(), q.ID, staff)
	require.NoError(t, err)

	assert.Equal(t, StatusConverted, converted.Status)
	require.NotNil(t, converted.OrderID)
	assert.Equal(t, int64(901), *converted.OrderID)
	assert.Equal(t, 1, env.orders.calls)
	require.Len(t, env.dispatcher.intents, 1)
	assert.Equal(t, IntentNotifyCustomer, env.dispatcher.intents[0].Kind)
}

func TestServiceConvertDependencyFailure(t *testing.T) {
	env := newTestEnv(t)
	q := createPending(t, env)

	_, err := env.service.Approve(context.Background(), q.ID, staff, nil)
	require.NoError(t, err)

	env.orders.err = errors.New("order database down")

	_, err = env.service.Convert(context.Background(), q.ID, staff)
	assert.ErrorIs(t, err, ErrDependencyFailure)

	// The quotation must stay approved so the conversion can be retried.
	current, err := env.service.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, current.Status)
	assert.Nil(t, current.OrderID)

	// Retry succeeds once the dependency recovers.
	env.orders.err = nil
	converted, err := env.service.Convert(context.Background(), q.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, StatusConverted, converted.Status)
}

// conflictRepo fails the first n conditional writes, simulating a
// competing transition landing between the order write and the
// finalisation.
type conflictRepo struct {
	*memoryRepo
	failures int
}

func (r *conflictRepo) ApplyTransition(ctx context.Context, q Quotation) error {
	if r.failures > 0 {
		r.failures--
		return ErrConcurrentModification
	}
	return r.memoryRepo.ApplyTransition(ctx, q)
}

func TestServiceConvertConflictThenRetry(t *testing.T) {
	env := newTestEnv(t)
	q := createPending(t, env)

	_, err := env.service.Approve(context.Background(), q.ID, staff, nil)
	require.NoError(t, err)
	env.dispatcher.intents = nil

	svc := NewService(ServiceConfig{
		Repo:       &conflictRepo{memoryRepo: env.repo, failures: 1},
		Orders:     env.orders,
		Dispatcher: env.dispatcher,
	})

	// The order is written, then the finalisation loses to a competing
	// transition. The quotation must still read as approved.
	_, err = svc.Convert(context.Background(), q.ID, staff)
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Len(t, env.orders.created, 1)

	current, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, current.Status)

	// The retry reuses the order from the first attempt instead of
	// creating and reserving stock a second time.
	converted, err := svc.Convert(context.Background(), q.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, StatusConverted, converted.Status)
	require.NotNil(t, converted.OrderID)
	assert.Equal(t, int64(901), *converted.OrderID)
	assert.Len(t, env.orders.created, 1)
	assert.Equal(t, 2, env.orders.calls)
}

func TestServiceConvertPending(t *testing.T) {
	env := newTestEnv(t)
	q := createPending(t, env)

	_, err := env.service.Convert(context.Background(), q.ID, staff)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, env.orders.calls)
}

func TestServiceReply(t *testing.T) {
	env := newTestEnv(t)
	q := createPending(t, env)

	after, err := env.service.Reply(context.Background(), q.ID, staff, "frames arrive friday")
	require.NoError(t, err)

	require.Len(t, after.StaffReplies, 1)
	assert.Equal(t, "frames arrive friday", after.StaffReplies[0].Message)
	assert.Equal(t, StatusPending, after.Status)
	assert.Equal(t, q.Version+1, after.Version)
}

func TestServiceGetMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
