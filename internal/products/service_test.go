package products

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	products map[int64]*Product
	gets     int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{products: map[int64]*Product{
		1: {ID: 1, SKU: "FRM-001", Name: "Titan frame", Category: CategoryFrames, Price: 150, StockQuantity: 5, IsActive: true},
		2: {ID: 2, SKU: "LNS-001", Name: "Blue-cut lens", Category: CategoryLenses, Price: 50, StockQuantity: 0, IsActive: true},
		3: {ID: 3, SKU: "SUN-001", Name: "Aviator", Category: CategorySunglasses, Price: 200, StockQuantity: 3, IsActive: false},
	}}
}

func (r *countingRepo) Create(ctx context.Context, p Product) (int64, error) {
	id := int64(len(r.products) + 1)
	p.ID = id
	r.products[id] = &p
	return id, nil
}

func (r *countingRepo) Get(ctx context.Context, id int64) (*Product, error) {
	r.gets++
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *countingRepo) Update(ctx context.Context, p Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return ErrNotFound
	}
	copied := p
	r.products[p.ID] = &copied
	return nil
}

func (r *countingRepo) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *countingRepo) AdjustStock(ctx context.Context, id int64, delta int) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	p.StockQuantity += delta
	return nil
}

func newTestService(t *testing.T) (*Service, *countingRepo) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newCountingRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, client, logger), repo
}

func TestGetServesFromCache(t *testing.T) {
	svc, repo := newTestService(t)

	first, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Titan frame", first.Name)
	assert.Equal(t, 1, repo.gets)

	second, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, 1, repo.gets, "second read must come from the cache")
}

func TestUpdateInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	newPrice := 175.0
	updated, err := svc.Update(context.Background(), 1, UpdateProductRequest{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, 175.0, updated.Price)

	fresh, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 175.0, fresh.Price, "stale cached price must not survive an update")
}

func TestResolve(t *testing.T) {
	svc, _ := newTestService(t)

	info, err := svc.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Titan frame", info.Name)
	assert.Equal(t, 150.0, info.Price)
	assert.True(t, info.InStock)

	// Zero stock resolves, but unavailable.
	info, err = svc.Resolve(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, info.InStock)

	// Inactive products are unavailable regardless of stock.
	info, err = svc.Resolve(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, info.InStock)

	_, err = svc.Resolve(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustStockInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, svc.AdjustStock(context.Background(), 1, -5))

	fresh, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.StockQuantity)
}
