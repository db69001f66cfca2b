package products

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/pradeep-opticals/opticals-api/internal/quotations"
)

const cacheTTL = 5 * time.Minute

// Service wraps the catalog repository with a read-through redis cache.
// Cache misses and redis outages fall back to the database.
type Service struct {
	repo   Repository
	cache  *redis.Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a catalog service. The cache is optional.
func NewService(repo Repository, cache *redis.Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Create adds a catalog entry. New products start active.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	p := Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		IsActive:      true,
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns a product, served from cache when possible. Concurrent
// misses for the same id share one database load.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	if p := s.cached(ctx, id); p != nil {
		return p, nil
	}

	v, err, _ := s.group.Do(cacheKey(id), func() (interface{}, error) {
		p, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		s.store(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

// Update applies a partial update and invalidates the cache entry.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.StockQuantity != nil {
		p.StockQuantity = *req.StockQuantity
	}
	if req.ImageURL != nil {
		p.ImageURL = req.ImageURL
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, *p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.repo.Get(ctx, id)
}

// List returns matching products plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// AdjustStock applies a stock delta and invalidates the cache entry.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int) error {
	if err := s.repo.AdjustStock(ctx, id, delta); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Resolve satisfies quotations.Catalog: product identity, current price and
// availability at quotation creation time.
func (s *Service) Resolve(ctx context.Context, productID int64) (*quotations.ProductInfo, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &quotations.ProductInfo{
		ID:      p.ID,
		Name:    p.Name,
		Price:   p.Price,
		InStock: p.InStock(),
	}, nil
}

func cacheKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

func (s *Service) cached(ctx context.Context, id int64) *Product {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		return nil
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}

func (s *Service) store(ctx context.Context, p *Product) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(p.ID), data, cacheTTL).Err(); err != nil {
		s.logger.Warn("cache product", slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(id)).Err(); err != nil {
		s.logger.Warn("invalidate product cache", slog.Any("error", err))
	}
}
