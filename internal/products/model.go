package products

import "time"

// Category groups the catalog the way the shop floor does.
type Category string

const (
	CategoryFrames      Category = "frames"
	CategoryLenses      Category = "lenses"
	CategorySunglasses  Category = "sunglasses"
	CategoryAccessories Category = "accessories"
)

// Product is a catalog entry quotations reference by id. Price and stock
// are resolved at quotation creation time, never trusted from the client.
type Product struct {
	ID            int64     `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Category      Category  `json:"category"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	ImageURL      *string   `json:"image_url,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InStock reports whether the product can be quoted right now.
func (p Product) InStock() bool {
	return p.IsActive && p.StockQuantity > 0
}

// CreateProductRequest is the staff payload for adding a catalog entry.
type CreateProductRequest struct {
	SKU           string   `json:"sku" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description"`
	Category      Category `json:"category" validate:"required,oneof=frames lenses sunglasses accessories"`
	Price         float64  `json:"price" validate:"gte=0"`
	StockQuantity int      `json:"stock_quantity" validate:"gte=0"`
	ImageURL      *string  `json:"image_url"`
}

// UpdateProductRequest carries partial updates; nil fields are unchanged.
type UpdateProductRequest struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Category      *Category `json:"category" validate:"omitempty,oneof=frames lenses sunglasses accessories"`
	Price         *float64  `json:"price" validate:"omitempty,gte=0"`
	StockQuantity *int      `json:"stock_quantity" validate:"omitempty,gte=0"`
	ImageURL      *string   `json:"image_url"`
	IsActive      *bool     `json:"is_active"`
}

// ListProductsRequest filters the catalog listing.
type ListProductsRequest struct {
	Category *Category
	Search   string
	InStock  bool
	Limit    int
	Offset   int
}
