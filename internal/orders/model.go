package orders

import "time"

// Status enumerates the order fulfilment states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Item is one order line, copied from the source quotation when the order
// is created by conversion.
type Item struct {
	ID             int64             `json:"id"`
	ProductID      int64             `json:"product_id"`
	ProductName    string            `json:"product_name"`
	Quantity       int               `json:"quantity"`
	UnitPrice      float64           `json:"unit_price"`
	TotalPrice     float64           `json:"total_price"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// Order is a confirmed purchase. Orders created from a quotation keep a
// back-reference and carry its monetary summary verbatim.
type Order struct {
	ID            int64   `json:"id"`
	Number        string  `json:"number"`
	CustomerID    int64   `json:"customer_id"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	QuotationID   *int64  `json:"quotation_id,omitempty"`
	Items         []Item  `json:"items"`
	Subtotal      float64 `json:"subtotal"`
	TaxAmount     float64 `json:"tax_amount"`
	Discount      float64 `json:"discount"`
	TotalAmount   float64 `json:"total_amount"`
	Status        Status  `json:"status"`
	CreatedBy     int64   `json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListOrdersRequest filters order listings.
type ListOrdersRequest struct {
	CustomerID *int64
	Status     *Status
	Limit      int
	Offset     int
}

// UpdateStatusRequest moves an order along the fulfilment flow.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending processing ready completed cancelled"`
}
