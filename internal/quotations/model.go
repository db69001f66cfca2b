package quotations

import (
	"fmt"
	"time"
)

// Status enumerates the quotation lifecycle states. The same enum is used
// by every consumer: storage, HTTP payloads and the worker.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusConverted Status = "converted"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusConverted || s == StatusExpired
}

// Action enumerates the transition operations of the lifecycle engine.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionConfirm Action = "confirm"
	ActionReply   Action = "reply"
	ActionConvert Action = "convert"
)

// Pricing holds the monetary policy applied when deriving totals.
type Pricing struct {
	TaxRate float64
}

// DefaultPricing is the storewide policy: flat 10% tax on the subtotal.
var DefaultPricing = Pricing{TaxRate: 0.10}

// Item is a single quotation line. TotalPrice is always derived as
// Quantity × UnitPrice and is recomputed on every mutation.
type Item struct {
	ID             int64             `json:"id"`
	ProductID      int64             `json:"product_id"`
	ProductName    string            `json:"product_name"`
	Quantity       int               `json:"quantity"`
	UnitPrice      float64           `json:"unit_price"`
	TotalPrice     float64           `json:"total_price"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// StaffReply is a non-status-changing message appended to the audit trail.
type StaffReply struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	StaffID   int64     `json:"staff_id"`
	StaffName string    `json:"staff_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Quotation is a customer-requested, staff-priced, time-bounded offer
// convertible to an order. Version guards concurrent transition writes.
type Quotation struct {
	ID              int64   `json:"id"`
	Number          string  `json:"number"`
	CustomerID      int64   `json:"customer_id"`
	CustomerName    string  `json:"customer_name"`
	CustomerEmail   string  `json:"customer_email"`
	CustomerPhone   *string `json:"customer_phone,omitempty"`
	Items           []Item  `json:"items"`
	Subtotal        float64 `json:"subtotal"`
	TaxAmount       float64 `json:"tax_amount"`
	Discount        float64 `json:"discount"`
	TotalAmount     float64 `json:"total_amount"`
	Status          Status  `json:"status"`
	PrescriptionURL *string `json:"prescription_url,omitempty"`

	StaffNotes              *string      `json:"staff_notes,omitempty"`
	RejectionReason         *string      `json:"rejection_reason,omitempty"`
	CustomerRejectionReason *string      `json:"customer_rejection_reason,omitempty"`
	StaffReplies            []StaffReply `json:"staff_replies,omitempty"`

	ApprovedBy         *int64     `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	RejectedBy         *int64     `json:"rejected_by,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	CustomerApprovedAt *time.Time `json:"customer_approved_at,omitempty"`
	CustomerRejectedAt *time.Time `json:"customer_rejected_at,omitempty"`
	ConvertedAt        *time.Time `json:"converted_at,omitempty"`
	OrderID            *int64     `json:"order_id,omitempty"`

	ValidUntil time.Time `json:"valid_until"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AddItem appends a line item and rederives the monetary summary.
func (q *Quotation) AddItem(policy Pricing, item Item) error {
	if item.Quantity < 1 {
		return fmt.Errorf("%w: item quantity must be at least 1", ErrValidation)
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("%w: item unit price must not be negative", ErrValidation)
	}
	item.TotalPrice = float64(item.Quantity) * item.UnitPrice
	q.Items = append(q.Items, item)
	q.RecomputeTotals(policy)
	return nil
}

// RemoveItem drops the item at index. A quotation must keep at least one
// item, so removing the last one fails.
func (q *Quotation) RemoveItem(policy Pricing, index int) error {
	if index < 0 || index >= len(q.Items) {
		return fmt.Errorf("%w: item index %d out of range", ErrValidation, index)
	}
	if len(q.Items) == 1 {
		return fmt.Errorf("%w: a quotation requires at least one item", ErrValidation)
	}
	q.Items = append(q.Items[:index], q.Items[index+1:]...)
	q.RecomputeTotals(policy)
	return nil
}

// RecomputeTotals rederives subtotal, tax and total from the stored items.
// Idempotent; safe to call at any time, totals never drift from the items.
func (q *Quotation) RecomputeTotals(policy Pricing) {
	var subtotal float64
	for i := range q.Items {
		q.Items[i].TotalPrice = float64(q.Items[i].Quantity) * q.Items[i].UnitPrice
		subtotal += q.Items[i].TotalPrice
	}
	q.Subtotal = subtotal
	q.TaxAmount = subtotal * policy.TaxRate
	q.TotalAmount = q.Subtotal + q.TaxAmount - q.Discount
}

// ExpiredAt reports whether the validity window has passed at the given
// instant. Expiry gates transitions regardless of the stored status.
func (q *Quotation) ExpiredAt(now time.Time) bool {
	return now.After(q.ValidUntil)
}
