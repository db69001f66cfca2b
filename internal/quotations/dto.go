package quotations

import "time"

type CreateQuotationRequest struct {
	CustomerPhone   *string                  `json:"customer_phone,omitempty" validate:"omitempty,max=50"`
	PrescriptionURL *string                  `json:"prescription_url,omitempty" validate:"omitempty,url"`
	Items           []CreateQuotationItemReq `json:"items" validate:"required,min=1,dive"`
}

type CreateQuotationItemReq struct {
	ProductID      int64             `json:"product_id" validate:"required,gt=0"`
	Quantity       int               `json:"quantity" validate:"required,gte=1"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

type ListQuotationsRequest struct {
	CustomerID *int64     `json:"customer_id,omitempty"`
	Status     *Status    `json:"status,omitempty"`
	Search     string     `json:"search,omitempty" validate:"max=200"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Limit      int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int        `json:"offset" validate:"gte=0"`
}

type RejectRequest struct {
	Reason string  `json:"reason" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

type ApproveRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type ReplyRequest struct {
	Message string `json:"message" validate:"required"`
}
