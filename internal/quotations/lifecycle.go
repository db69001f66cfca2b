package quotations

import (
	"fmt"
	"strings"
	"time"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

// Engine applies lifecycle transitions to quotation snapshots. It is pure:
// given a snapshot and an action it returns the next snapshot plus the side
// effects the caller must execute, or an error. It holds no durable state.
type Engine struct {
	now func() time.Time
}

// NewEngine constructs an Engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineAt constructs an Engine with an injected clock.
func NewEngineAt(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// guard runs the expiry and authority checks shared by every transition.
func (e *Engine) guard(q Quotation, actor rbac.Actor, action Action) (Status, error) {
	// Reply does not change state, so an open validity window is not
	// required for it.
	if action != ActionReply && q.ExpiredAt(e.now()) {
		return q.Status, fmt.Errorf("%w: valid until %s", ErrQuotationExpired, q.ValidUntil.Format(time.RFC3339))
	}
	return Allowed(q.Status, actor.Role, action)
}

// Approve moves a pending quotation to approved (staff only) and requests a
// customer notification.
func (e *Engine) Approve(q Quotation, actor rbac.Actor, notes *string) (Quotation, []Intent, error) {
	next, err := e.guard(q, actor, ActionApprove)
	if err != nil {
		return q, nil, err
	}

	now := e.now()
	q.Status = next
	q.ApprovedBy = &actor.ID
	q.ApprovedAt = &now
	if notes != nil && strings.TrimSpace(*notes) != "" {
		q.StaffNotes = notes
	}

	msg := fmt.Sprintf("Your quotation %s has been approved for a total of %.2f. Please confirm to proceed.", q.Number, q.TotalAmount)
	return q, []Intent{notifyCustomer(q, "Quotation approved", msg)}, nil
}

// Confirm records the customer's intent to proceed with a staff-approved
// quotation. The status stays approved; staff are notified so they can
// convert it to an order.
func (e *Engine) Confirm(q Quotation, actor rbac.Actor) (Quotation, []Intent, error) {
	if _, err := e.guard(q, actor, ActionConfirm); err != nil {
		return q, nil, err
	}
	if q.CustomerApprovedAt != nil {
		return q, nil, fmt.Errorf("%w: quotation already confirmed by customer", ErrInvalidTransition)
	}

	now := e.now()
	q.CustomerApprovedAt = &now

	msg := fmt.Sprintf("Customer %s confirmed quotation %s. It is ready to convert.", q.CustomerName, q.Number)
	return q, []Intent{notifyStaff(q, "Quotation confirmed", msg)}, nil
}

// Reject declines a quotation. Staff reject pending quotations; customers
// decline staff-approved ones. A non-empty reason is required either way.
func (e *Engine) Reject(q Quotation, actor rbac.Actor, reason string, notes *string) (Quotation, []Intent, error) {
	next, err := e.guard(q, actor, ActionReject)
	if err != nil {
		return q, nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return q, nil, fmt.Errorf("%w: a rejection reason is required", ErrValidation)
	}

	now := e.now()
	q.Status = next
	if actor.Role == rbac.RoleStaff {
		q.RejectedBy = &actor.ID
		q.RejectedAt = &now
		q.RejectionReason = &reason
		if notes != nil && strings.TrimSpace(*notes) != "" {
			q.StaffNotes = notes
		}
		msg := fmt.Sprintf("Your quotation %s was rejected: %s", q.Number, reason)
		return q, []Intent{notifyCustomer(q, "Quotation rejected", msg)}, nil
	}

	q.CustomerRejectedAt = &now
	q.CustomerRejectionReason = &reason
	msg := fmt.Sprintf("Customer %s declined quotation %s: %s", q.CustomerName, q.Number, reason)
	return q, []Intent{notifyStaff(q, "Quotation declined", msg)}, nil
}

// Reply appends a staff message to the audit trail without changing status.
func (e *Engine) Reply(q Quotation, actor rbac.Actor, message string) (Quotation, []Intent, error) {
	if _, err := e.guard(q, actor, ActionReply); err != nil {
		return q, nil, err
	}
	if strings.TrimSpace(message) == "" {
		return q, nil, fmt.Errorf("%w: a reply message is required", ErrValidation)
	}

	q.StaffReplies = append(q.StaffReplies, StaffReply{
		Message:   message,
		StaffID:   actor.ID,
		StaffName: actor.Name,
		CreatedAt: e.now(),
	})

	msg := fmt.Sprintf("Staff replied on quotation %s: %s", q.Number, message)
	return q, []Intent{notifyCustomer(q, "New reply on your quotation", msg)}, nil
}

// Convert requests order creation for an approved quotation. The returned
// snapshot is NOT yet converted: the caller must execute the CreateOrder
// intent and finalise the status only after the order service succeeds, so
// a dependency failure leaves the quotation approved.
func (e *Engine) Convert(q Quotation, actor rbac.Actor) (Quotation, []Intent, error) {
	if _, err := e.guard(q, actor, ActionConvert); err != nil {
		return q, nil, err
	}

	snapshot := q
	return q, []Intent{{
		Kind:        IntentCreateOrder,
		QuotationID: q.ID,
		Number:      q.Number,
		Snapshot:    &snapshot,
	}}, nil
}

// Finalize stamps the converted status once the order reference is known.
func (e *Engine) Finalize(q Quotation, orderID int64) (Quotation, []Intent, error) {
	if q.Status != StatusApproved {
		return q, nil, fmt.Errorf("%w: only approved quotations can be finalised", ErrInvalidTransition)
	}

	now := e.now()
	q.Status = StatusConverted
	q.ConvertedAt = &now
	q.OrderID = &orderID

	msg := fmt.Sprintf("Your quotation %s has been converted to an order.", q.Number)
	return q, []Intent{notifyCustomer(q, "Order created from your quotation", msg)}, nil
}
