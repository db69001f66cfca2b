package quotations

import (
	"fmt"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

// transitionKey identifies a row of the permission table.
type transitionKey struct {
	from   Status
	action Action
}

type transitionRule struct {
	role rbac.Role
	to   Status
}

// transitions is the single authoritative table of permitted transitions.
// Staff gate first: staff approves or rejects a pending quotation, the
// customer then confirms or declines the staff-approved one, and staff
// converts an approved quotation the customer has not declined.
var transitions = map[transitionKey]transitionRule{
	{StatusPending, ActionApprove}:  {rbac.RoleStaff, StatusApproved},
	{StatusPending, ActionReject}:   {rbac.RoleStaff, StatusRejected},
	{StatusApproved, ActionConvert}: {rbac.RoleStaff, StatusConverted},
	{StatusApproved, ActionConfirm}: {rbac.RoleCustomer, StatusApproved},
	{StatusApproved, ActionReject}:  {rbac.RoleCustomer, StatusRejected},
}

// Allowed answers whether role may perform action from the given status and
// returns the resulting status. Reply is permitted to staff from any
// non-terminal state and never changes the status.
func Allowed(from Status, role rbac.Role, action Action) (Status, error) {
	if action == ActionReply {
		if from.Terminal() {
			return from, fmt.Errorf("%w: cannot reply to a %s quotation", ErrInvalidTransition, from)
		}
		if role != rbac.RoleStaff {
			return from, fmt.Errorf("%w: only staff may reply", ErrUnauthorizedTransition)
		}
		return from, nil
	}

	rule, ok := transitions[transitionKey{from, action}]
	if !ok {
		return from, fmt.Errorf("%w: %s is not defined for status %s", ErrInvalidTransition, action, from)
	}
	if rule.role != role {
		return from, fmt.Errorf("%w: %s may not %s a %s quotation", ErrUnauthorizedTransition, role, action, from)
	}
	return rule.to, nil
}
