package quotations

import (
	"errors"
	"testing"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		name    string
		from    Status
		role    rbac.Role
		action  Action
		to      Status
		wantErr error
	}{
		{"staff approves pending", StatusPending, rbac.RoleStaff, ActionApprove, StatusApproved, nil},
		{"staff rejects pending", StatusPending, rbac.RoleStaff, ActionReject, StatusRejected, nil},
		{"staff converts approved", StatusApproved, rbac.RoleStaff, ActionConvert, StatusConverted, nil},
		{"customer confirms approved", StatusApproved, rbac.RoleCustomer, ActionConfirm, StatusApproved, nil},
		{"customer declines approved", StatusApproved, rbac.RoleCustomer, ActionReject, StatusRejected, nil},

		{"customer may not approve", StatusPending, rbac.RoleCustomer, ActionApprove, "", ErrUnauthorizedTransition},
		{"customer may not reject pending", StatusPending, rbac.RoleCustomer, ActionReject, "", ErrUnauthorizedTransition},
		{"customer may not convert", StatusApproved, rbac.RoleCustomer, ActionConvert, "", ErrUnauthorizedTransition},
		{"staff may not confirm", StatusApproved, rbac.RoleStaff, ActionConfirm, "", ErrUnauthorizedTransition},

		{"approve from approved", StatusApproved, rbac.RoleStaff, ActionApprove, "", ErrInvalidTransition},
		{"convert from pending", StatusPending, rbac.RoleStaff, ActionConvert, "", ErrInvalidTransition},
		{"approve from rejected", StatusRejected, rbac.RoleStaff, ActionApprove, "", ErrInvalidTransition},
		{"convert from converted", StatusConverted, rbac.RoleStaff, ActionConvert, "", ErrInvalidTransition},
		{"approve from expired", StatusExpired, rbac.RoleStaff, ActionApprove, "", ErrInvalidTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			to, err := Allowed(tc.from, tc.role, tc.action)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if to != tc.to {
				t.Fatalf("to = %s, want %s", to, tc.to)
			}
		})
	}
}

func TestAllowedReply(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusApproved} {
		if _, err := Allowed(from, rbac.RoleStaff, ActionReply); err != nil {
			t.Fatalf("staff reply from %s: %v", from, err)
		}
	}
	for _, from := range []Status{StatusRejected, StatusConverted, StatusExpired} {
		if _, err := Allowed(from, rbac.RoleStaff, ActionReply); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("reply from %s: got %v, want ErrInvalidTransition", from, err)
		}
	}
	if _, err := Allowed(StatusPending, rbac.RoleCustomer, ActionReply); !errors.Is(err, ErrUnauthorizedTransition) {
		t.Fatalf("customer reply: got %v, want ErrUnauthorizedTransition", err)
	}
}
