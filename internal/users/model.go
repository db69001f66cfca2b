package users

import (
	"time"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

// User is an account on the store: a shopping customer or a staff member.
// The role enum is shared with the quotation transition authority.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         rbac.Role `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
}

type ListUsersRequest struct {
	Role   *rbac.Role `json:"role,omitempty"`
	Search string     `json:"search,omitempty" validate:"max=200"`
	Limit  int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset int        `json:"offset" validate:"gte=0"`
}
