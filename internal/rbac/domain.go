package rbac

// Role partitions authority between the two principals the store knows
// about. Admin accounts act with staff authority.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleStaff
}

// Actor is the authenticated principal performing an operation. Domain
// services never read ambient user state; callers pass the actor in.
type Actor struct {
	ID   int64
	Name string
	Role Role
}
