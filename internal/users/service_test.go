package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

type memoryRepo struct {
	users  map[int64]*User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[int64]*User{}, nextID: 1}
}

func (r *memoryRepo) Create(ctx context.Context, user User) (int64, error) {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return 0, ErrAlreadyExists
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	r.users[user.ID] = &user
	return user.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memoryRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, req ListUsersRequest) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	return nil
}

func register(t *testing.T, svc *Service) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Ravi",
		Email:    "ravi@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	svc := NewService(newMemoryRepo())

	u := register(t, svc)

	assert.Equal(t, rbac.RoleCustomer, u.Role, "self-registration always creates customers")
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "correct horse battery", u.PasswordHash, "password must be stored hashed")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryRepo())
	register(t, svc)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Another Ravi",
		Email:    "RAVI@example.com",
		Password: "something else entirely",
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMemoryRepo())
	register(t, svc)

	u, err := svc.Authenticate(context.Background(), "ravi@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "Ravi", u.Name)

	_, err = svc.Authenticate(context.Background(), "ravi@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	u := register(t, svc)

	require.NoError(t, svc.SetActive(context.Background(), u.ID, false))

	_, err := svc.Authenticate(context.Background(), "ravi@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
