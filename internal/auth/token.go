package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
	"github.com/pradeep-opticals/opticals-api/internal/users"
)

// ErrInvalidToken indicates a missing, malformed or expired bearer token.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID int64
	Name   string
	Email  string
	Role   rbac.Role
}

// Actor converts the identity to the lifecycle engine's actor shape.
func (id Identity) Actor() rbac.Actor {
	return rbac.Actor{ID: id.UserID, Name: id.Name, Role: id.Role}
}

// Claims is the JWT payload issued at login.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and parses the service's bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens constructs a token issuer/parser.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given user.
func (t *Tokens) Issue(user *users.User, now time.Time) (string, error) {
	claims := Claims{
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token string and returns the caller identity.
func (t *Tokens) Parse(tokenString string) (*Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID <= 0 {
		return nil, ErrInvalidToken
	}

	role := rbac.Role(claims.Role)
	if role != rbac.RoleCustomer && role != rbac.RoleStaff {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID: userID,
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   role,
	}, nil
}
