package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is an account's authorisation role.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Account is the durable customer record. Its ID is the only valid order foreign key.
type Account struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SessionRef *string   `json:"-" db:"session_ref"`
	Email      string    `json:"email" db:"email"`
	FirstName  string    `json:"firstName" db:"first_name"`
	LastName   string    `json:"lastName" db:"last_name"`
	Role       Role      `json:"role" db:"role"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// HasSession reports whether the account's last-seen session is sessionID.
func (a Account) HasSession(sessionID string) bool {
	return a.SessionRef != nil && *a.SessionRef == sessionID
}

// Session is the identity issued by the authentication provider for one browser session.
// It is never stored as an order's account id.
type Session struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// NormalizeEmail lowercases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
