package entities

import (
	"fmt"
	"strings"
	"time"
)

// Role is the fixed access role of a user
type Role string

const (
	RoleCustomer     Role = "CUSTOMER"
	RoleProfessional Role = "PROFESSIONAL"
	RoleAdmin        Role = "ADMIN"
)

// ParseRole converts a string into a Role
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleProfessional, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User represents an account in the marketplace
type User struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	Phone          string    `json:"phone,omitempty" db:"phone"`
	Image          string    `json:"image,omitempty" db:"image"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	Role           Role      `json:"role" db:"role"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Principal is the caller identity derived from a session
type Principal struct {
	UserID string `json:"id"`
	Role   Role   `json:"role"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Is reports whether the principal holds the given role
func (p *Principal) Is(role Role) bool {
	return p != nil && p.Role == role
}
