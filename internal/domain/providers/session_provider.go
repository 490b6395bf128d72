package providers

import (
	"time"

	"github.com/krafta/backend/internal/domain/entities"
)

// SessionProvider issues and validates signed session tokens
type SessionProvider interface {
	// Issue signs a token for the user
	Issue(user *entities.User) (token string, expiresAt time.Time, err error)

	// Parse validates a token and returns the caller identity
	Parse(token string) (*entities.Principal, error)
}

// PasswordHasher hashes and verifies credentials
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}
