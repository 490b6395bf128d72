package repositories

import (
	"context"

	"github.com/krafta/backend/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user; a duplicate email yields a conflict error
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// GetByIDs retrieves users in bulk, keyed by ID
	GetByIDs(ctx context.Context, ids []string) (map[string]*entities.User, error)

	// List retrieves users, newest first
	List(ctx context.Context, filter UserFilter) ([]*entities.User, error)

	// Count returns the total number of users
	Count(ctx context.Context) (int, error)

	// Delete deletes a user and everything it owns
	Delete(ctx context.Context, id string) error
}

// UserFilter defines filters for listing users
type UserFilter struct {
	Role   entities.Role
	Limit  int
	Offset int
}
