package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/observability"
	apperrors "github.com/krafta/backend/pkg/errors"
)

const (
	minPasswordLength  = 6
	maxPasswordBytes   = 72 // bcrypt input limit
	msgInvalidLogin    = "Invalid email or password"
	msgFailedSignup    = "Failed to create account. Please try again."
	msgEmailRegistered = "Email already registered"
)

// SignupInput is a public registration request
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Role     string
	Phone    string
}

// Session is an issued login token
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      *entities.User `json:"user"`
}

// AuthService handles account registration and credential login
type AuthService struct {
	users       repositories.UserRepository
	hasher      providers.PasswordHasher
	sessions    providers.SessionProvider
	revalidator Revalidator
	now         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repositories.UserRepository,
	hasher providers.PasswordHasher,
	sessions providers.SessionProvider,
	revalidator Revalidator,
) *AuthService {
	return &AuthService{
		users:       users,
		hasher:      hasher,
		sessions:    sessions,
		revalidator: revalidator,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail trims and lowercases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a customer or professional account
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*entities.User, error) {
	email := NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || input.Password == "" || name == "" {
		return nil, apperrors.NewValidationError("All fields are required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("Password must be at least 6 characters")
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, apperrors.NewValidationError("Password must be at most 72 bytes")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperrors.NewValidationError("Invalid email address")
	}

	role := entities.RoleCustomer
	if strings.TrimSpace(input.Role) != "" {
		parsed, err := entities.ParseRole(input.Role)
		if err != nil || parsed == entities.RoleAdmin {
			return nil, apperrors.NewValidationError("Invalid role")
		}
		role = parsed
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflictError(msgEmailRegistered)
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, internalOr(err, msgFailedSignup)
	}

	user, err := s.createUser(ctx, email, input.Password, name, strings.TrimSpace(input.Phone), role)
	if err != nil {
		return nil, err
	}
	// The admin dashboard counts and lists users
	if s.revalidator != nil {
		s.revalidator.Revalidate(ctx, PathAdmin)
	}
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, name, phone string, role entities.Role) (*entities.User, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(msgFailedSignup, err)
	}

	now := s.now()
	user := &entities.User{
		ID:             uuid.New().String(),
		Name:           name,
		Email:          email,
		Phone:          phone,
		HashedPassword: hashed,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// A concurrent signup with the same email trips the unique index
	if err := s.users.Create(ctx, user); err != nil {
		return nil, internalOr(err, msgFailedSignup, apperrors.ErrorTypeConflict)
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Every failure
// answers with the same message.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewUnauthorizedError(msgInvalidLogin)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewUnauthorizedError(msgInvalidLogin)
		}
		return nil, internalOr(err, "Failed to sign in")
	}
	if user.HashedPassword == "" || !s.hasher.Compare(user.HashedPassword, password) {
		return nil, apperrors.NewUnauthorizedError(msgInvalidLogin)
	}

	token, expiresAt, err := s.sessions.Issue(user)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to sign in", err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("User signed in")

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (*entities.User, bool, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, false, nil
	}
	if len(password) < minPasswordLength {
		return nil, false, apperrors.NewValidationError("Password must be at least 6 characters")
	}
	if len(password) > maxPasswordBytes {
		return nil, false, apperrors.NewValidationError("Password must be at most 72 bytes")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != entities.RoleAdmin {
			return nil, false, apperrors.NewConflictError("Bootstrap admin email belongs to a non-admin account")
		}
		return existing, false, nil
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, false, err
	}

	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	user, err := s.createUser(ctx, email, password, strings.TrimSpace(name), "", entities.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Me returns the current user's profile
func (s *AuthService) Me(ctx context.Context, actor *entities.Principal) (*entities.User, error) {
	if actor == nil || actor.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("Unauthorized")
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewUnauthorizedError("Unauthorized")
		}
		return nil, internalOr(err, "Failed to load profile")
	}
	return user, nil
}

// Authenticate resolves a session token into the caller's identity
func (s *AuthService) Authenticate(token string) (*entities.Principal, error) {
	return s.sessions.Parse(token)
}
