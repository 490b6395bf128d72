package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/domain/entities"
	apperrors "github.com/krafta/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(f *fixture) *services.AuthService {
	return services.NewAuthService(f.users, plainHasher{}, stubSessions{}, nil)
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   services.SignupInput
		typ     apperrors.ErrorType
		message string
	}{
		{"missing name", services.SignupInput{Email: "a@b.co", Password: "secret1"},
			apperrors.ErrorTypeValidation, "All fields are required"},
		{"short password", services.SignupInput{Email: "a@b.co", Password: "abc", Name: "A"},
			apperrors.ErrorTypeValidation, "Password must be at least 6 characters"},
		{"password past the bcrypt limit", services.SignupInput{Email: "a@b.co", Password: strings.Repeat("p", 73), Name: "A"},
			apperrors.ErrorTypeValidation, "Password must be at most 72 bytes"},
		{"bad email", services.SignupInput{Email: "not-an-email", Password: "secret1", Name: "A"},
			apperrors.ErrorTypeValidation, "Invalid email address"},
		{"admin role", services.SignupInput{Email: "a@b.co", Password: "secret1", Name: "A", Role: "ADMIN"},
			apperrors.ErrorTypeValidation, "Invalid role"},
		{"unknown role", services.SignupInput{Email: "a@b.co", Password: "secret1", Name: "A", Role: "ROOT"},
			apperrors.ErrorTypeValidation, "Invalid role"},
		{"duplicate email", services.SignupInput{Email: " ALEX@krafta.local ", Password: "secret1", Name: "A"},
			apperrors.ErrorTypeConflict, "Email already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAuthService(newFixture())
			_, err := svc.Signup(ctx, tt.input)
			assertAppError(t, err, tt.typ, tt.message)
		})
	}

	t.Run("defaults to customer and normalizes email", func(t *testing.T) {
		f := newFixture()
		svc := newAuthService(f)
		user, err := svc.Signup(ctx, services.SignupInput{Email: " New@Krafta.Local ", Password: "secret1", Name: " Sam "})
		require.NoError(t, err)
		assert.Equal(t, "new@krafta.local", user.Email)
		assert.Equal(t, "Sam", user.Name)
		assert.Equal(t, entities.RoleCustomer, user.Role)
		assert.Equal(t, "hashed:secret1", f.store.users[user.ID].HashedPassword)
	})

	t.Run("refreshes the admin dashboard", func(t *testing.T) {
		f := newFixture()
		rv := &recordingRevalidator{}
		svc := services.NewAuthService(f.users, plainHasher{}, stubSessions{}, rv)

		_, err := svc.Signup(ctx, services.SignupInput{Email: "sam@krafta.local", Password: "secret1", Name: "Sam"})
		require.NoError(t, err)
		assert.Equal(t, []string{services.PathAdmin}, rv.Paths())

		_, err = svc.Signup(ctx, services.SignupInput{Email: "sam@krafta.local", Password: "secret1", Name: "Sam"})
		require.Error(t, err)
		assert.Len(t, rv.Paths(), 1, "a rejected signup changes nothing")
	})

	t.Run("seventy-two byte password is accepted", func(t *testing.T) {
		svc := newAuthService(newFixture())
		_, err := svc.Signup(ctx, services.SignupInput{Email: "long@krafta.local", Password: strings.Repeat("p", 72), Name: "L"})
		require.NoError(t, err)
	})

	t.Run("professional", func(t *testing.T) {
		svc := newAuthService(newFixture())
		user, err := svc.Signup(ctx, services.SignupInput{Email: "pro@krafta.local", Password: "secret1", Name: "P", Role: "professional"})
		require.NoError(t, err)
		assert.Equal(t, entities.RoleProfessional, user.Role)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.users["u-cust"].HashedPassword = "hashed:password123"
	svc := newAuthService(f)

	session, err := svc.Login(ctx, "ALEX@krafta.local", "password123")
	require.NoError(t, err)
	assert.Equal(t, "token-u-cust", session.Token)
	assert.Equal(t, "u-cust", session.User.ID)

	for _, tc := range []struct{ email, password string }{
		{"alex@krafta.local", "wrong"},
		{"nobody@krafta.local", "password123"},
		{"maria@krafta.local", "password123"}, // no password hash
		{"", ""},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password)
		assertAppError(t, err, apperrors.ErrorTypeUnauthorized, "Invalid email or password")
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newAuthService(f)

	user, created, err := svc.EnsureAdmin(ctx, "root@krafta.local", "supersecret", "Root")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entities.RoleAdmin, user.Role)

	again, created, err := svc.EnsureAdmin(ctx, "ROOT@krafta.local", "supersecret", "Root")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)

	_, _, err = svc.EnsureAdmin(ctx, "alex@krafta.local", "supersecret", "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	none, created, err := svc.EnsureAdmin(ctx, "", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, none)
}

func TestAuthService_Me(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newAuthService(f)

	user, err := svc.Me(ctx, f.customer)
	require.NoError(t, err)
	assert.Equal(t, "Alex", user.Name)

	_, err = svc.Me(ctx, &entities.Principal{UserID: "ghost", Role: entities.RoleCustomer})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}
