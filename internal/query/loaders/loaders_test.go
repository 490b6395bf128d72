package loaders_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/query/loaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	repositories.UserRepository
	users map[string]*entities.User
	err   error
	calls int
}

func (s *stubUsers) GetByIDs(_ context.Context, ids []string) (map[string]*entities.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]*entities.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type stubTechnicians struct {
	repositories.TechnicianRepository
}

func (stubTechnicians) GetByIDs(context.Context, []string) (map[string]*entities.Technician, error) {
	return map[string]*entities.Technician{}, nil
}

type stubReviews struct {
	repositories.ReviewRepository
}

func (stubReviews) GetByBookingIDs(context.Context, []string) (map[string]*entities.Review, error) {
	return map[string]*entities.Review{}, nil
}

func TestLoadUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("batches and skips unknown ids", func(t *testing.T) {
		users := &stubUsers{users: map[string]*entities.User{"u-1": {ID: "u-1", Name: "Alex"}}}
		l := loaders.NewLoaders(users, stubTechnicians{}, stubReviews{})

		got, err := l.LoadUsers(ctx, []string{"u-1", "u-ghost"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, "Alex", got["u-1"].Name)
		assert.Equal(t, 1, users.calls)
	})

	t.Run("surfaces fetch errors", func(t *testing.T) {
		users := &stubUsers{err: errors.New("connection reset")}
		l := loaders.NewLoaders(users, stubTechnicians{}, stubReviews{})

		got, err := l.LoadUsers(ctx, []string{"u-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		assert.Nil(t, got)
	})

	t.Run("no keys no fetch", func(t *testing.T) {
		users := &stubUsers{}
		l := loaders.NewLoaders(users, stubTechnicians{}, stubReviews{})

		got, err := l.LoadUsers(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Zero(t, users.calls)
	})
}

func TestMiddleware(t *testing.T) {
	var seen []*loaders.Loaders
	handler := loaders.Middleware(&stubUsers{}, stubTechnicians{}, stubReviews{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, loaders.For(r.Context()))
		}),
	)

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/customer/dashboard", nil))
	}

	require.Len(t, seen, 2)
	require.NotNil(t, seen[0])
	require.NotNil(t, seen[1])
	assert.NotSame(t, seen[0], seen[1], "each request gets its own loaders")
	assert.Nil(t, loaders.For(context.Background()))
}
