package loaders

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/repositories"
)

const batchWait = 2 * time.Millisecond

// Loaders batches the lookups used to enrich booking lists
type Loaders struct {
	UserLoader       *dataloader.Loader[string, *entities.User]
	TechnicianLoader *dataloader.Loader[string, *entities.Technician]
	ReviewLoader     *dataloader.Loader[string, *entities.Review]
}

// NewLoaders creates a new instance of Loaders. Loaders cache per instance,
// so build one per request.
func NewLoaders(
	userRepo repositories.UserRepository,
	technicianRepo repositories.TechnicianRepository,
	reviewRepo repositories.ReviewRepository,
) *Loaders {
	return &Loaders{
		UserLoader: dataloader.NewBatchedLoader(
			batchByID(userRepo.GetByIDs),
			dataloader.WithWait[string, *entities.User](batchWait),
		),
		TechnicianLoader: dataloader.NewBatchedLoader(
			batchByID(technicianRepo.GetByIDs),
			dataloader.WithWait[string, *entities.Technician](batchWait),
		),
		ReviewLoader: dataloader.NewBatchedLoader(
			batchByID(reviewRepo.GetByBookingIDs),
			dataloader.WithWait[string, *entities.Review](batchWait),
		),
	}
}

// Middleware attaches fresh loaders to every request context
func Middleware(
	userRepo repositories.UserRepository,
	technicianRepo repositories.TechnicianRepository,
	reviewRepo repositories.ReviewRepository,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ldrs := NewLoaders(userRepo, technicianRepo, reviewRepo)
			next.ServeHTTP(w, r.WithContext(WithLoaders(r.Context(), ldrs)))
		})
	}
}

// batchByID adapts a bulk repository lookup to a batch function. A failed
// fetch fails every key; a key the store does not have resolves to nil.
func batchByID[V any](fetch func(ctx context.Context, ids []string) (map[string]V, error)) dataloader.BatchFunc[string, V] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[V] {
		results := make([]*dataloader.Result[V], len(keys))
		found, err := fetch(ctx, keys)
		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[V]{Error: err}
				continue
			}
			results[i] = &dataloader.Result[V]{Data: found[key]}
		}
		return results
	}
}

// LoadUsers resolves users by ID. Unknown IDs are absent from the map.
func (l *Loaders) LoadUsers(ctx context.Context, ids []string) (map[string]*entities.User, error) {
	return collect("users", ids, l.UserLoader.LoadMany(ctx, ids))
}

// LoadTechnicians resolves technicians by ID. Unknown IDs are absent from the map.
func (l *Loaders) LoadTechnicians(ctx context.Context, ids []string) (map[string]*entities.Technician, error) {
	return collect("technicians", ids, l.TechnicianLoader.LoadMany(ctx, ids))
}

// LoadReviews resolves reviews keyed by booking ID; unreviewed bookings are absent
func (l *Loaders) LoadReviews(ctx context.Context, bookingIDs []string) (map[string]*entities.Review, error) {
	return collect("reviews", bookingIDs, l.ReviewLoader.LoadMany(ctx, bookingIDs))
}

func collect[V comparable](kind string, keys []string, thunk dataloader.ThunkMany[V]) (map[string]V, error) {
	out := make(map[string]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, errs := thunk()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", kind, err)
		}
	}

	var zero V
	for i, key := range keys {
		if i < len(values) && values[i] != zero {
			out[key] = values[i]
		}
	}
	return out, nil
}

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// For returns the loaders for a given context, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
