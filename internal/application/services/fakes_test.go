package services_test

import (
	"context"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	"github.com/krafta/backend/internal/domain/repositories"
	apperrors "github.com/krafta/backend/pkg/errors"
	"github.com/stretchr/testify/mock"
)

// store is an in-memory stand-in for the four marketplace tables
type store struct {
	mu          sync.Mutex
	users       map[string]*entities.User
	technicians map[string]*entities.Technician
	bookings    map[string]*entities.Booking
	reviews     map[string]*entities.Review // keyed by booking ID
	batchCalls  map[string]int
	listLimits  []int
	batchErr    error // returned by every bulk lookup when set
}

func newStore() *store {
	return &store{
		users:       map[string]*entities.User{},
		technicians: map[string]*entities.Technician{},
		bookings:    map[string]*entities.Booking{},
		reviews:     map[string]*entities.Review{},
		batchCalls:  map[string]int{},
	}
}

func cp[T any](v *T) *T {
	c := *v
	return &c
}

type fakeUsers struct{ s *store }

func (f fakeUsers) Create(_ context.Context, u *entities.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return apperrors.NewConflictError("Email already registered")
		}
	}
	f.s.users[u.ID] = cp(u)
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*entities.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if u, ok := f.s.users[id]; ok {
		return cp(u), nil
	}
	return nil, apperrors.NewNotFoundError("user not found")
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			return cp(u), nil
		}
	}
	return nil, apperrors.NewNotFoundError("user not found")
}

func (f fakeUsers) GetByIDs(_ context.Context, ids []string) (map[string]*entities.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.batchCalls["users"]++
	if f.s.batchErr != nil {
		return nil, f.s.batchErr
	}
	out := map[string]*entities.User{}
	for _, id := range ids {
		if u, ok := f.s.users[id]; ok {
			out[id] = cp(u)
		}
	}
	return out, nil
}

func (f fakeUsers) List(_ context.Context, filter repositories.UserFilter) ([]*entities.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entities.User
	for _, u := range f.s.users {
		if filter.Role == "" || u.Role == filter.Role {
			out = append(out, cp(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f fakeUsers) Count(context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return len(f.s.users), nil
}

func (f fakeUsers) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return apperrors.NewNotFoundError("User not found")
	}
	delete(f.s.users, id)
	for tid, t := range f.s.technicians {
		if t.UserID == id {
			delete(f.s.technicians, tid)
		}
	}
	return nil
}

type fakeTechnicians struct{ s *store }

func (f fakeTechnicians) Create(_ context.Context, t *entities.Technician) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.technicians {
		if existing.UserID == t.UserID {
			return apperrors.NewConflictError("Profile already exists")
		}
	}
	f.s.technicians[t.ID] = cp(t)
	return nil
}

func (f fakeTechnicians) GetByID(_ context.Context, id string) (*entities.Technician, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if t, ok := f.s.technicians[id]; ok {
		return cp(t), nil
	}
	return nil, apperrors.NewNotFoundError("Technician not found")
}

func (f fakeTechnicians) GetByUserID(_ context.Context, userID string) (*entities.Technician, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, t := range f.s.technicians {
		if t.UserID == userID {
			return cp(t), nil
		}
	}
	return nil, apperrors.NewNotFoundError("Technician not found")
}

func (f fakeTechnicians) GetByIDs(_ context.Context, ids []string) (map[string]*entities.Technician, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.batchCalls["technicians"]++
	if f.s.batchErr != nil {
		return nil, f.s.batchErr
	}
	out := map[string]*entities.Technician{}
	for _, id := range ids {
		if t, ok := f.s.technicians[id]; ok {
			out[id] = cp(t)
		}
	}
	return out, nil
}

func (f fakeTechnicians) List(_ context.Context, filter repositories.TechnicianFilter) ([]*entities.Technician, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entities.Technician
	for _, t := range f.s.technicians {
		if filter.City != "" && !strings.EqualFold(t.City, filter.City) {
			continue
		}
		if q := strings.ToLower(filter.Query); q != "" &&
			!strings.Contains(strings.ToLower(t.Title+" "+t.Skills+" "+t.Categories), q) {
			continue
		}
		out = append(out, cp(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Order == repositories.OrderVerifiedFirst && out[i].IsVerified != out[j].IsVerified {
			return out[i].IsVerified
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f fakeTechnicians) Count(context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return len(f.s.technicians), nil
}

func (f fakeTechnicians) SetVerified(_ context.Context, id string, verified bool) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.technicians[id]
	if !ok {
		return apperrors.NewNotFoundError("Technician not found")
	}
	t.IsVerified = verified
	return nil
}

type fakeBookings struct {
	s *store
	// beforeTransition runs inside Transition before the compare, to
	// simulate a concurrent writer
	beforeTransition func(b *entities.Booking)
}

func (f *fakeBookings) Create(_ context.Context, b *entities.Booking) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.bookings[b.ID] = cp(b)
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id string) (*entities.Booking, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if b, ok := f.s.bookings[id]; ok {
		return cp(b), nil
	}
	return nil, apperrors.NewNotFoundError("booking not found")
}

func (f *fakeBookings) Transition(_ context.Context, c entities.BookingChange) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.bookings[c.BookingID]
	if !ok {
		return false, nil
	}
	if f.beforeTransition != nil {
		f.beforeTransition(b)
	}
	if !slices.Contains(c.From, b.Status) ||
		(c.CustomerID != "" && b.CustomerID != c.CustomerID) ||
		(c.TechnicianID != "" && b.TechnicianID != c.TechnicianID) {
		return false, nil
	}
	b.Status = c.To
	if c.PriceQuoted != nil {
		b.PriceQuoted = c.PriceQuoted
	}
	if c.ScheduledFor != nil {
		b.ScheduledFor = c.ScheduledFor
	}
	if c.CompletedAt != nil {
		b.CompletedAt = c.CompletedAt
	}
	if c.PaymentReference != nil {
		b.PaymentReference = *c.PaymentReference
	}
	b.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeBookings) RecordDeclinedPayment(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if b, ok := f.s.bookings[id]; ok && b.Status == entities.BookingStatusAccepted {
		b.PaymentAttempts++
	}
	return nil
}

func (f *fakeBookings) List(_ context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.listLimits = append(f.s.listLimits, filter.Limit)
	out := f.matching(filter)
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeBookings) CountMatching(_ context.Context, filter repositories.BookingFilter) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return len(f.matching(filter)), nil
}

// matching filters bookings; the caller holds the lock
func (f *fakeBookings) matching(filter repositories.BookingFilter) []*entities.Booking {
	var out []*entities.Booking
	for _, b := range f.s.bookings {
		if filter.CustomerID != "" && b.CustomerID != filter.CustomerID {
			continue
		}
		if filter.TechnicianID != "" && b.TechnicianID != filter.TechnicianID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, b.Status) {
			continue
		}
		if filter.PricedOnly && b.PriceQuoted == nil {
			continue
		}
		out = append(out, cp(b))
	}
	return out
}

func (f *fakeBookings) Count(context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return len(f.s.bookings), nil
}

func (f *fakeBookings) SumEarnings(_ context.Context, technicianID string) (float64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	total := 0.0
	for _, b := range f.s.bookings {
		if b.TechnicianID == technicianID && b.Status == entities.BookingStatusCompleted && b.PriceQuoted != nil {
			total += *b.PriceQuoted
		}
	}
	return total, nil
}

type fakeReviews struct{ s *store }

func (f fakeReviews) CreateAndAggregate(_ context.Context, r *entities.Review) (*entities.Technician, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.reviews[r.BookingID]; ok {
		return nil, apperrors.NewConflictError("Review already submitted")
	}
	f.s.reviews[r.BookingID] = cp(r)

	var ratings []int
	for _, existing := range f.s.reviews {
		if existing.TechnicianID == r.TechnicianID {
			ratings = append(ratings, existing.Rating)
		}
	}
	t := f.s.technicians[r.TechnicianID]
	t.AverageRating, t.ReviewCount = entities.ComputeAverage(ratings)
	return cp(t), nil
}

func (f fakeReviews) GetByBookingID(_ context.Context, bookingID string) (*entities.Review, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if r, ok := f.s.reviews[bookingID]; ok {
		return cp(r), nil
	}
	return nil, apperrors.NewNotFoundError("review not found")
}

func (f fakeReviews) GetByBookingIDs(_ context.Context, ids []string) (map[string]*entities.Review, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.batchCalls["reviews"]++
	if f.s.batchErr != nil {
		return nil, f.s.batchErr
	}
	out := map[string]*entities.Review{}
	for _, id := range ids {
		if r, ok := f.s.reviews[id]; ok {
			out[id] = cp(r)
		}
	}
	return out, nil
}

func (f fakeReviews) ListByTechnician(_ context.Context, technicianID string, limit int) ([]*entities.Review, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entities.Review
	for _, r := range f.s.reviews {
		if r.TechnicianID == technicianID {
			out = append(out, cp(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockPaymentGateway is a testify mock of the payment gateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Charge(ctx context.Context, req providers.ChargeRequest) (*providers.ChargeResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*providers.ChargeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentGateway) Name() string { return "mock" }

// recordingRevalidator remembers every revalidated path
type recordingRevalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingRevalidator) Revalidate(_ context.Context, paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
}

func (r *recordingRevalidator) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// recordingIndexer remembers indexed and removed technicians
type recordingIndexer struct {
	mu      sync.Mutex
	indexed []*entities.Technician
	removed []string
}

func (r *recordingIndexer) IndexTechnician(_ context.Context, t *entities.Technician) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, t)
}

func (r *recordingIndexer) RemoveTechnician(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Compare(hash, p string) bool   { return hash == "hashed:"+p }

type stubSessions struct{}

func (stubSessions) Issue(u *entities.User) (string, time.Time, error) {
	return "token-" + u.ID, time.Now().Add(time.Hour), nil
}

func (stubSessions) Parse(token string) (*entities.Principal, error) {
	return &entities.Principal{UserID: strings.TrimPrefix(token, "token-")}, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(w io.Writer, v entities.BookingView) error {
	_, err := io.WriteString(w, "receipt "+v.ID)
	return err
}

func (stubRenderer) ContentType() string { return "application/pdf" }

// fixture seeds a customer, a professional with a profile and an admin
type fixture struct {
	store        *store
	users        fakeUsers
	technicians  fakeTechnicians
	bookings     *fakeBookings
	reviews      fakeReviews
	customer     *entities.Principal
	professional *entities.Principal
	admin        *entities.Principal
	technician   *entities.Technician
}

func newFixture() *fixture {
	s := newStore()
	now := time.Now().UTC()
	f := &fixture{
		store:        s,
		users:        fakeUsers{s},
		technicians:  fakeTechnicians{s},
		bookings:     &fakeBookings{s: s},
		reviews:      fakeReviews{s},
		customer:     &entities.Principal{UserID: "u-cust", Role: entities.RoleCustomer, Name: "Alex"},
		professional: &entities.Principal{UserID: "u-pro", Role: entities.RoleProfessional, Name: "Maria"},
		admin:        &entities.Principal{UserID: "u-admin", Role: entities.RoleAdmin, Name: "Admin"},
	}
	s.users["u-cust"] = &entities.User{ID: "u-cust", Name: "Alex", Email: "alex@krafta.local", Role: entities.RoleCustomer, CreatedAt: now}
	s.users["u-pro"] = &entities.User{ID: "u-pro", Name: "Maria", Email: "maria@krafta.local", Role: entities.RoleProfessional, CreatedAt: now}
	s.users["u-admin"] = &entities.User{ID: "u-admin", Name: "Admin", Email: "admin@krafta.local", Role: entities.RoleAdmin, CreatedAt: now}
	f.technician = &entities.Technician{
		ID: "t-1", UserID: "u-pro", Title: "Electrician", City: "Lagos",
		Skills: "Wiring,Lighting", Categories: "Electrical", CreatedAt: now,
	}
	s.technicians["t-1"] = cp(f.technician)
	return f
}

func (f *fixture) seedBooking(id string, status entities.BookingStatus, price *float64) *entities.Booking {
	b := &entities.Booking{
		ID: id, CustomerID: "u-cust", TechnicianID: "t-1", Status: status,
		Description: "Fix sockets", Address: "12 Admiralty Way", PriceQuoted: price,
		RequestedAt: time.Now().UTC(),
	}
	f.store.bookings[id] = cp(b)
	return b
}

func price(v float64) *float64 { return &v }
