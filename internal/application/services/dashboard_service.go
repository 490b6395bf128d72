package services

import (
	"context"

	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/observability"
	"github.com/krafta/backend/internal/query/loaders"
	apperrors "github.com/krafta/backend/pkg/errors"
)

const (
	historyLimit            = 20
	adminRecentTechnicians  = 8
	adminRecentBookings     = 6
	adminRecentUsers        = 8
	adminRecentTransactions = 5
	msgFailedDashboard      = "Failed to load dashboard"
)

// DashboardService assembles the role dashboards
type DashboardService struct {
	users       repositories.UserRepository
	technicians repositories.TechnicianRepository
	bookings    repositories.BookingRepository
	reviews     repositories.ReviewRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	users repositories.UserRepository,
	technicians repositories.TechnicianRepository,
	bookings repositories.BookingRepository,
	reviews repositories.ReviewRepository,
) *DashboardService {
	return &DashboardService{
		users:       users,
		technicians: technicians,
		bookings:    bookings,
		reviews:     reviews,
	}
}

// loadersFor reuses request-scoped loaders when middleware attached them
func (s *DashboardService) loadersFor(ctx context.Context) *loaders.Loaders {
	if l := loaders.For(ctx); l != nil {
		return l
	}
	return loaders.NewLoaders(s.users, s.technicians, s.reviews)
}

// Customer returns the caller's requests, active jobs and history
func (s *DashboardService) Customer(ctx context.Context, actor *entities.Principal) (*entities.CustomerDashboard, error) {
	ctx, span := observability.StartSpan(ctx, "DashboardService.Customer")
	defer span.End()

	if err := requireRole(actor, entities.RoleCustomer); err != nil {
		return nil, err
	}

	requests, err := s.bookings.List(ctx, repositories.BookingFilter{
		CustomerID: actor.UserID,
		Statuses:   []entities.BookingStatus{entities.BookingStatusPending},
		Sort:       repositories.SortRequestedDesc,
	})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	active, err := s.bookings.List(ctx, repositories.BookingFilter{
		CustomerID: actor.UserID,
		Statuses:   []entities.BookingStatus{entities.BookingStatusAccepted, entities.BookingStatusPaid},
		Sort:       repositories.SortScheduledAsc,
	})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	history, err := s.bookings.List(ctx, repositories.BookingFilter{
		CustomerID: actor.UserID,
		Statuses: []entities.BookingStatus{
			entities.BookingStatusCompleted,
			entities.BookingStatusCancelled,
			entities.BookingStatusRejected,
		},
		Sort:  repositories.SortCompletedDesc,
		Limit: historyLimit,
	})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}

	l := s.loadersFor(ctx)
	all := concat(requests, active, history)
	techs, err := l.LoadTechnicians(ctx, technicianIDs(all))
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	owners, err := l.LoadUsers(ctx, technicianOwnerIDs(techs))
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	reviews, err := l.LoadReviews(ctx, bookingIDs(history))
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}

	withTechnician := func(bookings []*entities.Booking, withReview bool) []entities.BookingView {
		views := make([]entities.BookingView, 0, len(bookings))
		for _, b := range bookings {
			view := entities.BookingView{Booking: b}
			if t, ok := techs[b.TechnicianID]; ok && t != nil {
				view.TechnicianTitle = t.Title
				if u, ok := owners[t.UserID]; ok && u != nil {
					view.TechnicianName = u.Name
				}
			}
			if withReview {
				view.Review = reviews[b.ID]
			}
			views = append(views, view)
		}
		return views
	}

	return &entities.CustomerDashboard{
		Requests:   withTechnician(requests, false),
		ActiveJobs: withTechnician(active, false),
		History:    withTechnician(history, true),
	}, nil
}

// Professional returns the caller's leads, schedule and earnings. A caller
// without a technician profile gets ProfileRequired instead.
func (s *DashboardService) Professional(ctx context.Context, actor *entities.Principal) (*entities.ProfessionalDashboard, error) {
	ctx, span := observability.StartSpan(ctx, "DashboardService.Professional")
	defer span.End()

	if err := requireRole(actor, entities.RoleProfessional); err != nil {
		return nil, err
	}

	technician, err := s.technicians.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return &entities.ProfessionalDashboard{
				ProfileRequired: true,
				Leads:           []entities.BookingView{},
				Schedule:        []entities.BookingView{},
				Completed:       []entities.BookingView{},
			}, nil
		}
		return nil, internalOr(err, msgFailedDashboard)
	}

	leads, err := s.bookings.List(ctx, repositories.BookingFilter{
		TechnicianID: technician.ID,
		Statuses:     []entities.BookingStatus{entities.BookingStatusPending},
		Sort:         repositories.SortRequestedDesc,
	})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	schedule, err := s.bookings.List(ctx, repositories.BookingFilter{
		TechnicianID: technician.ID,
		Statuses:     []entities.BookingStatus{entities.BookingStatusAccepted, entities.BookingStatusPaid},
		Sort:         repositories.SortScheduledAsc,
	})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	completedFilter := repositories.BookingFilter{
		TechnicianID: technician.ID,
		Statuses:     []entities.BookingStatus{entities.BookingStatusCompleted},
		Sort:         repositories.SortCompletedDesc,
		Limit:        historyLimit,
	}
	completed, err := s.bookings.List(ctx, completedFilter)
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	completedCount, err := s.bookings.CountMatching(ctx, completedFilter)
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	earnings, err := s.bookings.SumEarnings(ctx, technician.ID)
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}

	l := s.loadersFor(ctx)
	all := concat(leads, schedule, completed)
	customers, err := l.LoadUsers(ctx, customerIDs(all))
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	reviews, err := l.LoadReviews(ctx, bookingIDs(completed))
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}

	withCustomer := func(bookings []*entities.Booking, withReview bool) []entities.BookingView {
		views := make([]entities.BookingView, 0, len(bookings))
		for _, b := range bookings {
			view := entities.BookingView{Booking: b, TechnicianTitle: technician.Title}
			if u, ok := customers[b.CustomerID]; ok && u != nil {
				view.CustomerName = u.Name
			}
			if withReview {
				view.Review = reviews[b.ID]
			}
			views = append(views, view)
		}
		return views
	}

	return &entities.ProfessionalDashboard{
		Technician:     technician,
		Skills:         technician.SkillList(),
		Categories:     technician.CategoryList(),
		Leads:          withCustomer(leads, false),
		Schedule:       withCustomer(schedule, false),
		Completed:      withCustomer(completed, true),
		CompletedCount: completedCount,
		TotalEarnings:  earnings,
	}, nil
}

// Admin returns platform counts and the most recent activity
func (s *DashboardService) Admin(ctx context.Context, actor *entities.Principal) (*entities.AdminDashboard, error) {
	ctx, span := observability.StartSpan(ctx, "DashboardService.Admin")
	defer span.End()

	if err := requireRole(actor, entities.RoleAdmin); err != nil {
		return nil, err
	}

	var stats entities.PlatformStats
	var err error
	if stats.Users, err = s.users.Count(ctx); err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	if stats.Technicians, err = s.technicians.Count(ctx); err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	if stats.Bookings, err = s.bookings.Count(ctx); err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}

	recentTechs, err := s.technicians.List(ctx, repositories.TechnicianFilter{
		Order: repositories.OrderNewest,
		Limit: adminRecentTechnicians,
	})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	recentBookings, err := s.bookings.List(ctx, repositories.BookingFilter{
		Sort:  repositories.SortRequestedDesc,
		Limit: adminRecentBookings,
	})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	recentUsers, err := s.users.List(ctx, repositories.UserFilter{Limit: adminRecentUsers})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	transactions, err := s.bookings.List(ctx, repositories.BookingFilter{
		Statuses:   []entities.BookingStatus{entities.BookingStatusPaid, entities.BookingStatusCompleted},
		PricedOnly: true,
		Sort:       repositories.SortUpdatedDesc,
		Limit:      adminRecentTransactions,
	})
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}

	l := s.loadersFor(ctx)
	bookingsAll := concat(recentBookings, transactions)
	techs, err := l.LoadTechnicians(ctx, technicianIDs(bookingsAll))
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}
	for _, t := range recentTechs {
		techs[t.ID] = t
	}
	userIDs := append(customerIDs(bookingsAll), technicianOwnerIDs(techs)...)
	names, err := l.LoadUsers(ctx, dedupe(userIDs))
	if err != nil {
		return nil, internalOr(err, msgFailedDashboard)
	}

	enrich := func(bookings []*entities.Booking) []entities.BookingView {
		views := make([]entities.BookingView, 0, len(bookings))
		for _, b := range bookings {
			view := entities.BookingView{Booking: b}
			if u, ok := names[b.CustomerID]; ok && u != nil {
				view.CustomerName = u.Name
			}
			if t, ok := techs[b.TechnicianID]; ok && t != nil {
				view.TechnicianTitle = t.Title
				if u, ok := names[t.UserID]; ok && u != nil {
					view.TechnicianName = u.Name
				}
			}
			views = append(views, view)
		}
		return views
	}

	directory := make([]entities.DirectoryEntry, 0, len(recentTechs))
	for _, t := range recentTechs {
		name := ""
		if u, ok := names[t.UserID]; ok && u != nil {
			name = u.Name
		}
		directory = append(directory, entities.NewDirectoryEntry(t, name))
	}

	return &entities.AdminDashboard{
		Stats:              stats,
		RecentTechnicians:  directory,
		RecentBookings:     enrich(recentBookings),
		RecentUsers:        recentUsers,
		RecentTransactions: enrich(transactions),
	}, nil
}

func concat(lists ...[]*entities.Booking) []*entities.Booking {
	var out []*entities.Booking
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func bookingIDs(bookings []*entities.Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}

func technicianIDs(bookings []*entities.Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.TechnicianID)
	}
	return dedupe(ids)
}

func customerIDs(bookings []*entities.Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.CustomerID)
	}
	return dedupe(ids)
}

func technicianOwnerIDs(techs map[string]*entities.Technician) []string {
	ids := make([]string, 0, len(techs))
	for _, t := range techs {
		if t != nil {
			ids = append(ids, t.UserID)
		}
	}
	return dedupe(ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
