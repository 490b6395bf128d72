package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/observability"
	apperrors "github.com/krafta/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultDirectoryLimit = 24
	maxDirectoryLimit     = 100
	msgFailedProfile      = "Failed to create profile"
	msgFailedDirectory    = "Failed to load technicians"
)

// ProfileInput is a professional's technician profile submission
type ProfileInput struct {
	Title      string
	Bio        string
	Skills     string // comma separated
	Categories []string
	City       string
	Area       string
	Latitude   *float64
	Longitude  *float64
	BaseRate   *float64
	HourlyRate *float64
}

// TechnicianService manages technician profiles and the public directory
type TechnicianService struct {
	technicians repositories.TechnicianRepository
	users       repositories.UserRepository
	reviews     *ReviewService
	search      providers.TechnicianSearchProvider
	indexer     DirectoryIndexer
	revalidator Revalidator
	now         func() time.Time
}

// NewTechnicianService creates a new technician service. A nil search
// provider makes Search fall back to SQL filtering.
func NewTechnicianService(
	technicians repositories.TechnicianRepository,
	users repositories.UserRepository,
	reviews *ReviewService,
	search providers.TechnicianSearchProvider,
	indexer DirectoryIndexer,
	revalidator Revalidator,
) *TechnicianService {
	return &TechnicianService{
		technicians: technicians,
		users:       users,
		reviews:     reviews,
		search:      search,
		indexer:     indexer,
		revalidator: revalidator,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateProfile creates the caller's technician profile. Each professional
// has at most one.
func (s *TechnicianService) CreateProfile(ctx context.Context, actor *entities.Principal, input ProfileInput) (*entities.Technician, error) {
	ctx, span := observability.StartSpan(ctx, "TechnicianService.CreateProfile")
	defer span.End()

	if err := requireRole(actor, entities.RoleProfessional); err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	input.City = strings.TrimSpace(input.City)
	if input.Title == "" || input.City == "" {
		return nil, apperrors.NewValidationError("Title and city are required")
	}
	for _, rate := range []*float64{input.BaseRate, input.HourlyRate} {
		if rate != nil && *rate < 0 {
			return nil, apperrors.NewValidationError("Rates cannot be negative")
		}
	}

	if _, err := s.technicians.GetByUserID(ctx, actor.UserID); err == nil {
		return nil, apperrors.NewConflictError("Profile already exists")
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedProfile)
	}

	now := s.now()
	technician := &entities.Technician{
		ID:         uuid.New().String(),
		UserID:     actor.UserID,
		Title:      input.Title,
		Bio:        strings.TrimSpace(input.Bio),
		Skills:     entities.JoinList(strings.Split(input.Skills, ",")),
		Categories: entities.JoinList(input.Categories),
		City:       input.City,
		Area:       strings.TrimSpace(input.Area),
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		BaseRate:   input.BaseRate,
		HourlyRate: input.HourlyRate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.technicians.Create(ctx, technician); err != nil {
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedProfile, apperrors.ErrorTypeConflict)
	}

	observability.SetSpanAttributes(span, attribute.String("technician.id", technician.ID))
	if s.revalidator != nil {
		s.revalidator.Revalidate(ctx, PathProfessional, PathTechnicians, PathCustomer, PathAdmin)
	}
	if s.indexer != nil {
		s.indexer.IndexTechnician(ctx, technician)
	}
	return technician, nil
}

// Directory lists technicians newest first
func (s *TechnicianService) Directory(ctx context.Context, limit int) ([]entities.DirectoryEntry, error) {
	return s.list(ctx, repositories.TechnicianFilter{
		Order: repositories.OrderNewest,
		Limit: clampLimit(limit),
	})
}

// Browse lists technicians with verified ones first
func (s *TechnicianService) Browse(ctx context.Context, limit int) ([]entities.DirectoryEntry, error) {
	return s.list(ctx, repositories.TechnicianFilter{
		Order: repositories.OrderVerifiedFirst,
		Limit: clampLimit(limit),
	})
}

// Search finds technicians by free text and city. The search index is
// preferred; when it is missing or failing the database is queried directly.
func (s *TechnicianService) Search(ctx context.Context, query, city string, limit int) ([]entities.DirectoryEntry, error) {
	ctx, span := observability.StartSpan(ctx, "TechnicianService.Search")
	defer span.End()

	query = strings.TrimSpace(query)
	city = strings.TrimSpace(city)
	limit = clampLimit(limit)
	observability.SetSpanAttributes(span,
		attribute.String("search.query", query),
		attribute.String("search.city", city),
	)

	if s.search != nil {
		ids, err := s.search.Search(ctx, providers.TechnicianSearchParams{Query: query, City: city, Limit: limit})
		if err == nil {
			return s.entriesFor(ctx, ids)
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Search index unavailable, falling back to database")
	}

	return s.list(ctx, repositories.TechnicianFilter{
		Query: query,
		City:  city,
		Order: repositories.OrderVerifiedFirst,
		Limit: limit,
	})
}

// GetTechnician returns a technician with their most recent reviews
func (s *TechnicianService) GetTechnician(ctx context.Context, id string) (*entities.TechnicianDetail, error) {
	technician, err := s.technicians.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError(msgTechNotFound)
		}
		return nil, internalOr(err, "Failed to load technician")
	}

	name := ""
	if owner, err := s.users.GetByID(ctx, technician.UserID); err == nil {
		name = owner.Name
	}

	recent, err := s.reviews.ListTechnicianReviews(ctx, technician.ID, defaultRecentReviews)
	if err != nil {
		return nil, err
	}

	return &entities.TechnicianDetail{
		DirectoryEntry: entities.NewDirectoryEntry(technician, name),
		Bio:            technician.Bio,
		Latitude:       technician.Latitude,
		Longitude:      technician.Longitude,
		RecentReviews:  recent,
	}, nil
}

func (s *TechnicianService) list(ctx context.Context, filter repositories.TechnicianFilter) ([]entities.DirectoryEntry, error) {
	technicians, err := s.technicians.List(ctx, filter)
	if err != nil {
		return nil, internalOr(err, msgFailedDirectory)
	}
	return s.flatten(ctx, technicians)
}

// entriesFor loads technicians by ID and keeps the ranking order of ids
func (s *TechnicianService) entriesFor(ctx context.Context, ids []string) ([]entities.DirectoryEntry, error) {
	if len(ids) == 0 {
		return []entities.DirectoryEntry{}, nil
	}
	byID, err := s.technicians.GetByIDs(ctx, ids)
	if err != nil {
		return nil, internalOr(err, msgFailedDirectory)
	}

	ordered := make([]*entities.Technician, 0, len(ids))
	for _, id := range ids {
		// The index can briefly hold deleted technicians
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return s.flatten(ctx, ordered)
}

func (s *TechnicianService) flatten(ctx context.Context, technicians []*entities.Technician) ([]entities.DirectoryEntry, error) {
	entries := make([]entities.DirectoryEntry, 0, len(technicians))
	if len(technicians) == 0 {
		return entries, nil
	}

	userIDs := make([]string, 0, len(technicians))
	for _, t := range technicians {
		userIDs = append(userIDs, t.UserID)
	}
	owners, err := s.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, internalOr(err, msgFailedDirectory)
	}

	for _, t := range technicians {
		name := ""
		if u, ok := owners[t.UserID]; ok {
			name = u.Name
		}
		entries = append(entries, entities.NewDirectoryEntry(t, name))
	}
	return entries, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultDirectoryLimit
	case limit > maxDirectoryLimit:
		return maxDirectoryLimit
	default:
		return limit
	}
}
