package services

import (
	"context"

	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/observability"
	apperrors "github.com/krafta/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgFailedVerify     = "Failed to update verification status"
	msgFailedDeleteUser = "Failed to delete user"
	defaultUserPage     = 50
	maxUserPage         = 200
)

// AdminService holds back-office operations
type AdminService struct {
	users       repositories.UserRepository
	technicians repositories.TechnicianRepository
	indexer     DirectoryIndexer
	revalidator Revalidator
}

// NewAdminService creates a new admin service
func NewAdminService(
	users repositories.UserRepository,
	technicians repositories.TechnicianRepository,
	indexer DirectoryIndexer,
	revalidator Revalidator,
) *AdminService {
	return &AdminService{
		users:       users,
		technicians: technicians,
		indexer:     indexer,
		revalidator: revalidator,
	}
}

// VerifyTechnician sets or clears a technician's verified badge
func (s *AdminService) VerifyTechnician(ctx context.Context, actor *entities.Principal, technicianID string, verified bool) (*entities.Technician, error) {
	ctx, span := observability.StartSpan(ctx, "AdminService.VerifyTechnician")
	defer span.End()

	if err := requireRole(actor, entities.RoleAdmin); err != nil {
		return nil, err
	}
	observability.SetSpanAttributes(span,
		attribute.String("technician.id", technicianID),
		attribute.Bool("technician.verified", verified),
	)

	if err := s.technicians.SetVerified(ctx, technicianID, verified); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError(msgTechNotFound)
		}
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError(msgFailedVerify, err)
	}

	if s.revalidator != nil {
		s.revalidator.Revalidate(ctx, PathAdmin, PathTechnicians, PathCustomer, PathProfessional)
	}

	technician, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		// The flag is stored and a retry is harmless, but the index is not refreshed
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError(msgFailedVerify, err)
	}
	if s.indexer != nil {
		s.indexer.IndexTechnician(ctx, technician)
	}
	return technician, nil
}

// DeleteUser removes an account and everything it owns
func (s *AdminService) DeleteUser(ctx context.Context, actor *entities.Principal, userID string) error {
	ctx, span := observability.StartSpan(ctx, "AdminService.DeleteUser")
	defer span.End()

	if err := requireRole(actor, entities.RoleAdmin); err != nil {
		return err
	}
	if userID == actor.UserID {
		return apperrors.NewValidationError("Cannot delete your own account")
	}

	var technicianID string
	if t, err := s.technicians.GetByUserID(ctx, userID); err == nil {
		technicianID = t.ID
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		observability.RecordError(span, err)
		return apperrors.NewInternalError(msgFailedDeleteUser, err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("user_id", userID).
		Str("admin_id", actor.UserID).
		Msg("User deleted")

	if s.revalidator != nil {
		s.revalidator.Revalidate(ctx, PathAdmin, PathTechnicians, PathCustomer, PathProfessional)
	}
	if s.indexer != nil && technicianID != "" {
		s.indexer.RemoveTechnician(ctx, technicianID)
	}
	return nil
}

// ListUsers pages through accounts, optionally filtered by role
func (s *AdminService) ListUsers(ctx context.Context, actor *entities.Principal, role string, limit, offset int) ([]*entities.User, error) {
	if err := requireRole(actor, entities.RoleAdmin); err != nil {
		return nil, err
	}

	filter := repositories.UserFilter{Limit: limit, Offset: offset}
	if role != "" {
		parsed, err := entities.ParseRole(role)
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid role")
		}
		filter.Role = parsed
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultUserPage
	}
	if filter.Limit > maxUserPage {
		filter.Limit = maxUserPage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, internalOr(err, "Failed to load users")
	}
	return users, nil
}
