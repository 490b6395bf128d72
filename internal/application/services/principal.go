package services

import (
	"github.com/krafta/backend/internal/domain/entities"
	apperrors "github.com/krafta/backend/pkg/errors"
)

// requireRole re-checks the caller on every operation rather than trusting
// the route gate alone
func requireRole(actor *entities.Principal, role entities.Role) error {
	if actor == nil || actor.UserID == "" {
		return apperrors.NewUnauthorizedError("Unauthorized")
	}
	if actor.Role != role {
		return apperrors.NewForbiddenError("Forbidden")
	}
	return nil
}

// internalOr passes AppErrors of the given types through and wraps
// everything else as an internal failure with a generic message
func internalOr(err error, message string, keep ...apperrors.ErrorType) error {
	if appErr, ok := apperrors.As(err); ok {
		for _, t := range keep {
			if appErr.Type == t {
				return appErr
			}
		}
	}
	return apperrors.NewInternalError(message, err)
}
