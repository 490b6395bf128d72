package handlers

import (
	"context"
	"net/http"

	"github.com/krafta/backend/internal/api/middleware"
	"github.com/krafta/backend/internal/domain/entities"
)

// AdminService defines the back-office operations used by the handler
type AdminService interface {
	VerifyTechnician(ctx context.Context, actor *entities.Principal, technicianID string, verified bool) (*entities.Technician, error)
	DeleteUser(ctx context.Context, actor *entities.Principal, userID string) error
	ListUsers(ctx context.Context, actor *entities.Principal, role string, limit, offset int) ([]*entities.User, error)
}

// AdminHandler handles admin endpoints
type AdminHandler struct {
	service AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

type verifyRequest struct {
	Verified *bool `json:"verified"`
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), middleware.PrincipalFromContext(r.Context()),
		r.URL.Query().Get("role"), queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load users")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// VerifyTechnician handles POST /api/admin/technicians/{id}/verify. A body
// without "verified" sets the badge.
func (h *AdminHandler) VerifyTechnician(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}

	technician, err := h.service.VerifyTechnician(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"), verified)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to update verification status")
		return
	}

	fields := map[string]interface{}{"verified": verified}
	if technician != nil {
		fields["technician"] = technician
	}
	respondWithSuccess(w, http.StatusOK, fields)
}

// DeleteUser handles DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err, "Failed to delete user")
		return
	}
	respondWithSuccess(w, http.StatusOK, nil)
}
