package handlers

import (
	"context"
	"net/http"

	"github.com/krafta/backend/internal/api/middleware"
	"github.com/krafta/backend/internal/domain/entities"
)

// DashboardService defines the dashboard reads used by the handler
type DashboardService interface {
	Customer(ctx context.Context, actor *entities.Principal) (*entities.CustomerDashboard, error)
	Professional(ctx context.Context, actor *entities.Principal) (*entities.ProfessionalDashboard, error)
	Admin(ctx context.Context, actor *entities.Principal) (*entities.AdminDashboard, error)
}

// DashboardHandler serves the three role dashboards
type DashboardHandler struct {
	service DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Customer handles GET /api/customer/dashboard
func (h *DashboardHandler) Customer(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Customer(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, dash)
}

// Professional handles GET /api/professional/dashboard
func (h *DashboardHandler) Professional(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Professional(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, dash)
}

// Admin handles GET /api/admin/dashboard
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Admin(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, dash)
}
