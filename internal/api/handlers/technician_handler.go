package handlers

import (
	"context"
	"net/http"

	"github.com/krafta/backend/internal/api/middleware"
	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/domain/entities"
)

// TechnicianService defines the directory and profile operations used by the handler
type TechnicianService interface {
	CreateProfile(ctx context.Context, actor *entities.Principal, input services.ProfileInput) (*entities.Technician, error)
	Directory(ctx context.Context, limit int) ([]entities.DirectoryEntry, error)
	Browse(ctx context.Context, limit int) ([]entities.DirectoryEntry, error)
	Search(ctx context.Context, query, city string, limit int) ([]entities.DirectoryEntry, error)
	GetTechnician(ctx context.Context, id string) (*entities.TechnicianDetail, error)
}

// TechnicianHandler handles the public directory and professional profiles
type TechnicianHandler struct {
	service TechnicianService
}

// NewTechnicianHandler creates a new technician handler
func NewTechnicianHandler(service TechnicianService) *TechnicianHandler {
	return &TechnicianHandler{service: service}
}

type profileRequest struct {
	Title      string   `json:"title"`
	Bio        string   `json:"bio"`
	Skills     string   `json:"skills"`
	Categories []string `json:"categories"`
	City       string   `json:"city"`
	Area       string   `json:"area"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	BaseRate   *float64 `json:"baseRate"`
	HourlyRate *float64 `json:"hourlyRate"`
}

// Directory handles GET /api/technicians
func (h *TechnicianHandler) Directory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Directory(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load technicians")
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// Search handles GET /api/technicians/search
func (h *TechnicianHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.service.Search(r.Context(), q.Get("q"), q.Get("city"), queryInt(r, "limit", 0))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to search technicians")
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// GetTechnician handles GET /api/technicians/{id}
func (h *TechnicianHandler) GetTechnician(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetTechnician(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load technician")
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

// Browse handles GET /api/customer/technicians
func (h *TechnicianHandler) Browse(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Browse(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load technicians")
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// CreateProfile handles POST /api/professional/profile
func (h *TechnicianHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	technician, err := h.service.CreateProfile(r.Context(), middleware.PrincipalFromContext(r.Context()), services.ProfileInput{
		Title:      req.Title,
		Bio:        req.Bio,
		Skills:     req.Skills,
		Categories: req.Categories,
		City:       req.City,
		Area:       req.Area,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		BaseRate:   req.BaseRate,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		respondWithAppError(w, r, err, "Failed to create profile")
		return
	}
	respondWithSuccess(w, http.StatusCreated, map[string]interface{}{"technician": technician})
}
