package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/krafta/backend/internal/api/middleware"
	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/domain/entities"
)

// AuthService defines the account operations used by the handler
type AuthService interface {
	Signup(ctx context.Context, input services.SignupInput) (*entities.User, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Me(ctx context.Context, actor *entities.Principal) (*entities.User, error)
}

// AuthHandler handles signup, login and session endpoints
type AuthHandler struct {
	service       AuthService
	secureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{service: service, secureCookies: secureCookies}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Signup(r.Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Phone:    req.Phone,
	})
	if err != nil {
		respondWithAppError(w, r, err, "Failed to create account. Please try again.")
		return
	}

	respondWithSuccess(w, http.StatusCreated, map[string]interface{}{"user": user})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to sign in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondWithSuccess(w, http.StatusOK, map[string]interface{}{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user":      session.User,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this only
// clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithSuccess(w, http.StatusOK, nil)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load profile")
		return
	}
	respondWithSuccess(w, http.StatusOK, map[string]interface{}{"user": user})
}
