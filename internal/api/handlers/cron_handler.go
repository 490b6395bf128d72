package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/krafta/backend/internal/infrastructure/observability"
)

// Pinger checks that the database answers queries
type Pinger interface {
	Ping(ctx context.Context) error
}

// CronHandler serves endpoints called by an external scheduler
type CronHandler struct {
	db     Pinger
	secret string
}

// NewCronHandler creates a new cron handler. An empty secret rejects every call.
func NewCronHandler(db Pinger, secret string) *CronHandler {
	return &CronHandler{db: db, secret: secret}
}

func (h *CronHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// KeepAlive handles GET /api/cron/keep-alive
func (h *CronHandler) KeepAlive(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("Keep-alive ping failed")
		respondWithJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "Failed to ping DB"})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "message": "DB is awake"})
}
