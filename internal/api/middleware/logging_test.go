package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/krafta/backend/internal/api/middleware"
	"github.com/stretchr/testify/assert"
)

func TestLoggingMiddleware_RequestID(t *testing.T) {
	h := middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/technicians", nil)
	req.Header.Set(middleware.RequestIDHeader, "edge-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "edge-123", w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/technicians", nil))
	assert.Len(t, w.Header().Get(middleware.RequestIDHeader), 36)
}
