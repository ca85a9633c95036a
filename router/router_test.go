package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/latrix/insider/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testCore() *config.CoreConfig {
	cfg := &config.CoreConfig{MaxRequestBodyBytes: 1024}
	cfg.Security.EnableSecurityHeaders = true
	cfg.Security.XContentTypeOptions = "nosniff"
	return cfg
}

func TestNew_JSONNotFoundAndMethodNotAllowed(t *testing.T) {
	r := New(testCore(), zap.NewNop())
	r.Post("/api/send-email", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/send-email", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNew_RecoversPanics(t *testing.T) {
	r := New(testCore(), zap.NewNop())
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "goroutine")
}
