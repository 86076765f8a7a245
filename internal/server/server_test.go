package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"authhub/api/internal/config"
	"authhub/api/internal/handlers"
)

func TestServerMountsHealthAndBasePath(t *testing.T) {
	cfg := &config.AppConfig{
		Environment:      "test",
		HTTP:             config.HTTPConfig{Host: "127.0.0.1", Port: 0, BasePath: "/api/auth"},
		AllowCORSOrigins: []string{"https://app.test"},
	}
	handlerSet := handlers.NewHandlerSet(zerolog.Nop(), cfg, nil, nil, handlers.Services{})
	srv := NewHTTPServer(cfg, zerolog.Nop(), nil, handlerSet)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"disabled","environment":"test"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/user/me/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
