package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"autocheckout/internal/handler/api"
)

func TestRoutesRequireToken(t *testing.T) {
	e := echo.New()
	h := api.NewCheckoutHandler(nil, nil, nil, nil, time.UTC, zap.NewNop())
	Setup(e, h, "secret", zap.NewNop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkout/run", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRoutesRegistered(t *testing.T) {
	e := echo.New()
	Setup(e, api.NewCheckoutHandler(nil, nil, nil, nil, time.UTC, zap.NewNop()), "secret", zap.NewNop())

	want := map[string]bool{
		"POST /api/checkout/run":       false,
		"POST /api/checkout/test":      false,
		"POST /api/checkout/force":     false,
		"GET /api/checkout/status":     false,
		"GET /api/checkout/settings":   false,
		"POST /api/checkout/settings":  false,
		"GET /api/checkout/executions": false,
		"GET /api/checkout/history":    false,
		"GET /health":                  false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.True(t, found, route)
	}
}
