package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func get(s *Server, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestNewServerRegistersHandlerAndSystemRoutes(t *testing.T) {
	api := RoutesFunc(func(e *echo.Echo) {
		e.GET("/api/status", func(c echo.Context) error { return c.String(http.StatusOK, "up") })
	})
	s := NewServer(api)

	rec := get(s, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up", rec.Body.String())
	assert.Equal(t, http.StatusOK, get(s, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, get(s, "/metrics", "").Code)
}

func TestNewServerWithoutHandler(t *testing.T) {
	s := NewServer(nil)
	assert.Equal(t, http.StatusOK, get(s, "/healthz", "").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/api/status", "").Code)
}

func TestNewServerCORSOrigins(t *testing.T) {
	api := RoutesFunc(func(e *echo.Echo) {
		e.GET("/api/state", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	})

	rec := get(NewServer(api), "/api/state", "http://localhost:3000")
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin), "disabled without origins")

	rec = get(NewServer(api, WithCORS("http://localhost:3000")), "/api/state", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlExposeHeaders), HeaderAnalysisAge)
}
