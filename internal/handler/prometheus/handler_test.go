package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New("test")

	r := gin.New()
	r.Use(h.Middleware())
	r.GET("/appointment/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", h.Handler())

	for _, path := range []string{"/appointment/a1", "/appointment/b2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="GET",path="/appointment/:id",status="204"} 2`)
	assert.Contains(t, w.Body.String(), `test_http_errors_total{method="GET",path="unmatched",status="404"} 1`)
	assert.NotContains(t, w.Body.String(), `path="/appointment/a1"`)
}
