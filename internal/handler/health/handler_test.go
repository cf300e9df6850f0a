package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group(""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := serve(NewHandler(Check{Name: "database", Ping: func(context.Context) error {
		return errors.New("down")
	}}), "/health/live")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks []Check
		status int
		want   map[string]interface{}
	}{
		{
			name:   "all up",
			checks: []Check{{Name: "database", Ping: up}, {Name: "redis", Ping: up}},
			status: http.StatusOK,
			want:   map[string]interface{}{"database": "UP", "redis": "UP"},
		},
		{
			name:   "one down",
			checks: []Check{{Name: "database", Ping: up}, {Name: "redis", Ping: down}},
			status: http.StatusServiceUnavailable,
			want:   map[string]interface{}{"database": "UP", "redis": "DOWN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(NewHandler(tt.checks...), "/health/ready")
			assert.Equal(t, tt.status, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["checks"])
		})
	}
}
