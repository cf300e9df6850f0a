package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ezhealth/appointment-api/internal/middleware"
	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/service/doctor"
	"github.com/ezhealth/appointment-api/pkg/httputil"
)

type Handler struct {
	service *doctor.Service
}

func NewHandler(service *doctor.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	doctors := r.Group("/doctor")
	{
		doctors.GET("/all", h.List)
		doctors.PUT("/admin/verify-doctor/:id", auth.Authenticate(), auth.RequireRole(model.RoleAdmin), h.Verify)
	}
}

// List is public: patients browse verified doctors before signing in.
func (h *Handler) List(c *gin.Context) {
	doctors, err := h.service.ListVerified(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "", "doctors", doctors)
}

func (h *Handler) Verify(c *gin.Context) {
	id, err := httputil.ParamUUID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p, _ := middleware.GetPrincipal(c)
	d, err := h.service.Verify(c.Request.Context(), p, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Doctor verified", "doctor", d)
}
