package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ezhealth/appointment-api/internal/middleware"
	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/service/appointment"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
	"github.com/ezhealth/appointment-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	appointments := r.Group("/appointment", auth.Authenticate())
	{
		appointments.GET("/available-slots", h.AvailableSlots)
		appointments.POST("/book", auth.RequireRole(model.RolePatient), h.Book)
		appointments.GET("/mine", auth.RequireRole(model.RolePatient), h.ListMine)
		appointments.PUT("/:id/cancel", auth.RequireRole(model.RolePatient), h.Cancel)
		appointments.PUT("/:id/status", auth.RequireRole(model.RoleDoctor), h.UpdateStatus)
		appointments.PUT("/:id/visited", auth.RequireRole(model.RoleDoctor), h.MarkVisited)
		appointments.GET("/", auth.RequireRole(model.RoleDoctor), h.ListForDoctor)
		appointments.GET("/all", auth.RequireRole(model.RoleAdmin), h.ListAll)
	}
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	var q model.AvailableSlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(middleware.BindingMessage(err), err))
		return
	}
	doctorID, err := uuid.Parse(q.DoctorID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctorId", err))
		return
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), doctorID, q.Date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "", "availableSlots", slots)
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(middleware.BindingMessage(err), err))
		return
	}

	apt, err := h.service.Book(c.Request.Context(), principal(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, "Appointment booked successfully", "appointment", apt)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := httputil.ParamUUID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), principal(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Appointment cancelled", "appointment", apt)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := httputil.ParamUUID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(middleware.BindingMessage(err), err))
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), principal(c), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Appointment status updated", "appointment", apt)
}

func (h *Handler) MarkVisited(c *gin.Context) {
	id, err := httputil.ParamUUID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	apt, err := h.service.MarkVisited(c.Request.Context(), principal(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Appointment marked as visited", "appointment", apt)
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	apts, err := h.service.ListForDoctor(c.Request.Context(), principal(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "", "appointments", apts)
}

func (h *Handler) ListMine(c *gin.Context) {
	apts, err := h.service.ListForPatient(c.Request.Context(), principal(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "", "appointments", apts)
}

func (h *Handler) ListAll(c *gin.Context) {
	views, err := h.service.ListAll(c.Request.Context(), principal(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "", "appointments", views)
}

// principal is set by Authenticate on every route of this handler.
func principal(c *gin.Context) model.Principal {
	p, _ := middleware.GetPrincipal(c)
	return p
}
