package prescription

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ezhealth/appointment-api/internal/media"
	"github.com/ezhealth/appointment-api/internal/middleware"
	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/service/prescription"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
	"github.com/ezhealth/appointment-api/pkg/httputil"
)

const fileField = "prescription"

// multipart overhead allowed on top of the file itself
const formOverhead = 1 << 20

type Handler struct {
	service *prescription.Service
}

func NewHandler(service *prescription.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/doctor/upload-prescription",
		middleware.SizeLimit(media.MaxPrescriptionSize+formOverhead),
		auth.Authenticate(), auth.RequireRole(model.RoleDoctor),
		h.Upload)

	prescriptions := r.Group("/prescription", auth.Authenticate())
	{
		prescriptions.GET("/mine", auth.RequireRole(model.RolePatient), h.ListMine)
		prescriptions.GET("/appointment/:id", auth.RequireRole(model.RolePatient, model.RoleDoctor), h.ListForAppointment)
	}
}

func (h *Handler) Upload(c *gin.Context) {
	var req model.UploadPrescriptionRequest
	if err := c.ShouldBind(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(middleware.BindingMessage(err), err))
		return
	}

	fh, err := c.FormFile(fileField)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("prescription file is required", err))
		return
	}
	if fh.Size > media.MaxPrescriptionSize {
		httputil.RespondWithError(c, apperrors.Validation(media.ErrTooLarge.Error(), media.ErrTooLarge))
		return
	}
	file, err := fh.Open()
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	defer file.Close()

	p, _ := middleware.GetPrincipal(c)
	rx, err := h.service.Upload(c.Request.Context(), p, req, fh.Header.Get("Content-Type"), file)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, "Prescription uploaded", "prescription", rx)
}

func (h *Handler) ListMine(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)
	list, err := h.service.ListForPatient(c.Request.Context(), p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "", "prescriptions", list)
}

func (h *Handler) ListForAppointment(c *gin.Context) {
	id, err := httputil.ParamUUID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p, _ := middleware.GetPrincipal(c)
	list, err := h.service.ListForAppointment(c.Request.Context(), p, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "", "prescriptions", list)
}
