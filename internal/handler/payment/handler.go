package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ezhealth/appointment-api/internal/middleware"
	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/service/payment"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
	"github.com/ezhealth/appointment-api/pkg/httputil"
)

type Handler struct {
	service *payment.Service
	// keyID is the public checkout key the front end opens the gateway widget with.
	keyID string
}

func NewHandler(service *payment.Service, keyID string) *Handler {
	return &Handler{service: service, keyID: keyID}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	payments := r.Group("/payment", auth.Authenticate(), auth.RequireRole(model.RolePatient))
	{
		payments.POST("/create-order", h.CreateOrder)
		payments.POST("/verify", h.Verify)
		payments.POST("/failure", h.ReportFailure)
	}
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(middleware.BindingMessage(err), err))
		return
	}

	p, _ := middleware.GetPrincipal(c)
	order, apt, err := h.service.CreateOrder(c.Request.Context(), p, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"order":       order,
		"appointment": apt,
		"keyId":       h.keyID,
	})
}

func (h *Handler) Verify(c *gin.Context) {
	var req model.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(middleware.BindingMessage(err), err))
		return
	}

	orderRef, paymentRef, signature := req.Refs()
	apt, err := h.service.VerifyPayment(c.Request.Context(), orderRef, paymentRef, signature)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Payment verified successfully", "appointment", apt)
}

func (h *Handler) ReportFailure(c *gin.Context) {
	var req model.PaymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(middleware.BindingMessage(err), err))
		return
	}

	p, _ := middleware.GetPrincipal(c)
	apt, err := h.service.ReportFailure(c.Request.Context(), p, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Payment failure recorded", "appointment", apt)
}
