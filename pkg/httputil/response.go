package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
)

// ContextRequestID is the gin context key holding the request id.
const ContextRequestID = "request_id"

// Response is the failure envelope shared by every endpoint
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RespondWithSuccess writes {success: true, message, <key>: data}. An empty key omits the payload.
func RespondWithSuccess(c *gin.Context, status int, message, key string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if key != "" {
		body[key] = data
	}
	c.JSON(status, body)
}

// RespondWithError sends an error response. Errors that are not AppErrors are
// reported as a generic 500 without leaking their text.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("request_id", c.GetString(ContextRequestID)).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Message: appErr.Message,
	})
}

// ParamUUID parses the named path parameter as a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid "+name, err)
	}
	return id, nil
}
