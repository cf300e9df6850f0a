package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/pkg/auth"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
	"github.com/ezhealth/appointment-api/pkg/httputil"
)

const ContextPrincipal = "principal"

// tokenCookies are checked in order when no Authorization header is sent.
var tokenCookies = []string{"token", "patientToken", "doctorToken", "adminToken"}

var errMissingToken = errors.New("missing token")

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate validates the caller's token once and stores the Principal in
// the gin context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		principal, err := m.jwt.ValidateToken(token)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized(errMissingToken))
			return
		}
		for _, r := range roles {
			if principal.Is(r) {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, apperrors.Forbidden("you do not have access to this resource"))
	}
}

// GetPrincipal returns the authenticated caller.
func GetPrincipal(c *gin.Context) (model.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}

func bearerToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", errors.New("invalid authorization format")
		}
		return strings.TrimSpace(parts[1]), nil
	}

	for _, name := range tokenCookies {
		if v, err := c.Cookie(name); err == nil && v != "" {
			return v, nil
		}
	}
	return "", errMissingToken
}
