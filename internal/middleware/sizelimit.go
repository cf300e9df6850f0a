package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ezhealth/appointment-api/pkg/httputil"
)

// SizeLimit rejects bodies larger than max bytes. Declared lengths are
// refused up front; chunked bodies are cut off by http.MaxBytesReader.
func SizeLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
				Success: false,
				Message: "request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}
