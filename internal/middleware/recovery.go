package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"authhub/api/internal/reporting"
)

func Recovery(log zerolog.Logger, reporter reporting.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := RequestIDFrom(c)
				log.Error().
					Interface("error", r).
					Str("request_id", requestID).
					Msg("panic recovered")
				reporter.RecoverPanic(r, map[string]string{
					"request_id": requestID,
					"path":       c.FullPath(),
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal_server_error",
				})
			}
		}()
		c.Next()
	}
}
