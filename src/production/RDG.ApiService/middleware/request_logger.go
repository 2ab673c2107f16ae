package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Logger"
)

// RequestLogger logs one line per request. Health probes are skipped to keep
// the log readable under frequent polling.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.URL.Path == "/health" {
			ctx.Next()
			return
		}

		start := time.Now()
		ctx.Next()

		log.Logger.Info().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}
