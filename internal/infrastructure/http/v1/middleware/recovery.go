package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"procura/internal/core/apperror"
	"procura/internal/infrastructure/http/v1/dto"
	"procura/pkg/logger"
)

// Recovery middleware recovers from panics and returns 500 error.
// Logs stack trace but never exposes internal details to client.
// The panic unwinds past ErrorHandler, so the response is written here.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)

				appErr := apperror.NewInternal(fmt.Errorf("panic: %v", err))
				_ = c.Error(appErr)
				c.Abort()
				if c.Writer.Written() {
					return
				}

				resp := dto.FromAppError(appErr)
				resp.Details = map[string]any{"request_id": c.GetString("request_id")}
				body, _ := json.Marshal(resp)
				failIdempotency(c, appErr, body)
				c.Data(http.StatusInternalServerError, contentTypeJSON, body)
			}
		}()
		c.Next()
	}
}
