package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"procura/internal/core/apperror"
	"procura/internal/infrastructure/http/v1/dto"
	"procura/pkg/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		ctx := c.Request.Context()
		err := c.Errors.Last().Err

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(ctx, "unhandled error", "error", err)
			appErr = apperror.NewInternal(err)
		}
		if appErr.HTTPStatus == 0 {
			appErr.HTTPStatus = http.StatusInternalServerError
		}

		switch {
		case appErr.IsFatal():
			logger.Error(ctx, "invariant violated", "code", appErr.Code, "details", appErr.Details, "cause", appErr.Err)
		case appErr.HTTPStatus >= http.StatusInternalServerError:
			logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		case appErr.Err != nil:
			logger.Warn(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		}

		resp := dto.FromAppError(appErr)
		if appErr.HTTPStatus >= http.StatusInternalServerError && !appErr.IsFatal() {
			resp.Message = "Internal server error"
			resp.Details = map[string]any{"request_id": c.GetString("request_id")}
		}

		body, mErr := json.Marshal(resp)
		if mErr != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		failIdempotency(c, appErr, body)
		c.Data(appErr.HTTPStatus, contentTypeJSON, body)
	}
}
