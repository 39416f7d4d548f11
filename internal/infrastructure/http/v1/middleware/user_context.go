// Package middleware provides HTTP middleware for the procurement API.
package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "procura/internal/core/context"
)

// UserContext moves the user set by Auth into the request context, where the
// domain layer (audit stamping, received_by) and the logger read it.
//
// Usage in router:
//
//	protected.Use(middleware.Auth(cfg.JWTValidator))
//	protected.Use(middleware.UserContext())
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, ok := c.Get("user"); ok {
			if user, ok := v.(*appctx.UserContext); ok && user.UserID != "" {
				c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
			}
		}
		c.Next()
	}
}
