// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"growermarket/internal/core/apperror"
	"growermarket/pkg/logger"
)

// Recovery middleware recovers from panics and returns 500 error.
// Logs stack trace but never exposes internal details to client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Log full stack trace
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)

				appErr := apperror.NewInternal(fmt.Errorf("panic: %v", err)).
					WithDetail("request_id", c.GetString("request_id"))
				_ = c.Error(appErr)

				// ErrorHandler was unwound by the panic and will not render
				// this, nor release an idempotency key held by the request.
				body := gin.H{
					"code":    appErr.Code,
					"message": appErr.Message,
					"details": appErr.Details,
				}
				failIdempotency(c, appErr.HTTPStatus, body)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(appErr.HTTPStatus, body)
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
