package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "growermarket/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace puts an appctx.TraceContext on the request. Incoming X-Request-ID and
// X-Trace-ID headers are kept so a storefront call can be followed into the
// logs; missing ones are generated. Both ids are echoed on the response.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := appctx.NewTraceContext()
		if v := c.GetHeader(HeaderRequestID); v != "" {
			trace.RequestID = v
		}
		if v := c.GetHeader(HeaderTraceID); v != "" {
			trace.TraceID = v
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), trace))
		// Recovery and ErrorHandler read the request id from the gin context.
		c.Set("request_id", trace.RequestID)

		c.Header(HeaderRequestID, trace.RequestID)
		c.Header(HeaderTraceID, trace.TraceID)

		c.Next()
	}
}
