// Package middleware holds the Gin middleware stack of the recipes API:
// correlation ids, access logging, panic recovery, token authentication,
// rate limiting, security headers and Prometheus metrics.
//
// Expected order on the engine: RequestID, RedactingLogger, Recovery, then
// the rest. The logger and recovery handler read the id set by RequestID.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxQueryLogLength caps the raw query bytes copied into access logs.
	maxQueryLogLength = 2048
	// maxRequestIDLength bounds client supplied correlation ids; longer ones
	// are replaced.
	maxRequestIDLength = 128
)

// RequestID reuses the caller's X-Request-ID or mints a UUID, then echoes it
// on the response and stores it under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !acceptableRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

func acceptableRequestID(rid string) bool {
	return rid != "" && len(rid) <= maxRequestIDLength
}

// Recovery turns a handler panic into the API error envelope with code
// internal_error. When the handler already started the response only the
// status is recorded.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("route", c.FullPath()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// RequestIDFrom returns the correlation id stored by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return asString(c.Value(requestIDKey))
}

// LoggerFrom returns the request-scoped logger attached by RedactingLogger
// (and enriched by Authenticate). Without one it falls back to a copy of the
// global logger, so the result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if lg, ok := c.Value(loggerKey).(*zerolog.Logger); ok && lg != nil {
		return lg
	}
	l := log.Logger
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate cuts s to max bytes and marks the cut with an ellipsis.
// max <= 0 disables it.
func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max] + "…"
	}
	return s
}
