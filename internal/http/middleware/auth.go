package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

const (
	// userIDKey holds the authenticated user's ID (uint).
	userIDKey = "userID"
	// sessionKey holds the *services.Session of the authenticated request.
	sessionKey = "session"
)

// TokenVerifier resolves a raw access token to a session.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*services.Session, error)
}

// Authenticate resolves the optional "Authorization: Token <t>" (or
// "Bearer <t>") header. Requests without the header continue anonymously;
// a malformed, expired or revoked token is rejected with 401 even on public
// routes.
//
// On success the user ID is stored under "userID" and the session under
// "session", and the request-scoped logger gains a user_id field.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := strings.TrimSpace(c.GetHeader("Authorization"))
		if h == "" {
			c.Next()
			return
		}
		scheme, raw, ok := strings.Cut(h, " ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" || !(strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer")) {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		sess, err := v.Verify(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, services.ErrInvalidToken) {
				abortUnauthorized(c, "invalid token")
				return
			}
			LoggerFrom(c).Error().Err(err).Msg("token verification failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "internal_error",
				"message":    "internal server error",
			})
			return
		}

		c.Set(userIDKey, sess.UserID)
		c.Set(sessionKey, sess)
		l := LoggerFrom(c).With().Uint("user_id", sess.UserID).Logger()
		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401. It must run after
// Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == 0 {
			abortUnauthorized(c, "authentication credentials were not provided")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's ID, or 0 for anonymous requests.
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// SessionFrom returns the session attached by Authenticate.
func SessionFrom(c *gin.Context) (*services.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*services.Session)
	return s, ok && s != nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Token")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
