// Package handlers adapts the recipe, user, ingredient and relation
// services to HTTP.
//
// Every failure leaves through fail or failErr and is rendered as
// ErrorResponse:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "already_exists",
//	  "message": "recipe is already in favorites",
//	  "errors": {"non_field_errors": ["recipe is already in favorites"]}
//	}
//
// 5xx results are also logged with the request-scoped logger. Successful
// deletions answer 204 with no body.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// ErrorResponse is the error envelope of every endpoint. Code is one of the
// ErrCode constants; Errors is keyed by input field, or non_field_errors for
// relation failures.
type ErrorResponse struct {
	RequestID string              `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string              `json:"code" example:"validation_failed"`
	Message   string              `json:"message" example:"validation failed"`
	Errors    map[string][]string `json:"errors,omitempty"`
}

// fail aborts with the envelope; server errors are logged first.
func fail(c *gin.Context, status int, code, msg string) {
	failFields(c, status, code, msg, nil)
}

func failFields(c *gin.Context, status int, code, msg string, fields map[string][]string) {
	resp := ErrorResponse{
		RequestID: requestID(c),
		Code:      code,
		Message:   msg,
		Errors:    fields,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// requestID prefers the id stored by middleware.RequestID and falls back to
// the response header set by an upstream proxy layer.
func requestID(c *gin.Context) string {
	if rid := middleware.RequestIDFrom(c); rid != "" {
		return rid
	}
	return c.Writer.Header().Get("X-Request-ID")
}

// Fail is fail for the router's NoRoute and NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error to its HTTP result. Unknown errors become 500
// with a generic message; the cause is recorded on the context for the
// access log.
func failErr(c *gin.Context, err error) {
	var (
		verr *services.ValidationError
		rerr *services.RelationError
	)
	switch {
	case errors.As(err, &verr):
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed", verr.Fields)
	case errors.As(err, &rerr):
		code := ErrCodeBadRequest
		switch {
		case errors.Is(rerr, services.ErrAlreadyPresent):
			code = ErrCodeAlreadyExists
		case errors.Is(rerr, services.ErrNotPresent):
			code = ErrCodeNotPresent
		case errors.Is(rerr, services.ErrSelfRelation):
			code = ErrCodeSelfRelation
		}
		failFields(c, http.StatusBadRequest, code, rerr.Message, map[string][]string{
			"non_field_errors": {rerr.Message},
		})
	case errors.Is(err, services.ErrRecipeNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrIngredientNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid token")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// bindJSON decodes the request body into dst. A value of the wrong JSON type
// is reported under its top-level field; other malformed bodies abort with
// bad_request. An empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var terr *json.UnmarshalTypeError
	if errors.As(err, &terr) && terr.Field != "" {
		field, _, _ := strings.Cut(terr.Field, ".")
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "validation failed", map[string][]string{
			field: {typeMismatch(terr)},
		})
		return false
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
	return false
}

func typeMismatch(e *json.UnmarshalTypeError) string {
	want := "a " + e.Type.Kind().String()
	switch e.Type.Kind() {
	case reflect.Struct, reflect.Map:
		want = "an object"
	case reflect.Slice, reflect.Array:
		want = "a list"
	case reflect.Pointer:
		if e.Type.Elem().Kind() == reflect.Struct {
			want = "an object"
		} else {
			want = "a " + e.Type.Elem().Kind().String()
		}
	}
	return fmt.Sprintf("expected %s, got %s", want, e.Value)
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
