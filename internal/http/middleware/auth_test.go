package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

type stubVerifier struct {
	fn func(ctx context.Context, raw string) (*services.Session, error)
}

func (s stubVerifier) Verify(ctx context.Context, raw string) (*services.Session, error) {
	return s.fn(ctx, raw)
}

func tokenOnly(valid string, uid uint) stubVerifier {
	return stubVerifier{fn: func(_ context.Context, raw string) (*services.Session, error) {
		if raw != valid {
			return nil, services.ErrInvalidToken
		}
		return &services.Session{UserID: uid, TokenID: "jti-1"}, nil
	}}
}

func authRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Authenticate(v))
	r.GET("/public", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c)})
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		LoggerFrom(c).Info().Msg("private hit")
		c.JSON(http.StatusOK, gin.H{"user": sess.UserID, "jti": sess.TokenID})
	})
	return r
}

func doGet(r http.Handler, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_AnonymousAndSchemes(t *testing.T) {
	r := authRouter(tokenOnly("good", 42))

	w := doGet(r, "/public", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user":0`) {
		t.Fatalf("anonymous public: %d %s", w.Code, w.Body.String())
	}

	for _, h := range []string{"Token good", "Bearer good", "token good"} {
		w = doGet(r, "/private", h)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user":42`) {
			t.Fatalf("%q: %d %s", h, w.Code, w.Body.String())
		}
	}
}

func TestAuthenticate_InvalidTokenRejectedEvenOnPublicRoutes(t *testing.T) {
	r := authRouter(tokenOnly("good", 42))

	for _, h := range []string{"Token bad", "Basic Zm9vOmJhcg==", "Token", "good"} {
		w := doGet(r, "/public", h)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%q: status = %d; want 401", h, w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if body["code"] != "unauthorized" || body["request_id"] == "" {
			t.Fatalf("unexpected body: %v", body)
		}
	}
}

func TestRequireAuth_Anonymous401(t *testing.T) {
	r := authRouter(tokenOnly("good", 42))
	w := doGet(r, "/private", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") != "Token" {
		t.Fatalf("missing WWW-Authenticate header")
	}
}

func TestAuthenticate_VerifierFailureIs500(t *testing.T) {
	r := authRouter(stubVerifier{fn: func(context.Context, string) (*services.Session, error) {
		return nil, errors.New("db down")
	}})
	if w := doGet(r, "/public", "Token x"); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
}

func TestAuthenticate_LoggerCarriesUserID(t *testing.T) {
	buf := captureLogger(t)
	r := authRouter(tokenOnly("good", 7))

	if w := doGet(r, "/private", "Token good"); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var hit, access bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			continue
		}
		switch m["message"] {
		case "private hit":
			hit = m["user_id"] == float64(7) && m["request_id"] != nil
		case "http_request":
			access = m["user_id"] != nil
		}
	}
	if !hit || !access {
		t.Fatalf("expected user_id on handler and access logs, got:\n%s", buf.String())
	}
}
