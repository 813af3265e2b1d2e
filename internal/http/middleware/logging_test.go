package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogger swaps the global logger for a JSON writer into a buffer.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes every JSON line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("log line is not JSON: %v: %s", err, sc.Text())
		}
		out = append(out, m)
	}
	return out
}

func accessLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	for _, m := range logLines(t, buf) {
		if m["message"] == "http_request" {
			return m
		}
	}
	t.Fatalf("no access log line in %s", buf.String())
	return nil
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/api/recipes/", func(c *gin.Context) {
		seen = RequestIDFrom(c)
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{"missing", "", false},
		{"propagated", "rid-42", true},
		{"at limit", strings.Repeat("a", maxRequestIDLength), true},
		{"overlong", strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/recipes/", nil)
			if tc.header != "" {
				req.Header.Set("x-request-id", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got != seen {
				t.Fatalf("header %q and context %q disagree", got, seen)
			}
			if tc.keep {
				if got != tc.header {
					t.Fatalf("want %q propagated, got %q", tc.header, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("want a generated uuid, got %q", got)
			}
		})
	}
}

func TestRedactingLogger_LevelFollowsOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name      string
		method    string
		target    string
		handler   gin.HandlerFunc
		wantLevel string
		wantPath  string
	}{
		{
			name: "list ok", method: http.MethodGet, target: "/api/recipes/?page=2",
			handler:   func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"count": 0}) },
			wantLevel: "info", wantPath: "/api/recipes/",
		},
		{
			name: "foreign recipe", method: http.MethodDelete, target: "/api/recipes/7/",
			handler:   func(c *gin.Context) { c.Status(http.StatusNotFound) },
			wantLevel: "warn", wantPath: "/api/recipes/:id/",
		},
		{
			name: "recorded error", method: http.MethodPost, target: "/api/recipes/7/favorite/",
			handler: func(c *gin.Context) {
				_ = c.Error(errors.New("already in favorites"))
				c.Status(http.StatusBadRequest)
			},
			wantLevel: "error", wantPath: "/api/recipes/:id/favorite/",
		},
		{
			name: "server failure", method: http.MethodGet, target: "/api/recipes/download_shopping_cart/",
			handler:   func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) },
			wantLevel: "error", wantPath: "/api/recipes/download_shopping_cart/",
		},
		{
			name: "unmatched route", method: http.MethodGet, target: "/api/nope",
			wantLevel: "warn", wantPath: "/api/nope",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLogger(t)
			r := gin.New()
			r.Use(RequestID(), RedactingLogger(RedactOptions{}))
			if tc.handler != nil {
				r.Handle(tc.method, tc.wantPath, tc.handler)
			}

			req := httptest.NewRequest(tc.method, tc.target, nil)
			req.Header.Set(requestIDHeader, "rid-"+tc.name)
			r.ServeHTTP(httptest.NewRecorder(), req)

			line := accessLine(t, buf)
			if line["level"] != tc.wantLevel {
				t.Fatalf("level = %v, want %s", line["level"], tc.wantLevel)
			}
			if line["path"] != tc.wantPath {
				t.Fatalf("path = %v, want %s", line["path"], tc.wantPath)
			}
			if line["request_id"] != "rid-"+tc.name {
				t.Fatalf("request_id = %v", line["request_id"])
			}
			if line["method"] != tc.method {
				t.Fatalf("method = %v", line["method"])
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	r.POST("/api/recipes/", func(*gin.Context) { panic("nil ingredient line") })
	r.GET("/api/recipes/download_shopping_cart/", func(c *gin.Context) {
		c.String(http.StatusOK, "Shopping list:\n\n")
		panic("after write")
	})

	t.Run("envelope", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodPost, "/api/recipes/", nil)
		req.Header.Set(requestIDHeader, "rid-panic")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("body is not JSON: %v", err)
		}
		if body["code"] != "internal_error" || body["request_id"] != "rid-panic" {
			t.Fatalf("unexpected envelope %v", body)
		}

		var sawPanic bool
		for _, m := range logLines(t, buf) {
			if m["message"] == "panic recovered" {
				sawPanic = true
				if m["panic"] != "nil ingredient line" || m["route"] != "/api/recipes/" {
					t.Fatalf("panic line missing context: %v", m)
				}
				if m["request_id"] != "rid-panic" {
					t.Fatalf("panic line lost request id: %v", m)
				}
			}
		}
		if !sawPanic {
			t.Fatalf("no panic line in %s", buf.String())
		}
	})

	t.Run("after write", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recipes/download_shopping_cart/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("committed status should stand, got %d", w.Code)
		}
		if strings.Contains(w.Body.String(), "internal_error") {
			t.Fatalf("envelope appended to a started body: %q", w.Body.String())
		}
	})
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	LoggerFrom(c).Info().Msg("global")

	scoped := log.With().Str("scope", "recipes").Logger()
	c.Set(loggerKey, &scoped)
	if LoggerFrom(c) != &scoped {
		t.Fatalf("expected the attached logger back")
	}
	LoggerFrom(c).Info().Msg("scoped")

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %s", len(lines), buf.String())
	}
	if _, ok := lines[0]["scope"]; ok {
		t.Fatalf("fallback logger should not carry scope: %v", lines[0])
	}
	if lines[1]["scope"] != "recipes" {
		t.Fatalf("scoped logger lost its field: %v", lines[1])
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"page=1", 10, "page=1"},
		{"name=borscht", 4, "name…"},
		{"name=borscht", 0, "name=borscht"},
		{"", 3, ""},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
	if asString(7) != "" || asString("rid") != "rid" {
		t.Fatalf("asString mismatch")
	}
}
