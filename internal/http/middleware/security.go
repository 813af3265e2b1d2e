package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional headers of SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days when zero or negative.
	HSTSMaxAge time.Duration
	// NoStore marks every response Cache-Control: no-store.
	NoStore bool
	// PrivateNoStore marks responses to authenticated callers no-store. Recipe
	// and user payloads carry per-viewer flags and must not be shared by caches.
	PrivateNoStore bool
	// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

type headerPair struct{ name, value string }

// SecurityHeaders hardens API responses. The baseline set is always written:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// X-Request-ID is appended to Access-Control-Expose-Headers when RequestID
// ran earlier, so browser clients can quote it in bug reports.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := []headerPair{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		static = append(static,
			headerPair{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			headerPair{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}

	age := opt.HSTSMaxAge
	if age <= 0 {
		age = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(age/time.Second), 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, p := range static {
			h.Set(p.name, p.value)
		}
		if opt.NoStore || (opt.PrivateNoStore && c.GetHeader("Authorization") != "") {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && IsHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

// exposeHeader adds name to Access-Control-Expose-Headers unless it is
// already listed.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	for _, tok := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(tok), name) {
			return
		}
	}
	if cur == "" {
		h.Set(key, name)
		return
	}
	h.Set(key, cur+", "+name)
}

// IsHTTPS reports whether r arrived over TLS, directly or through a proxy
// that set X-Forwarded-Proto: https.
func IsHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// BaseURL is the scheme and host the client used, honoring
// X-Forwarded-Host. Image URLs and short links are built on it when no
// public base URL is configured.
func BaseURL(r *http.Request) string {
	scheme := "http"
	if IsHTTPS(r) {
		scheme = "https"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host
}
