// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, compression, authentication and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-recipes-backend/docs"
	"github.com/tbourn/go-recipes-backend/internal/cache"
	"github.com/tbourn/go-recipes-backend/internal/config"
	"github.com/tbourn/go-recipes-backend/internal/events"
	"github.com/tbourn/go-recipes-backend/internal/http/handlers"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/storage"
)

// Deps are the infrastructure handles the API is built from.
type Deps struct {
	DB     *gorm.DB
	Store  storage.Store
	Cache  cache.Cache
	Events events.Publisher
	Auth   *services.AuthService
}

var (
	corsMethods       = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsAllowHeaders  = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsExposeHeaders = []string{"X-Request-ID", "Content-Length", "Content-Disposition"}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), CORS and security
// headers, authentication and rate limiting, health and metrics endpoints,
// media files and Swagger UI, and then mounts the public API under
// cfg.APIBasePath plus the root-level short link route.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS, security headers and gzip (so 401/429 replies carry them)
//  8. Authenticate: optional token, rejected when invalid
//  9. Rate limiter (per user/IP, after Authenticate so users get own buckets)
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskParams: []string{"current_password", "new_password"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit; image data URIs dominate payloads
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 16 << 20
	}
	r.Use(limitBody(maxBody))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    corsExposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    corsExposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:     cfg.Security.EnableHSTS,
		HSTSMaxAge:     cfg.Security.HSTSMaxAge,
		PrivateNoStore: true,
		EnablePolicy:   true,
	}))

	// Compress JSON and text replies; scrapes and media are left alone
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/media/"})))

	// 8) Optional authentication on every route
	r.Use(middleware.Authenticate(deps.Auth))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Locally stored media is served by the API process itself
	if local, ok := deps.Store.(*storage.LocalStore); ok && strings.HasPrefix(local.URLPrefix(), "/") {
		r.Static(local.URLPrefix(), local.Root())
	}

	// Dependency injection: services ← repo/db/store/cache/events
	h := handlers.New(handlers.Services{
		Recipes:      services.NewRecipeService(deps.DB, deps.Store, deps.Events, cfg.Media.MaxImageBytes),
		Relations:    &services.RelationService{DB: deps.DB, Events: deps.Events},
		Users:        services.NewUserService(deps.DB, deps.Store, cfg.Auth.BcryptCost, cfg.Media.MaxImageBytes),
		Auth:         deps.Auth,
		Ingredients:  services.NewIngredientService(deps.DB, deps.Cache, cfg.Cache.TTL),
		ShoppingList: &services.ShoppingListService{DB: deps.DB},
		Media:        deps.Store,
	}, handlers.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		PageSize:      cfg.PageSize,
		MaxPageSize:   config.MaxPageSize,
	})
	authn := middleware.RequireAuth()

	// Short links live outside the API prefix
	r.GET("/r/:code/", h.ResolveShortLink)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api"
	{
		// Auth
		api.POST("/auth/token/login/", h.Login)
		api.POST("/auth/token/logout/", authn, h.Logout)

		// Users
		api.GET("/users/", h.ListUsers)
		api.POST("/users/", h.Register)
		api.GET("/users/me/", authn, h.Me)
		api.PUT("/users/me/avatar/", authn, h.SetAvatar)
		api.DELETE("/users/me/avatar/", authn, h.DeleteAvatar)
		api.POST("/users/set_password/", authn, h.SetPassword)
		api.GET("/users/subscriptions/", authn, h.Subscriptions)
		api.GET("/users/:id/", h.GetUser)
		api.POST("/users/:id/subscribe/", authn, h.Subscribe)
		api.DELETE("/users/:id/subscribe/", authn, h.Unsubscribe)

		// Ingredients
		api.GET("/ingredients/", h.ListIngredients)
		api.GET("/ingredients/:id/", h.GetIngredient)

		// Recipes
		api.GET("/recipes/", h.ListRecipes)
		api.POST("/recipes/", authn, h.CreateRecipe)
		api.GET("/recipes/download_shopping_cart/", authn, h.DownloadShoppingCart)
		api.GET("/recipes/:id/", h.GetRecipe)
		api.PATCH("/recipes/:id/", authn, h.UpdateRecipe)
		api.DELETE("/recipes/:id/", authn, h.DeleteRecipe)
		api.GET("/recipes/:id/get-link/", h.GetLink)
		api.POST("/recipes/:id/favorite/", authn, h.AddFavorite)
		api.DELETE("/recipes/:id/favorite/", authn, h.RemoveFavorite)
		api.POST("/recipes/:id/shopping_cart/", authn, h.AddToShoppingCart)
		api.DELETE("/recipes/:id/shopping_cart/", authn, h.RemoveFromShoppingCart)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
