// Package server assembles the process: it opens the store and the optional
// infrastructure clients, mounts the HTTP API, and owns graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/auth"
	"github.com/tbourn/go-recipes-backend/internal/cache"
	"github.com/tbourn/go-recipes-backend/internal/config"
	"github.com/tbourn/go-recipes-backend/internal/events"
	httpapi "github.com/tbourn/go-recipes-backend/internal/http"
	"github.com/tbourn/go-recipes-backend/internal/observability"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/storage"
)

const (
	// shutdownTimeout bounds how long in-flight requests may take to drain.
	shutdownTimeout = 10 * time.Second
	// purgeInterval is how often expired token revocations are dropped.
	purgeInterval = time.Hour
)

// Server wraps the HTTP server and the resources it must release.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	db         *gorm.DB
	cache      cache.Cache
	events     events.Publisher
	auth       *services.AuthService

	shutdownOTel func(context.Context) error
}

// New constructs a Server from cfg. The schema is migrated before the server
// is returned. Redis and RabbitMQ are optional: when enabled but unreachable
// the server logs a warning and runs without them.
func New(ctx context.Context, cfg config.Config, version string) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}

	db, err := repo.Open(cfg.Database)
	if err != nil {
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("open db: %w", err)
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing disabled")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	store, err := storage.New(ctx, cfg.Media)
	if err != nil {
		closeDB(db)
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("media storage: %w", err)
	}

	c, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("cache unavailable; continuing without it")
		c = cache.Noop{}
	}
	pub, err := events.NewPublisher(cfg.Events)
	if err != nil {
		log.Warn().Err(err).Msg("event broker unavailable; continuing without it")
		pub = events.Noop{}
	}

	authSvc := services.NewAuthService(db, auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))

	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:     db,
		Store:  store,
		Cache:  c,
		Events: pub,
		Auth:   authSvc,
	}, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort("", port),
			Handler:           engine,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
		engine:       engine,
		db:           db,
		cache:        c,
		events:       pub,
		auth:         authSvc,
		shutdownOTel: shutdownOTel,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go s.purgeLoop(purgeCtx, purgeInterval)

	select {
	case err, ok := <-errCh:
		if ok {
			_ = s.Shutdown(context.Background())
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(sctx)
}

// Shutdown drains in-flight requests and releases every resource. It returns
// the first error encountered.
func (s *Server) Shutdown(ctx context.Context) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	keep(s.httpServer.Shutdown(ctx))
	keep(s.events.Close())
	keep(s.cache.Close())
	if sqlDB, err := s.db.DB(); err == nil {
		keep(sqlDB.Close())
	}
	keep(s.shutdownOTel(ctx))
	return first
}

func (s *Server) purgeLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.purgeOnce(ctx)
		}
	}
}

func (s *Server) purgeOnce(ctx context.Context) {
	n, err := s.auth.PurgeExpired(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("purge expired tokens")
		return
	}
	if n > 0 {
		log.Debug().Int64("purged", n).Msg("expired token revocations purged")
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
