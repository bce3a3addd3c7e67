// Package server exposes the FileManager over an HTTP JSON API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/core"
	"github.com/ebogdum/datarepo/core/log"
	"github.com/ebogdum/datarepo/server/handlers"
	v1middleware "github.com/ebogdum/datarepo/server/middleware"
)

// NewRouter creates and configures the HTTP router
func NewRouter(fm *core.FileManager, cfg config.AppConfig, logger *zap.Logger) (chi.Router, error) {
	pathMode, err := log.ParseMode(cfg.Log.PathMode)
	if err != nil {
		return nil, err
	}

	handlerConfig := handlers.HandlerConfig{
		LocalRoot:        cfg.Server.LocalRoot,
		FileOpTimeout:    cfg.Server.FileOpTimeout,
		DefaultURLExpiry: cfg.MinIO.URLExpiry,
		Paths:            log.Sanitizer{Mode: pathMode},
	}

	r := chi.NewRouter()

	r.Use(v1middleware.V1RequestIDMiddleware())
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(v1middleware.V1SecurityHeaders())
	r.Use(v1middleware.V1RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.SendJSONResponse(w, map[string]string{
			"status":  "ok",
			"backend": fm.BackendType(),
		})
	})

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/directories", func(r chi.Router) {
			r.Get("/*", handlers.V1ListDirectory(fm, handlerConfig, logger))
			r.Post("/*", handlers.V1CreateDirectory(fm, handlerConfig, logger))
			r.Delete("/*", handlers.V1DeleteDirectory(fm, handlerConfig, logger))
		})

		r.Get("/names/*", handlers.V1ListNames(fm, handlerConfig, logger))

		r.Route("/objects", func(r chi.Router) {
			r.Get("/*", handlers.V1GetObject(fm, handlerConfig, logger))
			r.Delete("/*", handlers.V1DeleteObject(fm, handlerConfig, logger))
		})

		r.Get("/urls/*", handlers.V1GetObjectURL(fm, handlerConfig, logger))

		// Sync runs are expensive; both share one limiter
		syncLimiter := v1middleware.NewSyncLimiter(cfg.Server.SyncRateLimit)
		r.Group(func(r chi.Router) {
			r.Use(v1middleware.V1RateLimitMiddleware(syncLimiter, logger))
			r.Post("/sync", handlers.V1PushData(fm, handlerConfig, logger))
			r.Post("/single", handlers.V1CopySingleFile(fm, handlerConfig, logger))
		})
	})

	logger.Info("HTTP router configured successfully",
		zap.String("backend", fm.BackendType()),
		zap.Bool("metrics", cfg.Metrics.Enabled))

	return r, nil
}
