// Package app assembles the echo server from configuration and stores.
package app

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/document-registry/internal/config"
	"github.com/iliyamo/document-registry/internal/handler"
	"github.com/iliyamo/document-registry/internal/metrics"
	"github.com/iliyamo/document-registry/internal/middleware"
	"github.com/iliyamo/document-registry/internal/repository"
	"github.com/iliyamo/document-registry/internal/router"
	"github.com/iliyamo/document-registry/internal/service"
	"github.com/iliyamo/document-registry/internal/storage"
	"github.com/iliyamo/document-registry/internal/utils"
)

// Deps are the long-lived resources the server runs on.  The caller owns
// and closes them.
type Deps struct {
	Users   service.UserStore
	Records repository.RecordStore
	Blobs   storage.BlobStore
	DB      handler.Pinger
	Redis   *redis.Client // optional
	Logger  *slog.Logger
	// Now overrides the clock for tokens and rate limiting; nil is time.Now.
	Now func() time.Time
}

// New builds the echo instance with every route registered.
func New(cfg config.Config, d Deps) *echo.Echo {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.AccessTTLMin)*time.Minute).WithClock(now)
	authSvc := service.NewAuthService(d.Users, tokens, cfg.BcryptCost)

	records := repository.NewCachedRecordRepo(d.Records, d.Redis, cfg.Cache)
	uploader := storage.NewUploader(d.Blobs)
	docSvc := service.NewDocumentService(records, uploader, service.DocumentOptions{
		StrictUpdate:   cfg.StrictUpdateValidation,
		CleanupOrphans: cfg.CleanupOrphanUploads,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	limit := middleware.NewTokenBucket(cfg.RateLimit, d.Redis, now)
	router.Register(e, router.Handlers{
		Auth:   handler.NewAuthHandler(authSvc),
		Docs:   handler.NewDocumentHandler(docSvc),
		Files:  handler.NewFileHandler(uploader),
		Health: handler.Health(d.DB),
	}, authSvc, limit, router.Options{
		DocsRequireAuth: cfg.DocsRequireAuth,
		UploadPrefix:    cfg.Storage.URLPrefix,
	})
	return e
}
