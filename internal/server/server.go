package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sudo-init-do/specialisthub/internal/config"
	"github.com/sudo-init-do/specialisthub/internal/db"
	"github.com/sudo-init-do/specialisthub/internal/metrics"
	mware "github.com/sudo-init-do/specialisthub/internal/middleware"
	"github.com/sudo-init-do/specialisthub/internal/specialist"
	"github.com/sudo-init-do/specialisthub/internal/upload"
)

const (
	version   = "1.0.0"
	bodyLimit = "110M"
)

// OpenStore connects the configured backend and makes sure its schema exists.
// The returned func releases the connection.
func OpenStore(ctx context.Context, cfg *config.Config) (specialist.Store, func(), error) {
	switch cfg.DB.Backend {
	case config.BackendGorm:
		gdb, err := db.NewGormDB(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := specialist.AutoMigrate(gdb); err != nil {
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		log.Printf("store: gorm (%s)", cfg.DB.Dialect)
		return specialist.NewGormStore(gdb), func() { sqlDB.Close() }, nil
	default:
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Printf("store: pgx")
		return specialist.NewPGStore(pool), pool.Close, nil
	}
}

// NewUploader returns the Cloudinary uploader when credentials are set and
// the local disk uploader otherwise.
func NewUploader(cfg *config.Config) (upload.Uploader, *upload.Local, error) {
	if cfg.Cloudinary.Enabled() {
		cld, err := upload.NewCloudinary(cfg.Cloudinary)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("uploads: cloudinary (%s)", cfg.Cloudinary.Folder)
		return cld, nil, nil
	}
	local, err := upload.NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("uploads: local disk (%s)", cfg.UploadDir)
	return local, local, nil
}

// New builds the echo instance with every route mounted.
func New(cfg *config.Config, svc *specialist.Service, uploader upload.Uploader, local *upload.Local, validator echo.Validator) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validator
	e.HTTPErrorHandler = mware.ErrorHandler(cfg.IsProduction())

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.Secure())
	e.Use(mware.CORS(cfg.CORSOrigins))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(mware.Metrics(metrics.RecordRequest))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":  "success",
			"message": "Anycomp Backend API",
			"version": version,
			"endpoints": echo.Map{
				"health":      "/api/health",
				"specialists": "/api/specialists",
				"upload":      "/api/upload/cloudinary-signature",
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if local != nil {
		e.Static("/uploads", local.Dir())
	}

	api := e.Group("/api")
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":    "success",
			"message":   "API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	api.GET("/ready", func(c echo.Context) error {
		if err := svc.Ready(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	specialist.RegisterRoutes(api, specialist.NewHandler(svc, uploader))
	upload.RegisterRoutes(api, cfg.Cloudinary)

	return e
}
