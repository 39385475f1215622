package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"cable-planner/internal/common/config"
	"cable-planner/internal/common/logger"
	"cable-planner/internal/common/middleware"
	"cable-planner/internal/planner/handlers"
	"cable-planner/internal/planner/service"
	"cable-planner/internal/planner/storage"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"
)

// ============================================================
// Cable Planner Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// ============================================================
	// Storage
	// ============================================================

	db, err := storage.OpenSQLite(cfg.StoragePath)
	if err != nil {
		lg.Fatal("failed to open storage", zap.String("path", cfg.StoragePath), zap.Error(err))
	}
	defer db.Close()

	slot := storage.NewSlot(db, lg)
	if err := slot.Init(context.Background()); err != nil {
		lg.Fatal("failed to init storage", zap.Error(err))
	}

	ws := service.NewWorkspace(service.Options{
		Slot:          slot,
		Exports:       storage.NewExportDir(cfg.ExportDir),
		Autosave:      cfg.Autosave,
		MaxImageBytes: cfg.MaxImageBytes,
		Logger:        lg,
	})

	restored, err := ws.LoadSlot(context.Background())
	if err != nil {
		lg.Warn("could not restore saved project", zap.Error(err))
	}
	if restored {
		lg.Info("saved project restored",
			zap.Int("devices", len(ws.Devices())),
			zap.Int("cables", len(ws.Cables())))
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    int(cfg.MaxImageBytes) + 1024*1024,
		AppName:      "Cable Planner",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.Logger(lg))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe(db))
	app.Get("/health/startup", handlers.StartupProbe)

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Cable Planner API v1",
			"status":  "ok",
		})
	})

	handlers.NewPlannerHandler(ws, lg).Register(api)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	lg.Info("starting cable planner",
		zap.String("addr", addr),
		zap.String("env", cfg.Environment),
		zap.String("storage", cfg.StoragePath),
		zap.Bool("autosave", cfg.Autosave))

	if err := app.Listen(addr); err != nil {
		lg.Fatal("failed to start server", zap.Error(err))
	}
}
