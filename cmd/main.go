package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orbita/internal/config"
	"orbita/internal/handlers"
	"orbita/internal/middleware"
	"orbita/internal/repository"
	"orbita/internal/service"
	"orbita/internal/worker"
	"orbita/pkg/database"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	// Загрузка .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("=== Satellite Telemetry Service Starting ===")

	// Загрузка конфигурации
	cfg := config.Load()

	// Подключение к PostgreSQL
	db, err := database.Connect(database.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// Миграция схемы и индексов
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Инициализация слоев
	telemetryRepo := repository.NewTelemetryRepository(db)
	telemetryService := service.NewTelemetryService(telemetryRepo, cfg.Export.OutputDir, cfg.Pagination.MaxSize)
	telemetryHandler := handlers.NewTelemetryHandler(telemetryService, cfg.Pagination.DefaultSize, cfg.Pagination.MaxSize)

	// Фоновые воркеры
	scheduler := worker.NewScheduler()

	if cfg.Workers.RetentionEnabled {
		scheduler.AddWorker(worker.NewRetentionWorker(
			telemetryService, cfg.Workers.RetentionInterval, cfg.Workers.RetentionMaxAge))
		log.Printf("Retention Worker enabled (interval: %v, max age: %v)",
			cfg.Workers.RetentionInterval, cfg.Workers.RetentionMaxAge)
	}

	go scheduler.Start()
	defer scheduler.Stop()

	// Инициализация Gin
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(middleware.RequestIDMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting (только для продакшена)
	if !cfg.App.Debug {
		ipLimiter := middleware.NewIPRateLimiter(
			rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		r.Use(middleware.IPRateLimitMiddleware(ipLimiter))
		log.Printf("Rate limiting enabled: %d req/sec per IP, burst: %d",
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	// Маршруты телеметрии
	telemetry := r.Group("/telemetry")
	telemetry.POST("", telemetryHandler.CreateTelemetry)
	telemetry.GET("", telemetryHandler.ListTelemetry)
	telemetry.GET("/export", telemetryHandler.ExportTelemetry)
	telemetry.GET("/:id", telemetryHandler.GetTelemetry)
	telemetry.DELETE("/:id", telemetryHandler.DeleteTelemetry)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services": gin.H{
				"database": "connected",
			},
			"workers": gin.H{
				"retention_enabled": cfg.Workers.RetentionEnabled,
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.App.Port)
		log.Printf("Telemetry API: http://localhost:%s/telemetry", cfg.App.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.App.Port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited properly")
}
