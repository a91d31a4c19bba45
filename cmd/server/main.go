package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spaceshop-server/internal/auth"
	"spaceshop-server/internal/certificate"
	"spaceshop-server/internal/middleware"
	"spaceshop-server/internal/planet"
	"spaceshop-server/internal/purchase"
	"spaceshop-server/internal/server"
	"spaceshop-server/internal/shared/config"
	"spaceshop-server/internal/shared/database"
	"spaceshop-server/internal/shared/logger"
	"spaceshop-server/internal/shared/redis"
)

func main() {
	if err := config.Init(); err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	logger.Init()
	cfg := config.GlobalConfig

	slog.Info("Starting SpaceShop server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"purchase_only", cfg.Catalog.PurchaseOnly,
		"gifting_enabled", cfg.GiftConfigured(),
		"certificates_enabled", cfg.Certificates.Enabled,
	)

	db, err := database.Connect()
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	cache, err := redis.Connect()
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			slog.Error("Failed to close Redis connection", "error", err)
		}
	}()

	appLogger := slog.Default()

	authRepo := auth.NewRepository(db, appLogger)
	authService := auth.NewService(authRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration, cfg.Auth.ServiceKey, appLogger)

	planetRepo := planet.NewRepository(db, appLogger)
	catalogCache := planet.NewCache(cache, cfg.Catalog.CacheTTL, appLogger)
	planetService := planet.NewService(planetRepo, catalogCache, appLogger)

	purchaseRepo := purchase.NewRepository(db, appLogger)
	exchange := purchase.NewTxExchange(db, planetRepo, purchaseRepo, appLogger)
	purchaseService := purchase.NewService(planetRepo, purchaseRepo, exchange, authService, catalogCache, cfg.Admin.Email, appLogger)

	var renderer certificate.Renderer
	if cfg.Certificates.Enabled {
		renderer = certificate.NewPDFRenderer(cfg.Certificates.Issuer)
	}
	certService := certificate.NewService(renderer, appLogger)

	routes := server.NewRoutes(db, cache, planetService, purchaseService, certService, authService, cfg, appLogger)
	mux := routes.Setup()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		Enabled:           cfg.RateLimit.Enabled,
		TrustProxy:        cfg.Server.Environment == "production",
	})
	corsMiddleware := middleware.NewCORS()

	handler := corsMiddleware.Middleware(rateLimiter.Middleware(mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("SpaceShop server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
