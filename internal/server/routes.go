package server

import (
	"log/slog"
	"net/http"

	"spaceshop-server/internal/auth"
	authHandlers "spaceshop-server/internal/auth/handlers"
	"spaceshop-server/internal/certificate"
	"spaceshop-server/internal/middleware"
	"spaceshop-server/internal/planet"
	planetHandlers "spaceshop-server/internal/planet/handlers"
	"spaceshop-server/internal/purchase"
	purchaseHandlers "spaceshop-server/internal/purchase/handlers"
	serverHandlers "spaceshop-server/internal/server/handlers"
	"spaceshop-server/internal/shared/config"
	"spaceshop-server/internal/shared/database"
	"spaceshop-server/internal/shared/redis"
)

type Routes struct {
	db              *database.DB
	cache           *redis.Client
	planetService   *planet.Service
	purchaseService *purchase.Service
	certService     *certificate.Service
	authService     *auth.Service
	config          *config.Config
	logger          *slog.Logger
}

func NewRoutes(
	db *database.DB,
	cache *redis.Client,
	planetService *planet.Service,
	purchaseService *purchase.Service,
	certService *certificate.Service,
	authService *auth.Service,
	cfg *config.Config,
	logger *slog.Logger,
) *Routes {
	return &Routes{
		db:              db,
		cache:           cache,
		planetService:   planetService,
		purchaseService: purchaseService,
		certService:     certService,
		authService:     authService,
		config:          cfg,
		logger:          logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.cache)
	planetHandler := planetHandlers.NewPlanetHandler(r.planetService, r.config.Catalog.PurchaseOnly)
	purchaseHandler := purchaseHandlers.NewPurchaseHandler(r.purchaseService, r.certService)
	authHandler := authHandlers.NewAuthHandler(r.authService)

	authenticate := middleware.RequireAuth(r.authService)
	adminOnly := middleware.RequireAdmin(r.authService, r.config.Admin.Email)

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.HandleFunc("/api/planets", planetHandler.List)
	mux.HandleFunc("GET /api/planets/stats/overview", planetHandler.Stats)
	mux.HandleFunc("GET /api/planets/{id}", planetHandler.Get)
	mux.HandleFunc("/api/auth/signup", authHandler.SignUp)
	mux.HandleFunc("/api/auth/login", authHandler.Login)

	// Protected endpoints (authenticated users)
	mux.Handle("/api/auth/me", authenticate(http.HandlerFunc(authHandler.Me)))
	mux.Handle("/api/purchases", authenticate(http.HandlerFunc(purchaseHandler.Buy)))
	mux.Handle("/api/purchases/gift", authenticate(http.HandlerFunc(purchaseHandler.Gift)))
	mux.Handle("/api/purchases/checkout", authenticate(http.HandlerFunc(purchaseHandler.Checkout)))
	mux.Handle("/api/purchases/my", authenticate(http.HandlerFunc(purchaseHandler.ListMine)))
	mux.Handle("/api/purchases/certificate", authenticate(http.HandlerFunc(purchaseHandler.CertificateBatch)))
	mux.Handle("/api/purchases/certificate/{purchaseId}", authenticate(http.HandlerFunc(purchaseHandler.Certificate)))

	// Admin-only endpoints
	mux.Handle("POST /api/planets", adminOnly(http.HandlerFunc(planetHandler.Create)))
	mux.Handle("PUT /api/planets/{id}", adminOnly(http.HandlerFunc(planetHandler.Update)))
	mux.Handle("DELETE /api/planets/{id}", adminOnly(http.HandlerFunc(planetHandler.Delete)))
	mux.Handle("/api/admin/reset", adminOnly(http.HandlerFunc(purchaseHandler.Reset)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/planets", "/api/planets/stats/overview", "/api/auth/signup", "/api/auth/login"},
		"protected_endpoints", []string{"/api/auth/me", "/api/purchases", "/api/purchases/gift", "/api/purchases/checkout", "/api/purchases/my", "/api/purchases/certificate"},
		"admin_endpoints", []string{"/api/planets (write)", "/api/admin/reset"},
	)

	return mux
}
