package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/opencaptable/captable/backend/src/config"
	"github.com/opencaptable/captable/backend/src/database"
	"github.com/opencaptable/captable/backend/src/handlers"
	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/processors"
	"github.com/opencaptable/captable/backend/src/security"
	"github.com/opencaptable/captable/backend/src/services"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin == config.Cfg.CORSAllowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Cap table backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	warrantMode, err := processors.ParseWarrantClassification(config.Cfg.WarrantClassification)
	if err != nil {
		logger.L.Error("Invalid WARRANT_CLASSIFICATION configuration", "value", config.Cfg.WarrantClassification, "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	logger.L.Info("Report cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)
	emailService := services.NewEmailService()

	capTableProcessor := processors.NewCapTableProcessor(processors.ReplayOptions{
		WarrantClassification: warrantMode,
	})
	dashboardProcessor := processors.NewDashboardProcessor()

	capTableService := services.NewCapTableService(
		capTableProcessor, dashboardProcessor,
		reportCache, config.Cfg.MaxIngestBatch,
	)

	authHandler := handlers.NewAuthHandler(authService, capTableService)
	entityHandler := handlers.NewEntityHandler(capTableService, authService)
	txHandler := handlers.NewTransactionHandler(capTableService)
	capTableHandler := handlers.NewCapTableHandler(capTableService, emailService)
	dashboardHandler := handlers.NewDashboardHandler(capTableService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	// Public routes
	apiRouter.HandleFunc("POST /api/auth/token", authHandler.HandleToken)
	apiRouter.HandleFunc("POST /api/issuers", entityHandler.HandleCreateIssuer)

	applyAuth := func(handler http.HandlerFunc) http.Handler {
		return handlers.AuthMiddleware(authService, handler)
	}

	apiRouter.Handle("POST /api/transactions", applyAuth(txHandler.HandleIngest))
	apiRouter.Handle("GET /api/transactions", applyAuth(txHandler.HandleListTransactions))
	apiRouter.Handle("GET /api/captable", applyAuth(capTableHandler.HandleGetCapTable))
	apiRouter.Handle("GET /api/captable/voting", applyAuth(capTableHandler.HandleGetVoting))
	apiRouter.Handle("GET /api/captable/holders/{stakeholderID}", applyAuth(capTableHandler.HandleGetHolder))
	apiRouter.Handle("POST /api/captable/email-report", applyAuth(capTableHandler.HandleEmailReport))
	apiRouter.Handle("GET /api/dashboard", applyAuth(dashboardHandler.HandleGetDashboard))
	apiRouter.Handle("POST /api/stakeholders", applyAuth(entityHandler.HandleCreateStakeholder))
	apiRouter.Handle("GET /api/stakeholders", applyAuth(entityHandler.HandleListStakeholders))
	apiRouter.Handle("POST /api/stock-classes", applyAuth(entityHandler.HandleCreateStockClass))
	apiRouter.Handle("GET /api/stock-classes", applyAuth(entityHandler.HandleListStockClasses))
	apiRouter.Handle("POST /api/stock-plans", applyAuth(entityHandler.HandleCreateStockPlan))
	apiRouter.Handle("GET /api/stock-plans", applyAuth(entityHandler.HandleListStockPlans))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Cap table backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
