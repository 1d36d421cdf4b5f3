package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahelcom/ussd-gateway/internal/platform/cache"
	"github.com/sahelcom/ussd-gateway/internal/platform/config"
	"github.com/sahelcom/ussd-gateway/internal/platform/database"
	"github.com/sahelcom/ussd-gateway/internal/platform/logger"
	"github.com/sahelcom/ussd-gateway/internal/ussd_service/app"
	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
	authmw "github.com/sahelcom/ussd-gateway/internal/ussd_service/middleware"
	pgrepo "github.com/sahelcom/ussd-gateway/internal/ussd_service/repository/postgres"
	redisrepo "github.com/sahelcom/ussd-gateway/internal/ussd_service/repository/redis"
	httptransport "github.com/sahelcom/ussd-gateway/internal/ussd_service/transport/http"
)

const serviceName = "ussd_gateway_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("USSD gateway service starting...", "port", cfg.ServerPort)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	subscriberRepo := pgrepo.NewPgSubscriberRepository(dbPool, appLogger)
	var sessionRepo domain.SessionRepository = pgrepo.NewPgSessionRepository(dbPool, appLogger)
	logRepo := pgrepo.NewPgInteractionLogRepository(dbPool, appLogger)
	catalogRepo := pgrepo.NewPgCatalogRepository(dbPool, appLogger)

	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			appLogger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		ttl := time.Duration(cfg.SessionCacheTTLSecs) * time.Second
		sessionRepo = redisrepo.NewSessionCache(sessionRepo, redisClient, ttl, appLogger)
		appLogger.Info("Session cache enabled", "redis_addr", cfg.RedisAddr, "ttl", ttl)
	}

	sessionMgr := app.NewSessionManager(sessionRepo, subscriberRepo, appLogger)
	engine := app.NewMenuEngine()
	ussdService := app.NewUssdAppService(sessionMgr, logRepo, catalogRepo, engine, appLogger)

	validate := validator.New()
	ussdHandler := httptransport.NewUssdHandler(ussdService, appLogger, validate)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	ipAllowlist := authmw.IPAllowlistMiddleware(cfg.AllowedIPList(), appLogger)

	// Aggregator callback: shared secret plus source-IP check.
	r.Group(func(callback chi.Router) {
		callback.Use(ipAllowlist)
		callback.Use(authmw.APIKeyMiddleware(cfg.APIKey, appLogger))
		callback.Post("/ussd", ussdHandler.HandleCallback)
	})

	// Read-only admin endpoints: API key or admin bearer token.
	r.Route("/ussd", func(admin chi.Router) {
		admin.Use(ipAllowlist)
		admin.Use(authmw.AdminAuthMiddleware(cfg.APIKey, cfg.AdminJWTSecret, appLogger))
		ussdHandler.RegisterAdminRoutes(admin)
	})

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.ServerPort), Handler: r}
	appLogger.Info(fmt.Sprintf("USSD gateway listening on port %d", cfg.ServerPort))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan
	appLogger.Info("Shutdown signal received, shutting down HTTP server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	} else {
		appLogger.Info("HTTP server shut down gracefully.")
	}
	appLogger.Info("USSD gateway service shut down.")
}
