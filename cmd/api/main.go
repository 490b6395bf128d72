package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/krafta/backend/internal/adapters/cache"
	"github.com/krafta/backend/internal/adapters/database"
	"github.com/krafta/backend/internal/adapters/payments"
	"github.com/krafta/backend/internal/adapters/receipts"
	"github.com/krafta/backend/internal/adapters/search"
	"github.com/krafta/backend/internal/api/handlers"
	"github.com/krafta/backend/internal/api/middleware"
	"github.com/krafta/backend/internal/api/routes"
	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/domain/providers"
	"github.com/krafta/backend/internal/infrastructure/clients/postgres"
	"github.com/krafta/backend/internal/infrastructure/clients/redis"
	"github.com/krafta/backend/internal/infrastructure/clients/typesense"
	"github.com/krafta/backend/internal/infrastructure/observability"
	"github.com/krafta/backend/internal/infrastructure/session"
	"github.com/krafta/backend/internal/query/loaders"
	"github.com/krafta/backend/pkg/config"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Environment, cfg.Server.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}
	log.Info().Msg("PostgreSQL client initialized")

	// Redis is optional; without it responses are not cached
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without response cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		log.Info().Msg("Redis client initialized")
	}

	// Typesense is optional; without it search falls back to SQL
	var searchProvider providers.TechnicianSearchProvider
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, search falls back to SQL")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema, search falls back to SQL")
		} else {
			searchProvider = search.NewTypesenseAdapter(tsClient)
			log.Info().Msg("Typesense client initialized")
		}
	}

	// Adapters
	userRepo := database.NewUserAdapter(pgClient)
	technicianRepo := database.NewTechnicianAdapter(pgClient)
	bookingRepo := database.NewBookingAdapter(pgClient)
	reviewRepo := database.NewReviewAdapter(pgClient)
	healthRepo := database.NewHealthAdapter(pgClient)

	gateway, err := payments.NewGateway(cfg.Payment.Provider, cfg.Payment.StripeKey, cfg.Payment.StripePaymentMethod, cfg.Payment.SimulatedDelay)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize payment gateway")
	}
	receiptRenderer := receipts.NewPDFRenderer(cfg.Server.PublicURL, cfg.Payment.Currency)

	sessions := session.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	hasher := session.NewBcryptHasher(cfg.Auth.BcryptCost)

	// Services
	revalidator := services.NewCacheInvalidationService(cacheProvider)
	indexer := services.NewDirectoryIndexService(searchProvider, userRepo)

	authService := services.NewAuthService(userRepo, hasher, sessions, revalidator)
	reviewService := services.NewReviewService(reviewRepo, bookingRepo, userRepo, indexer, revalidator)
	technicianService := services.NewTechnicianService(technicianRepo, userRepo, reviewService, searchProvider, indexer, revalidator)
	bookingService := services.NewBookingService(bookingRepo, technicianRepo, userRepo, gateway, receiptRenderer, revalidator, cfg.Payment.Currency)
	bookingService.SetMetrics(metrics)
	dashboardService := services.NewDashboardService(userRepo, technicianRepo, bookingRepo, reviewRepo)
	adminService := services.NewAdminService(userRepo, technicianRepo, indexer, revalidator)

	if admin, created, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, cfg.Auth.AdminName); err != nil {
		log.Error().Err(err).Str("email", cfg.Auth.AdminEmail).Msg("Failed to bootstrap admin account")
	} else if created {
		log.Info().Str("user_id", admin.ID).Msg("Bootstrap admin account created")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.Auth.SecureCookies)
	technicianHandler := handlers.NewTechnicianHandler(technicianService)
	bookingHandler := handlers.NewBookingHandler(bookingService, reviewService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	adminHandler := handlers.NewAdminHandler(adminService)
	cronHandler := handlers.NewCronHandler(healthRepo, cfg.Cron.Secret)
	if cfg.Cron.Secret == "" {
		log.Warn().Msg("CRON_SECRET is not set, keep-alive calls will be rejected")
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics, cfg.Redis.CacheTTL)
	}

	router := routes.NewRouter(
		authHandler,
		technicianHandler,
		bookingHandler,
		dashboardHandler,
		adminHandler,
		cronHandler,
		routes.Options{
			Sessions:        sessions,
			CacheMiddleware: cacheMiddleware,
			LoginLimiter:    middleware.NewRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst),
			Loaders:         loaders.Middleware(userRepo, technicianRepo, reviewRepo),
			Metrics:         metrics,
			CORSOrigins:     middleware.ParseOrigins(cfg.Server.CORSOrigins),
		},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("env", cfg.Server.Environment).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
