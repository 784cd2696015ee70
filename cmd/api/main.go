package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/checkout_gateway/internal/cache"
	"github.com/GTDGit/checkout_gateway/internal/config"
	"github.com/GTDGit/checkout_gateway/internal/database"
	"github.com/GTDGit/checkout_gateway/internal/handler"
	"github.com/GTDGit/checkout_gateway/internal/metrics"
	"github.com/GTDGit/checkout_gateway/internal/middleware"
	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/repository"
	"github.com/GTDGit/checkout_gateway/internal/service"
	"github.com/GTDGit/checkout_gateway/internal/worker"
	"github.com/GTDGit/checkout_gateway/pkg/cko"
)

// main is the application entrypoint for the checkout gateway.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger and metrics
	setupLogger(cfg.Env)
	metrics.Init()
	log.Info().Str("env", cfg.Env).Str("storage", cfg.Gateway.StorageDriver).Msg("starting checkout gateway")

	// 3. Context for startup and graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handler.Pinger{}

	// 4. Initialize repositories
	var (
		trxRepo       repository.CardNotPresentTransactionRepository
		paymentRepo   repository.CardNotPresentPaymentRepository
		accountRanges service.AccountRangeProvider = service.NewStaticAccountRangeProvider(service.DefaultAccountRanges())
	)
	switch cfg.Gateway.StorageDriver {
	case config.StorageDriverPostgres:
		db, err := database.Connect(ctx, &cfg.DB)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		// 4a. Run migrations
		if err := database.RunMigrations(db.DB, "file://migrations"); err != nil {
			log.Error().Err(err).Msg("migration failed")
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
		log.Info().Msg("migrations completed successfully")

		trxRepo = repository.NewTransactionRepository(db)
		paymentRepo = repository.NewPaymentRepository(db)
		accountRanges = service.NewStoreAccountRangeProvider(repository.NewAccountRangeRepository(db), accountRanges)
		checks["database"] = db.PingContext
	default:
		log.Warn().Msg("using in-memory repositories, state is lost on restart")
		trxRepo = repository.NewMemoryTransactionRepository()
		paymentRepo = repository.NewMemoryPaymentRepository()
	}

	// 4b. Account range cache: Redis when enabled, in-process otherwise
	var rangeCache cache.AccountRangeCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected successfully")

		rangeCache = cache.NewRedisAccountRangeCache(redisClient, cfg.Cache.AccountRangeTTL)
		checks["redis"] = redisClient.Ping
	} else {
		rangeCache = cache.NewMemoryAccountRangeCache(cfg.Cache.AccountRangeTTL, 10*time.Minute)
	}
	accountRanges = service.NewCachedAccountRangeProvider(accountRanges, rangeCache)

	// 5. Initialize acquiring processors
	processors := service.DefaultAcquiringProcessors()
	if cfg.CKO.BaseURL != "" {
		processors[models.NetworkCKO] = service.NewCKOProviderClient(cko.NewClient(cfg.CKO.BaseURL, cfg.CKO.APIKey, cfg.CKO.Timeout))
		log.Info().Str("base_url", cfg.CKO.BaseURL).Msg("CKO remote acquirer registered")
	}

	routingTable, err := service.ParseRoutingTable(cfg.Gateway.RoutingTable)
	if err != nil {
		log.Error().Err(err).Msg("invalid routing table")
		fmt.Fprintf(os.Stderr, "invalid ROUTING_TABLE: %v\n", err)
		os.Exit(1)
	}
	router := service.NewFranchiseRouter(routingTable, processors)

	// 6. Initialize services
	processingSvc := service.NewCardProcessingService(accountRanges, router, trxRepo, service.CardProcessingConfig{
		MaxAttempts:       cfg.Gateway.MaxCaptureAttempts,
		CaptureTimeout:    cfg.Gateway.CaptureTimeout,
		RepositoryTimeout: cfg.Gateway.RepositoryTimeout,
	})
	fingerprinter, err := service.NewCardFingerprinter(cfg.Gateway.FingerprintKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid CARD_FINGERPRINT_KEY: %v\n", err)
		os.Exit(1)
	}
	cnpProvider := service.NewDefaultCardNotPresentProvider(cfg.Gateway.ClientID, processingSvc, trxRepo)
	paymentSvc := service.NewPaymentService(paymentRepo, cnpProvider, fingerprinter, cfg.Gateway.RepositoryTimeout).
		WithAbandonAfter(cfg.Worker.ReconcileAbandonAfter)

	// 7. Initialize handlers and middleware
	handlers := &Handlers{
		Health:  handler.NewHealthHandler(checks),
		Payment: handler.NewPaymentHandler(paymentSvc),
	}
	authLimiter := middleware.NewInvalidAuthRateLimiter(5, time.Minute)
	jwtMw := middleware.NewJWTMiddleware(cfg.JWTSecret, authLimiter)

	// 8. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.LoggingMiddleware())
	setupRoutes(engine, handlers, jwtMw)

	// 9. Start workers
	go authLimiter.Run(ctx, 5*time.Minute)
	go worker.NewReconcileWorker(
		paymentSvc,
		cfg.Worker.ReconcileInterval,
		cfg.Worker.ReconcileStaleAfter,
		cfg.Worker.ReconcileBatchSize,
	).Start(ctx)

	// 10. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 12. Cancel context to stop workers
	cancel()

	// 13. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

type Handlers struct {
	Health  *handler.HealthHandler
	Payment *handler.PaymentHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Merchant API (protected with merchant JWT)
	v1 := router.Group("/v1")
	v1.Use(jwtMiddleware.Handle())
	{
		v1.POST("/payments", handlers.Payment.CreatePayment)
		v1.GET("/payments/:paymentId", handlers.Payment.GetPayment)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
