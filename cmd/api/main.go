package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryoner-gateway/config"
	"cryoner-gateway/internal/adapter/geoip"
	httpHandler "cryoner-gateway/internal/adapter/http/handler"
	"cryoner-gateway/internal/adapter/notify"
	"cryoner-gateway/internal/adapter/pricefeed"
	pgStorage "cryoner-gateway/internal/adapter/storage/postgres"
	redisStorage "cryoner-gateway/internal/adapter/storage/redis"
	"cryoner-gateway/internal/core/domain"
	"cryoner-gateway/internal/core/ports"
	"cryoner-gateway/internal/service"
	"cryoner-gateway/pkg/logger"
)

const sessionSweepInterval = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("confirm_policy", string(cfg.Payment.ConfirmPolicy)).
		Msg("Starting Cryoner Payment Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories and stores
	orderRepo := pgStorage.NewOrderRepo(pool)
	sessionStore := redisStorage.NewSessionStore(rdb, log)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	codec := service.NewOrderTokenCodec(cfg.Token.Secret, cfg.Token.AllowLegacy)
	defaultCurrency, ok := domain.ParseCurrency(cfg.Payment.DefaultCurrency)
	if !ok {
		log.Fatal().Str("currency", cfg.Payment.DefaultCurrency).Msg("Unsupported default currency")
	}
	intakeSvc := service.NewIntakeService(codec, defaultCurrency, log)

	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(cfg.Admin, hashSvc, tokenSvc, log)

	// Initialize outbound adapters
	priceFeed := pricefeed.NewBinanceFeed(cfg.PriceFeed, log)
	notifier := notify.NewDiscordNotifier(cfg.Notify, nil, log)
	geo := geoip.NewIPAPILocator(cfg.Geo, log)

	// Initialize the payment lifecycle machine. The probe and the address
	// provider run on different goroutines, so each gets its own source.
	probe := service.NewMockChainProbe(rand.NewSource(time.Now().UnixNano()), log)
	addrs := service.NewMockAddressProvider(rand.NewSource(time.Now().UnixNano() + 1))
	engine := service.NewPaymentEngine(orderRepo, probe, priceFeed, addrs, notifier, geo, cfg.Payment, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		IntakeSvc:      intakeSvc,
		Engine:         engine,
		OrderRepo:      orderRepo,
		SessionRepo:    sessionStore,
		AuthSvc:        authSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// Background session sweeper; Redis TTL already evicts entries, the
	// sweeper only mops up corrupt or clock-skewed leftovers.
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if _, err := sessionStore.SweepExpired(sweepCtx); err != nil {
					log.Warn().Err(err).Msg("session sweep failed")
				}
			}
		}
	}()

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopSweeper()
	engine.Shutdown()

	log.Info().Msg("Server exited")
}
