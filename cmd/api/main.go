package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tomerlevy/claimdesk/cmd/mainconfig"
	"github.com/tomerlevy/claimdesk/internal/api/router"
	"github.com/tomerlevy/claimdesk/internal/attachments"
	appconfig "github.com/tomerlevy/claimdesk/internal/config"
	"github.com/tomerlevy/claimdesk/internal/documents"
	"github.com/tomerlevy/claimdesk/internal/intake"
	"github.com/tomerlevy/claimdesk/internal/observability/metrics"
	"github.com/tomerlevy/claimdesk/internal/payments"
	"github.com/tomerlevy/claimdesk/internal/pricing"
	"github.com/tomerlevy/claimdesk/internal/session"
	"github.com/tomerlevy/claimdesk/internal/webchat"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting claimdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", "error", err)
	}
	cancelPing()

	// AWS clients
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	bedrockClient := bedrockruntime.NewFromConfig(awsCfg)
	s3Client := s3.NewFromConfig(awsCfg)

	// LLM clients: Bedrock primary, Gemini fallback when configured
	var llm intake.StreamingLLMClient = intake.NewBedrockLLMClient(bedrockClient)
	if cfg.GeminiAPIKey != "" {
		gemini, err := intake.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini fallback unavailable", "error", err)
		} else {
			defer gemini.Close()
			llm = intake.NewFallbackLLMClient(llm, gemini, logger)
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	intakeMetrics := metrics.NewIntakeMetrics(reg)
	paymentMetrics := metrics.NewPaymentMetrics(reg)

	// Sessions
	sessionRepo := session.NewRepository(pool)
	sessionCache := session.NewCache(redisClient, cfg.SessionCacheTTL)
	sessionStore := session.NewStore(sessionRepo, sessionCache, logger)

	// Conversation engine
	engine := intake.NewEngine(llm, sessionStore, intake.EngineConfig{
		Model:         cfg.BedrockModelID,
		MaxTokens:     int32(cfg.LLMMaxTokens),
		Temperature:   float32(cfg.LLMTemperature),
		StreamTimeout: cfg.StreamTimeout,
		Metrics:       intakeMetrics,
	}, logger)

	// Pricing
	resolver := pricing.NewResolver(cfg.ClaimsBasePrice, cfg.ParkingBasePrice)
	coupons := pricing.NewCouponRepository(pool, logger)

	// Documents
	renderer := documents.NewRendererClient(cfg.RendererBaseURL, cfg.RendererAPIKey, logger)
	docs := documents.NewService(sessionStore, renderer, logger)

	// Payments
	gateway := payments.NewGatewayClient(
		cfg.PaymentBaseURL,
		cfg.PaymentAPIKey,
		cfg.PaymentSuccessURL,
		cfg.PaymentCancelURL,
		logger,
	)
	processed := payments.NewProcessedStore(pool)
	paidFlag := payments.NewPaidFlagStore(redisClient, 0)
	orchestrator := payments.NewOrchestrator(payments.OrchestratorDeps{
		Sessions: sessionStore,
		Gateway:  gateway,
		Coupons:  coupons,
		Resolver: resolver,
		PaidFlag: paidFlag,
		Docs:     docs,
		Logger:   logger,
		Metrics:  paymentMetrics,
	})

	// Attachments
	uploadStore := attachments.NewStore(s3Client, cfg.UploadBucket, cfg.UploadPublicPrefix, logger)
	uploadManager := attachments.NewManager(uploadStore, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		SessionHandler:     session.NewHandler(sessionStore, logger),
		IntakeHandler:      intake.NewHandler(engine, logger),
		PricingHandler:     pricing.NewHandler(coupons, logger),
		PaymentsHandler:    payments.NewHandler(orchestrator, logger),
		PaymentWebhook:     payments.NewWebhookHandler(cfg.PaymentWebhookSecret, processed, orchestrator, logger),
		DocumentsHandler:   documents.NewHandler(docs, logger),
		UploadHandler:      attachments.NewHandler(uploadManager, cfg.UploadMaxBytes, logger),
		WebchatHandler:     webchat.NewHandler(engine, sessionStore, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server. The write timeout must outlast a full LLM stream.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.StreamTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
