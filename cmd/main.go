package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teloven/marketplace/order-engine/internal/api"
	"github.com/teloven/marketplace/order-engine/internal/config"
	"github.com/teloven/marketplace/order-engine/internal/events"
	"github.com/teloven/marketplace/order-engine/internal/gateway"
	"github.com/teloven/marketplace/order-engine/internal/listing"
	"github.com/teloven/marketplace/order-engine/internal/metrics"
	"github.com/teloven/marketplace/order-engine/internal/repository"
	"github.com/teloven/marketplace/order-engine/internal/service"
	"github.com/teloven/marketplace/order-engine/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry("order-engine"); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	metrics.Register()

	telemetry.Logger.Info("Starting Order Engine")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	paymentRepo := repository.NewPaymentRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	for _, init := range []func() error{
		orderRepo.InitDB, eventRepo.InitDB, paymentRepo.InitDB, auditRepo.InitDB,
	} {
		if err := init(); err != nil {
			telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	// Connect to NATS (listing service lives behind request/reply)
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer nc.Close()

	// Kafka publisher for order state changes
	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers)
	defer publisher.Close()

	// Payment gateway client
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAccessToken,
		cfg.CheckoutSuccessURL, cfg.CheckoutFailureURL, cfg.GatewayTimeout)

	// Audit recorder: bounded queue, drained off the request path
	audit := service.NewAuditRecorder(auditRepo, 1024)
	audit.Start()
	defer audit.Close()

	engine := service.NewEngine(service.EngineDeps{
		Orders:      orderRepo,
		Events:      eventRepo,
		Payments:    paymentRepo,
		Gateway:     gw,
		Listings:    listing.NewClient(nc),
		Publisher:   publisher,
		Audit:       audit,
		RedisClient: redisClient,
		Fees:        service.FeePolicy{RateBps: cfg.FeeRateBps},
		Provider:    cfg.GatewayProvider,
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(engine, cfg.JWTSecret),
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Order Engine starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
