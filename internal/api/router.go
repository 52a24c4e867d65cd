package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teloven/marketplace/order-engine/internal/handlers"
	"github.com/teloven/marketplace/order-engine/internal/service"
	"github.com/teloven/marketplace/order-engine/internal/telemetry"
)

func NewRouter(engine *service.Engine, jwtSecret string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "order-engine"})
	})

	orderHandler := handlers.NewOrderHandler(engine)
	webhookHandler := handlers.NewWebhookHandler(engine)

	// Provider notifications carry no user token.
	r.POST("/v1/payments/webhook", webhookHandler.Handle)

	orders := r.Group("/v1/orders", RequireAuth(jwtSecret))
	orders.POST("", orderHandler.CreateOrder)
	orders.GET("/:id", orderHandler.GetOrder)
	orders.POST("/:id/checkout", orderHandler.InitiateCheckout)
	orders.POST("/:id/delivered", orderHandler.MarkDelivered)
	orders.POST("/:id/confirm", orderHandler.ConfirmByBuyer)
	orders.POST("/:id/payout", orderHandler.InitiatePayout)
	orders.POST("/:id/payout/complete", orderHandler.CompletePayout)
	orders.POST("/:id/dispute", orderHandler.OpenDispute)
	orders.POST("/:id/cancel", orderHandler.Cancel)

	return r
}
