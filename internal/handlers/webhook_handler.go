package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teloven/marketplace/order-engine/internal/service"
	"github.com/teloven/marketplace/order-engine/internal/telemetry"
)

const maxWebhookBody = 64 * 1024

type WebhookHandler struct {
	engine *service.Engine
}

func NewWebhookHandler(engine *service.Engine) *WebhookHandler {
	return &WebhookHandler{engine: engine}
}

// Handle acknowledges every delivery with 200 regardless of internal
// outcome. The provider redelivers on any non-success response, so masking
// an internal no-op as a failure would cause unbounded redelivery storms.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		telemetry.Logger.Warn("webhook body read failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	h.engine.HandleWebhook(c.Request.Context(), body)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
