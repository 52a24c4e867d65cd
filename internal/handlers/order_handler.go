package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teloven/marketplace/order-engine/internal/models"
	"github.com/teloven/marketplace/order-engine/internal/service"
	"github.com/teloven/marketplace/order-engine/internal/telemetry"
)

type OrderHandler struct {
	engine *service.Engine
}

func NewOrderHandler(engine *service.Engine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

type createOrderReq struct {
	ListingID string `json:"listing_id" binding:"required"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_id is required"})
		return
	}

	order, err := h.engine.CreateOrder(c.Request.Context(), req.ListingID, actorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.engine.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) InitiateCheckout(c *gin.Context) {
	session, err := h.engine.InitiateCheckout(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	h.runTransition(c, h.engine.MarkDelivered)
}

func (h *OrderHandler) ConfirmByBuyer(c *gin.Context) {
	h.runTransition(c, h.engine.ConfirmByBuyer)
}

func (h *OrderHandler) InitiatePayout(c *gin.Context) {
	h.runTransition(c, h.engine.InitiatePayout)
}

func (h *OrderHandler) CompletePayout(c *gin.Context) {
	h.runTransition(c, h.engine.CompletePayout)
}

func (h *OrderHandler) OpenDispute(c *gin.Context) {
	h.runTransition(c, h.engine.OpenDispute)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	h.runTransition(c, h.engine.Cancel)
}

func (h *OrderHandler) runTransition(c *gin.Context, fn func(ctx context.Context, orderID, actorUserID string) (*models.Order, error)) {
	order, err := fn(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) writeError(c *gin.Context, err error) {
	var invalid *models.InvalidStateError
	var gwErr *models.GatewayError

	switch {
	case errors.Is(err, models.ErrListingNotFound), errors.Is(err, models.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{
			"error":          "invalid order state",
			"current_status": invalid.Current,
		})
	case errors.As(err, &gwErr):
		telemetry.Logger.Error("gateway call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
	default:
		telemetry.Logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// actorID returns the authenticated user id set by the auth middleware.
func actorID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
