package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teloven/marketplace/order-engine/internal/interfaces"
	"github.com/teloven/marketplace/order-engine/internal/metrics"
	"github.com/teloven/marketplace/order-engine/internal/models"
	"github.com/teloven/marketplace/order-engine/internal/telemetry"
)

// Engine is the only component allowed to mutate order state. It is safe
// under arbitrary interleaving of concurrent callers: every transition is a
// conditional update against the store, and no lock is held across a remote
// gateway call.
type Engine struct {
	orders      interfaces.OrderRepository
	events      interfaces.WebhookEventRepository
	payments    interfaces.PaymentRecordRepository
	gateway     interfaces.PaymentGateway
	listings    interfaces.ListingDirectory
	publisher   interfaces.StatePublisher
	audit       *AuditRecorder
	redisClient *redis.Client
	fees        FeePolicy
	provider    string
}

// EngineDeps collects the engine's collaborators. Publisher and RedisClient
// are optional; everything else is required.
type EngineDeps struct {
	Orders      interfaces.OrderRepository
	Events      interfaces.WebhookEventRepository
	Payments    interfaces.PaymentRecordRepository
	Gateway     interfaces.PaymentGateway
	Listings    interfaces.ListingDirectory
	Publisher   interfaces.StatePublisher
	Audit       *AuditRecorder
	RedisClient *redis.Client
	Fees        FeePolicy
	Provider    string
}

func NewEngine(deps EngineDeps) *Engine {
	return &Engine{
		orders:      deps.Orders,
		events:      deps.Events,
		payments:    deps.Payments,
		gateway:     deps.Gateway,
		listings:    deps.Listings,
		publisher:   deps.Publisher,
		audit:       deps.Audit,
		redisClient: deps.RedisClient,
		fees:        deps.Fees,
		provider:    deps.Provider,
	}
}

// CreateOrder prices the listing, computes the platform fee, and persists a
// new order in CREATED.
func (e *Engine) CreateOrder(ctx context.Context, listingID, buyerID string) (*models.Order, error) {
	l, err := e.listings.GetActiveListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:          uuid.NewString(),
		ListingID:   l.ID,
		BuyerID:     buyerID,
		SellerID:    l.SellerID,
		Price:       l.Price,
		PlatformFee: e.fees.Fee(l.Price),
		Total:       e.fees.Total(l.Price),
		Currency:    l.Currency,
		Status:      models.StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	e.audit.Record("order.created", buyerID, "order", order.ID, map[string]any{
		"listing_id":   order.ListingID,
		"price":        order.Price,
		"platform_fee": order.PlatformFee,
		"total":        order.Total,
	})

	telemetry.Logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("listing_id", order.ListingID),
		zap.Int64("total", order.Total),
	)
	return order, nil
}

// InitiateCheckout opens a checkout session at the gateway for the order's
// total, with the order id as the external reference. Repeated calls may
// open more than one session; that is acceptable because only one approved
// payment can ever win the CREATED guard.
func (e *Engine) InitiateCheckout(ctx context.Context, orderID, userID string) (*models.CheckoutSession, error) {
	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != userID {
		return nil, models.ErrForbidden
	}
	if order.Status != models.StatusCreated {
		return nil, &models.InvalidStateError{Current: order.Status}
	}

	session, err := e.gateway.CreateSession(ctx, order.Total, order.Currency, order.ID)
	if err != nil {
		return nil, err
	}

	if err := e.orders.SetSessionID(ctx, order.ID, session.SessionID); err != nil {
		return nil, err
	}

	e.audit.Record("order.checkout_initiated", userID, "order", order.ID, map[string]any{
		"session_id": session.SessionID,
		"total":      order.Total,
	})
	return session, nil
}

func (e *Engine) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return e.orders.GetByID(ctx, orderID)
}

func (e *Engine) MarkDelivered(ctx context.Context, orderID, actorUserID string) (*models.Order, error) {
	return e.transition(ctx, orderID, actorUserID,
		models.StatusPaidInCustody, models.StatusDeliveredMarked, "order.delivered_marked")
}

func (e *Engine) ConfirmByBuyer(ctx context.Context, orderID, actorUserID string) (*models.Order, error) {
	return e.transition(ctx, orderID, actorUserID,
		models.StatusDeliveredMarked, models.StatusConfirmedByBuyer, "order.confirmed_by_buyer")
}

func (e *Engine) InitiatePayout(ctx context.Context, orderID, actorUserID string) (*models.Order, error) {
	return e.transition(ctx, orderID, actorUserID,
		models.StatusConfirmedByBuyer, models.StatusPayoutInitiated, "order.payout_initiated")
}

func (e *Engine) CompletePayout(ctx context.Context, orderID, actorUserID string) (*models.Order, error) {
	return e.transition(ctx, orderID, actorUserID,
		models.StatusPayoutInitiated, models.StatusPaidOut, "order.paid_out")
}

// Cancel is only legal from CREATED: a custodied payment cannot be
// unilaterally cancelled by this engine.
func (e *Engine) Cancel(ctx context.Context, orderID, actorUserID string) (*models.Order, error) {
	return e.transition(ctx, orderID, actorUserID,
		models.StatusCreated, models.StatusCancelled, "order.cancelled")
}

// OpenDispute is reachable from PAID_IN_CUSTODY or DELIVERED_MARKED.
func (e *Engine) OpenDispute(ctx context.Context, orderID, actorUserID string) (*models.Order, error) {
	for _, from := range []models.OrderStatus{models.StatusPaidInCustody, models.StatusDeliveredMarked} {
		rows, err := e.orders.TransitionStatus(ctx, orderID, from, models.StatusDisputeOpened)
		if err != nil {
			return nil, err
		}
		if rows > 0 {
			e.afterTransition(ctx, orderID, actorUserID, from, models.StatusDisputeOpened,
				"order.dispute_opened", nil)
			return e.orders.GetByID(ctx, orderID)
		}
	}

	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return nil, &models.InvalidStateError{Current: order.Status}
}

func (e *Engine) transition(ctx context.Context, orderID, actorUserID string, from, to models.OrderStatus, action string) (*models.Order, error) {
	rows, err := e.orders.TransitionStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		order, err := e.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, &models.InvalidStateError{Current: order.Status}
	}

	e.afterTransition(ctx, orderID, actorUserID, from, to, action, nil)
	return e.orders.GetByID(ctx, orderID)
}

// afterTransition runs the side effects of a successful transition: metrics,
// best-effort state-change publication, audit, and a log line. None of these
// can undo the transition.
func (e *Engine) afterTransition(ctx context.Context, orderID, actorUserID string, from, to models.OrderStatus, action string, metadata map[string]any) {
	metrics.OrderTransitionsTotal.WithLabelValues(string(to)).Inc()

	if e.publisher != nil {
		if err := e.publisher.PublishStateChange(ctx, orderID, from, to); err != nil {
			telemetry.Logger.Warn("state change publish failed",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
	}

	e.audit.Record(action, actorUserID, "order", orderID, metadata)

	telemetry.Logger.Info("order state transition",
		zap.String("order_id", orderID),
		zap.String("from_state", string(from)),
		zap.String("to_state", string(to)),
	)
}
