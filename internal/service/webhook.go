package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teloven/marketplace/order-engine/internal/metrics"
	"github.com/teloven/marketplace/order-engine/internal/models"
	"github.com/teloven/marketplace/order-engine/internal/telemetry"
)

const webhookLockTTL = 30 * time.Second

type webhookNotification struct {
	ID   json.Number `json:"id"`
	Type string      `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// HandleWebhook ingests one provider notification. It never reports failure
// to the caller: the provider's retry policy treats any non-success response
// as "redeliver", so internal no-ops are absorbed here and recorded in
// metrics and the audit trail instead.
//
// The receipt is written to the dedup ledger before any order mutation is
// attempted. A crash between recording and acting leaves a stuck order for
// manual reconciliation rather than ever paying out twice; the CREATED guard
// on the paid transition is the true source of truth either way.
func (e *Engine) HandleWebhook(ctx context.Context, raw []byte) {
	var note webhookNotification
	if err := json.Unmarshal(raw, &note); err != nil || note.ID.String() == "" {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookMalformed).Inc()
		telemetry.Logger.Warn("webhook without event id, ignoring")
		return
	}
	eventID := note.ID.String()

	// Fast-path short circuit for simultaneous duplicate deliveries. Best
	// effort only: the ledger's uniqueness constraint below stays the sole
	// correctness mechanism.
	if e.redisClient != nil {
		lockKey := "webhook_lock:" + e.provider + ":" + eventID
		locked := e.redisClient.SetNX(ctx, lockKey, "1", webhookLockTTL)
		if locked.Err() == nil && !locked.Val() {
			metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookDuplicate).Inc()
			telemetry.Logger.Info("webhook already in flight",
				zap.String("event_id", eventID))
			return
		}
	}

	err := e.events.Insert(ctx, e.provider, eventID, raw)
	if err == models.ErrDuplicateEvent {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookDuplicate).Inc()
		telemetry.Logger.Info("duplicate webhook event",
			zap.String("provider", e.provider),
			zap.String("event_id", eventID))
		return
	}
	if err != nil {
		// Without a ledger row we cannot prove at-most-once, so stop before
		// touching the order. The provider will redeliver.
		telemetry.Logger.Error("webhook event insert failed",
			zap.String("event_id", eventID),
			zap.Error(err))
		return
	}

	paymentID := note.Data.ID.String()
	if paymentID == "" || e.gateway == nil {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookNoEffect).Inc()
		telemetry.Logger.Info("webhook recorded without resolvable payment",
			zap.String("event_id", eventID))
		return
	}

	info, err := e.gateway.ResolvePayment(ctx, paymentID)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookNoEffect).Inc()
		telemetry.Logger.Warn("payment resolution failed",
			zap.String("event_id", eventID),
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return
	}

	if info.ExternalReference == "" {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookOrphan).Inc()
		telemetry.Logger.Info("payment without external reference",
			zap.String("payment_id", paymentID))
		return
	}

	order, err := e.orders.GetByID(ctx, info.ExternalReference)
	if err == models.ErrOrderNotFound {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookOrphan).Inc()
		telemetry.Logger.Info("payment references unknown order",
			zap.String("payment_id", paymentID),
			zap.String("external_reference", info.ExternalReference))
		return
	}
	if err != nil {
		telemetry.Logger.Error("order lookup failed",
			zap.String("order_id", info.ExternalReference),
			zap.Error(err))
		return
	}

	if info.Amount != order.Total {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookMismatch).Inc()
		e.audit.Record("payment.amount_mismatch", "", "order", order.ID, map[string]any{
			"expected_amount": order.Total,
			"resolved_amount": info.Amount,
			"payment_id":      paymentID,
		})
		telemetry.Logger.Warn("payment amount mismatch",
			zap.String("order_id", order.ID),
			zap.Int64("expected", order.Total),
			zap.Int64("resolved", info.Amount))
		return
	}

	// Secondary record; never gates the transition below.
	rec := &models.PaymentRecord{
		OrderID:           order.ID,
		Provider:          e.provider,
		ProviderPaymentID: paymentID,
		ProviderEventID:   eventID,
		Status:            info.Status,
		Amount:            info.Amount,
		Currency:          info.Currency,
		RawEvent:          raw,
	}
	if err := e.payments.Insert(ctx, rec); err != nil && err != models.ErrDuplicatePayment {
		telemetry.Logger.Warn("payment record insert failed",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	if info.Status != models.PaymentStatusApproved {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookNoEffect).Inc()
		telemetry.Logger.Info("payment not approved, no transition",
			zap.String("order_id", order.ID),
			zap.String("status", info.Status))
		return
	}

	rows, err := e.orders.MarkPaid(ctx, order.ID, paymentID, time.Now().UTC())
	if err != nil {
		telemetry.Logger.Error("paid transition failed",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return
	}
	if rows == 0 {
		// Already past CREATED: a retried resolution racing an approval that
		// was processed first. Skip silently.
		metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookNoEffect).Inc()
		telemetry.Logger.Info("order already paid, skipping",
			zap.String("order_id", order.ID),
			zap.String("payment_id", paymentID))
		return
	}

	metrics.WebhookEventsTotal.WithLabelValues(metrics.WebhookAccepted).Inc()
	e.afterTransition(ctx, order.ID, "", models.StatusCreated, models.StatusPaidInCustody,
		"order.paid_in_custody", map[string]any{
			"payment_id": paymentID,
			"event_id":   eventID,
			"amount":     info.Amount,
		})
}
