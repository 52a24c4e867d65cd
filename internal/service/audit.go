package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teloven/marketplace/order-engine/internal/interfaces"
	"github.com/teloven/marketplace/order-engine/internal/metrics"
	"github.com/teloven/marketplace/order-engine/internal/models"
	"github.com/teloven/marketplace/order-engine/internal/telemetry"
)

const auditWriteTimeout = 5 * time.Second

// AuditRecorder buffers audit entries in a bounded queue drained by a
// background goroutine. Recording never blocks the primary operation: a
// full queue drops the entry and bumps a counter, and a failed write is
// logged and counted but never escalated.
type AuditRecorder struct {
	repo  interfaces.AuditRepository
	queue chan models.AuditEntry
	wg    sync.WaitGroup
}

func NewAuditRecorder(repo interfaces.AuditRepository, queueSize int) *AuditRecorder {
	return &AuditRecorder{
		repo:  repo,
		queue: make(chan models.AuditEntry, queueSize),
	}
}

func (a *AuditRecorder) Start() {
	a.wg.Add(1)
	go a.drain()
}

func (a *AuditRecorder) drain() {
	defer a.wg.Done()
	for entry := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		err := a.repo.Insert(ctx, &entry)
		cancel()
		if err != nil {
			metrics.AuditWriteFailuresTotal.Inc()
			telemetry.Logger.Warn("audit write failed",
				zap.String("action", entry.Action),
				zap.String("entity_id", entry.EntityID),
				zap.Error(err),
			)
		}
	}
}

// Record enqueues one audit entry. Metadata is marshaled to JSON; a nil
// metadata value produces an entry without a metadata payload.
func (a *AuditRecorder) Record(action, actorUserID, entityType, entityID string, metadata any) {
	var raw json.RawMessage
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			telemetry.Logger.Warn("audit metadata marshal failed",
				zap.String("action", action),
				zap.Error(err),
			)
		} else {
			raw = b
		}
	}

	entry := models.AuditEntry{
		Action:      action,
		ActorUserID: actorUserID,
		EntityType:  entityType,
		EntityID:    entityID,
		Metadata:    raw,
		CreatedAt:   time.Now().UTC(),
	}

	select {
	case a.queue <- entry:
	default:
		metrics.AuditDropsTotal.Inc()
		telemetry.Logger.Warn("audit queue full, entry dropped",
			zap.String("action", action),
			zap.String("entity_id", entityID),
		)
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (a *AuditRecorder) Close() {
	close(a.queue)
	a.wg.Wait()
}
