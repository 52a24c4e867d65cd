package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS webhook_events (
			id BIGSERIAL PRIMARY KEY,
			provider VARCHAR(32) NOT NULL,
			provider_event_id VARCHAR(128) NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_webhook_events_provider_event UNIQUE (provider, provider_event_id)
		)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// Insert appends one ledger row. The unique constraint on
// (provider, provider_event_id) arbitrates concurrent identical deliveries:
// exactly one insert wins, the rest get ErrDuplicateEvent.
func (r *WebhookEventRepository) Insert(ctx context.Context, provider, eventID string, payload json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events (provider, provider_event_id, payload)
		VALUES ($1, $2, $3)
	`, provider, eventID, string(payload))
	if isUniqueViolation(err) {
		return models.ErrDuplicateEvent
	}
	return err
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
