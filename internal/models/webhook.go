package models

import (
	"encoding/json"
	"time"
)

// WebhookEvent is one row of the dedup ledger. A row existing for a given
// (provider, provider_event_id) means the corresponding business effect was
// already attempted; rows are never updated or deleted.
type WebhookEvent struct {
	ID              int64           `json:"id"`
	Provider        string          `json:"provider"`
	ProviderEventID string          `json:"provider_event_id"`
	Payload         json.RawMessage `json:"payload"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PaymentRecord snapshots a confirmed gateway lookup for an order. At most
// one exists per (order_id, provider_payment_id); never mutated.
type PaymentRecord struct {
	ID                int64           `json:"id"`
	OrderID           string          `json:"order_id"`
	Provider          string          `json:"provider"`
	ProviderPaymentID string          `json:"provider_payment_id"`
	ProviderEventID   string          `json:"provider_event_id"`
	Status            string          `json:"status"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	RawEvent          json.RawMessage `json:"raw_event"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AuditEntry is one append-only audit log row. ActorUserID is empty for
// system-triggered effects such as webhook processing.
type AuditEntry struct {
	Action      string          `json:"action"`
	ActorUserID string          `json:"actor_user_id,omitempty"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
