package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

// OrderRepository defines the contract for order persistence. All state
// transitions are conditional updates keyed on the expected source status;
// the returned row count is the success signal.
type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	SetSessionID(ctx context.Context, id, sessionID string) error
	TransitionStatus(ctx context.Context, id string, from, to models.OrderStatus) (int64, error)
	// MarkPaid moves the order to PAID_IN_CUSTODY, sets paid_at and the
	// provider payment id, all in one conditional update guarded on the
	// order still being CREATED.
	MarkPaid(ctx context.Context, id, providerPaymentID string, paidAt time.Time) (int64, error)
}

// WebhookEventRepository is the dedup ledger. Insert returns
// models.ErrDuplicateEvent when the (provider, eventID) pair already exists;
// the underlying uniqueness constraint must make concurrent identical
// inserts yield exactly one success.
type WebhookEventRepository interface {
	Insert(ctx context.Context, provider, eventID string, payload json.RawMessage) error
}

// PaymentRecordRepository stores confirmed gateway lookups. Writes are a
// secondary record, never the gate for a transition.
type PaymentRecordRepository interface {
	Insert(ctx context.Context, rec *models.PaymentRecord) error
	ListByOrder(ctx context.Context, orderID string) ([]models.PaymentRecord, error)
}

// AuditRepository appends audit entries. Rows are never updated or deleted.
type AuditRepository interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
}
