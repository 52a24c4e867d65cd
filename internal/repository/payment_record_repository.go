package repository

import (
	"context"
	"database/sql"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

type PaymentRecordRepository struct {
	db *sql.DB
}

func NewPaymentRecordRepository(db *sql.DB) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

func (r *PaymentRecordRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payment_records (
			id BIGSERIAL PRIMARY KEY,
			order_id VARCHAR(64) NOT NULL,
			provider VARCHAR(32) NOT NULL,
			provider_payment_id VARCHAR(128) NOT NULL,
			provider_event_id VARCHAR(128) NOT NULL,
			status VARCHAR(32) NOT NULL,
			amount BIGINT NOT NULL,
			currency VARCHAR(8) NOT NULL,
			raw_event TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_payment_records_order_payment UNIQUE (order_id, provider_payment_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_records_order ON payment_records(order_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *PaymentRecordRepository) Insert(ctx context.Context, rec *models.PaymentRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_records (order_id, provider, provider_payment_id,
			provider_event_id, status, amount, currency, raw_event)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.OrderID, rec.Provider, rec.ProviderPaymentID, rec.ProviderEventID,
		rec.Status, rec.Amount, rec.Currency, string(rec.RawEvent))
	if isUniqueViolation(err) {
		return models.ErrDuplicatePayment
	}
	return err
}

func (r *PaymentRecordRepository) ListByOrder(ctx context.Context, orderID string) ([]models.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, provider, provider_payment_id, provider_event_id,
			status, amount, currency, raw_event, created_at
		FROM payment_records WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.PaymentRecord
	for rows.Next() {
		var rec models.PaymentRecord
		var raw sql.NullString
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Provider, &rec.ProviderPaymentID,
			&rec.ProviderEventID, &rec.Status, &rec.Amount, &rec.Currency, &raw,
			&rec.CreatedAt); err != nil {
			return nil, err
		}
		if raw.Valid {
			rec.RawEvent = []byte(raw.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
