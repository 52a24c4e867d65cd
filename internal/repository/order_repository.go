package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			listing_id VARCHAR(64) NOT NULL,
			buyer_id VARCHAR(64) NOT NULL,
			seller_id VARCHAR(64) NOT NULL,
			price BIGINT NOT NULL,
			platform_fee BIGINT NOT NULL,
			total BIGINT NOT NULL,
			currency VARCHAR(8) NOT NULL,
			status VARCHAR(32) NOT NULL,
			provider_session_id VARCHAR(128),
			provider_payment_id VARCHAR(128),
			paid_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, listing_id, buyer_id, seller_id, price, platform_fee, total,
			currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, o.ID, o.ListingID, o.BuyerID, o.SellerID, o.Price, o.PlatformFee, o.Total,
		o.Currency, o.Status, o.CreatedAt)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	var sessionID, paymentID sql.NullString
	var paidAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, listing_id, buyer_id, seller_id, price, platform_fee, total,
			currency, status, provider_session_id, provider_payment_id, paid_at,
			created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.ListingID, &o.BuyerID, &o.SellerID, &o.Price, &o.PlatformFee,
		&o.Total, &o.Currency, &o.Status, &sessionID, &paymentID, &paidAt,
		&o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.ProviderSessionID = sessionID.String
	o.ProviderPaymentID = paymentID.String
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	return &o, nil
}

func (r *OrderRepository) SetSessionID(ctx context.Context, id, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET provider_session_id = $1, updated_at = NOW() WHERE id = $2
	`, sessionID, id)
	return err
}

// TransitionStatus applies the single forward edge from -> to. The WHERE
// clause on the current status makes the update atomic against concurrent
// callers; zero rows affected means the order was not in the source state.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id string, from, to models.OrderStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id, providerPaymentID string, paidAt time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, provider_payment_id = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`, models.StatusPaidInCustody, providerPaymentID, paidAt, id, models.StatusCreated)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
