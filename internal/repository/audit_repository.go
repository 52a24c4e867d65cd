package repository

import (
	"context"
	"database/sql"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			action VARCHAR(64) NOT NULL,
			actor_user_id VARCHAR(64),
			entity_type VARCHAR(32) NOT NULL,
			entity_id VARCHAR(64) NOT NULL,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	actor := sql.NullString{String: entry.ActorUserID, Valid: entry.ActorUserID != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (action, actor_user_id, entity_type, entity_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.Action, actor, entry.EntityType, entry.EntityID, string(entry.Metadata), entry.CreatedAt)
	return err
}
