package review

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed review store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the review case table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fraud_reviews (
			id              VARCHAR(64) PRIMARY KEY,
			transaction_id  VARCHAR(64) NOT NULL,
			decision        VARCHAR(10) NOT NULL,
			reviewer_id     VARCHAR(64) NOT NULL,
			reason          TEXT NOT NULL DEFAULT '',
			notes           TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_fraud_reviews_tx ON fraud_reviews(transaction_id, created_at DESC);
	`)
	return err
}

func (p *PostgresStore) Append(ctx context.Context, rc *ReviewCase) error {
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO fraud_reviews (id, transaction_id, decision, reviewer_id, reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rc.ID, rc.TransactionID, string(rc.Decision), rc.ReviewerID, rc.Reason, rc.Notes, rc.CreatedAt)
	return err
}

func (p *PostgresStore) ListByTransaction(ctx context.Context, transactionID string) ([]*ReviewCase, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, transaction_id, decision, reviewer_id, reason, notes, created_at
		FROM fraud_reviews
		WHERE transaction_id = $1
		ORDER BY created_at DESC
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*ReviewCase
	for rows.Next() {
		rc := &ReviewCase{}
		var decision string
		if err := rows.Scan(&rc.ID, &rc.TransactionID, &decision, &rc.ReviewerID, &rc.Reason, &rc.Notes, &rc.CreatedAt); err != nil {
			return nil, err
		}
		rc.Decision = Decision(decision)
		out = append(out, rc)
	}
	return out, rows.Err()
}
