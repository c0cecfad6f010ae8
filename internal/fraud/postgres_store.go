package fraud

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/chaingive/fraudguard/internal/alerts"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed check store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the fraud check table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fraud_checks (
			id              VARCHAR(64) PRIMARY KEY,
			transaction_id  VARCHAR(64) NOT NULL,
			user_id         VARCHAR(64) NOT NULL,
			fraudulent      BOOLEAN NOT NULL DEFAULT FALSE,
			risk_level      VARCHAR(10) NOT NULL,
			reasons         TEXT[] NOT NULL DEFAULT '{}',
			action          VARCHAR(10) NOT NULL,
			checked_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_fraud_checks_tx ON fraud_checks(transaction_id, checked_at DESC);
		CREATE INDEX IF NOT EXISTS idx_fraud_checks_time ON fraud_checks(checked_at DESC);
	`)
	return err
}

// SaveDecision writes the check and its alert in one transaction
func (p *PostgresStore) SaveDecision(ctx context.Context, check *CheckResult, alert *alerts.FraudAlert) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fraud_checks (id, transaction_id, user_id, fraudulent, risk_level, reasons, action, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, check.ID, check.TransactionID, check.UserID, check.Fraudulent,
		check.Risk.String(), pq.Array(check.Reasons), string(check.Action), check.CheckedAt)
	if err != nil {
		return err
	}

	if alert != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fraud_alerts (id, user_id, transaction_id, risk_level, message, status, acknowledged, false_positive, resolution_notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, alert.ID, alert.UserID, alert.TransactionID, alert.RiskLevel, alert.Message,
			string(alert.Status), alert.Acknowledged, alert.FalsePositive, alert.ResolutionNotes, alert.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindByTransaction returns the most recent check for a transaction
func (p *PostgresStore) FindByTransaction(ctx context.Context, transactionID string) (*CheckResult, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, user_id, fraudulent, risk_level, reasons, action, checked_at
		FROM fraud_checks
		WHERE transaction_id = $1
		ORDER BY checked_at DESC
		LIMIT 1
	`, transactionID)

	check, err := scanCheck(row)
	if err == sql.ErrNoRows {
		return nil, ErrCheckNotFound
	}
	return check, err
}

// ListFlagged returns the latest check per transaction at or above minRisk
func (p *PostgresStore) ListFlagged(ctx context.Context, minRisk RiskLevel) ([]*CheckResult, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT ON (transaction_id)
			id, transaction_id, user_id, fraudulent, risk_level, reasons, action, checked_at
		FROM fraud_checks
		ORDER BY transaction_id, checked_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*CheckResult
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		if check.Risk >= minRisk {
			out = append(out, check)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DISTINCT ON orders by transaction id; callers want newest first
	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckedAt.After(out[j].CheckedAt)
	})
	return out, nil
}

// Statistics counts checks performed at or after since
func (p *PostgresStore) Statistics(ctx context.Context, since time.Time) (*Statistics, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT risk_level, action, fraudulent, COUNT(*)
		FROM fraud_checks
		WHERE checked_at >= $1
		GROUP BY risk_level, action, fraudulent
	`, since)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stats := &Statistics{
		ByRiskLevel: make(map[string]int),
		ByAction:    make(map[string]int),
	}
	for rows.Next() {
		var level, action string
		var fraudulent bool
		var count int
		if err := rows.Scan(&level, &action, &fraudulent, &count); err != nil {
			return nil, err
		}
		stats.TotalChecks += count
		if fraudulent {
			stats.Fraudulent += count
		}
		stats.ByRiskLevel[level] += count
		stats.ByAction[action] += count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheck(row rowScanner) (*CheckResult, error) {
	check := &CheckResult{}
	var level, action string
	var reasons pq.StringArray
	err := row.Scan(&check.ID, &check.TransactionID, &check.UserID, &check.Fraudulent,
		&level, &reasons, &action, &check.CheckedAt)
	if err != nil {
		return nil, err
	}
	risk, err := ParseRiskLevel(level)
	if err != nil {
		return nil, err
	}
	check.Risk = risk
	check.Action = Action(action)
	check.Reasons = []string(reasons)
	return check, nil
}
