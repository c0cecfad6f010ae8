package alerts

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/chaingive/fraudguard/internal/pagination"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed alert store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the fraud alert table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fraud_alerts (
			id               VARCHAR(64) PRIMARY KEY,
			user_id          VARCHAR(64) NOT NULL,
			transaction_id   VARCHAR(64) NOT NULL,
			risk_level       VARCHAR(10) NOT NULL,
			message          TEXT NOT NULL DEFAULT '',
			status           VARCHAR(20) NOT NULL DEFAULT 'pending',
			acknowledged     BOOLEAN NOT NULL DEFAULT FALSE,
			false_positive   BOOLEAN NOT NULL DEFAULT FALSE,
			resolution_notes TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ DEFAULT NOW(),
			resolved_at      TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_fraud_alerts_user ON fraud_alerts(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_fraud_alerts_tx ON fraud_alerts(transaction_id, created_at DESC);
	`)
	return err
}

const alertColumns = `id, user_id, transaction_id, risk_level, message, status, acknowledged, false_positive, resolution_notes, created_at, resolved_at`

func (p *PostgresStore) Insert(ctx context.Context, alert *FraudAlert) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO fraud_alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, alert.ID, alert.UserID, alert.TransactionID, alert.RiskLevel, alert.Message,
		string(alert.Status), alert.Acknowledged, alert.FalsePositive, alert.ResolutionNotes,
		alert.CreatedAt, alert.ResolvedAt)
	return err
}

func (p *PostgresStore) FindByID(ctx context.Context, id string) (*FraudAlert, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM fraud_alerts WHERE id = $1
	`, id)
	return scanAlert(row)
}

func (p *PostgresStore) LatestByTransaction(ctx context.Context, userID, transactionID string) (*FraudAlert, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM fraud_alerts
		WHERE user_id = $1 AND transaction_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, transactionID)
	return scanAlert(row)
}

func (p *PostgresStore) Update(ctx context.Context, alert *FraudAlert) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE fraud_alerts
		SET status = CASE WHEN status = 'resolved' THEN status ELSE $2 END,
		    acknowledged = acknowledged OR $3,
		    false_positive = false_positive OR $4,
		    resolution_notes = $5,
		    resolved_at = COALESCE(resolved_at, $6)
		WHERE id = $1
	`, alert.ID, string(alert.Status), alert.Acknowledged, alert.FalsePositive,
		alert.ResolutionNotes, alert.ResolvedAt)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (p *PostgresStore) SetAcknowledged(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE fraud_alerts SET acknowledged = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (p *PostgresStore) ListByUser(ctx context.Context, userID string, acknowledged *bool, before *pagination.Cursor, limit int) ([]*FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE user_id = $1`
	args := []interface{}{userID}
	if acknowledged != nil {
		args = append(args, *acknowledged)
		query += ` AND acknowledged = $` + strconv.Itoa(len(args))
	}
	if before != nil {
		args = append(args, before.CreatedAt, before.ID)
		query += ` AND (created_at, id) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*FraudAlert
	for rows.Next() {
		alert, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fraud_alerts WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&count)
	return count, err
}

func (p *PostgresStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{}
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE false_positive)
		FROM fraud_alerts WHERE created_at >= $1
	`, since).Scan(&stats.Total, &stats.FalsePositives)
	if err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.FalsePositiveRate = float64(stats.FalsePositives) / float64(stats.Total)
	}
	return stats, nil
}

func scanAlert(row *sql.Row) (*FraudAlert, error) {
	alert, err := scanAlertRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrAlertNotFound
	}
	return alert, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlertRow(row rowScanner) (*FraudAlert, error) {
	alert := &FraudAlert{}
	var status string
	var resolvedAt sql.NullTime
	err := row.Scan(&alert.ID, &alert.UserID, &alert.TransactionID, &alert.RiskLevel,
		&alert.Message, &status, &alert.Acknowledged, &alert.FalsePositive,
		&alert.ResolutionNotes, &alert.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	alert.Status = Status(status)
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	return alert, nil
}
