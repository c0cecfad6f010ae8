package ledger

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed ledger store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the ledger tables
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			user_id      VARCHAR(64) PRIMARY KEY,
			trust_score  DECIMAL(4,2) NOT NULL DEFAULT 5.0,
			created_at   TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id           VARCHAR(64) PRIMARY KEY,
			user_id      VARCHAR(64) NOT NULL,
			amount       DECIMAL(20,2) NOT NULL,
			currency     VARCHAR(3) NOT NULL,
			status       VARCHAR(20) NOT NULL DEFAULT 'completed',
			created_at   TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS user_ips (
			user_id      VARCHAR(64) NOT NULL,
			ip_address   VARCHAR(45) NOT NULL,
			first_seen   TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (user_id, ip_address)
		);

		CREATE TABLE IF NOT EXISTS user_devices (
			user_id      VARCHAR(64) NOT NULL,
			fingerprint  VARCHAR(128) NOT NULL,
			first_seen   TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (user_id, fingerprint)
		);
	`)
	return err
}

// FindAccount retrieves an account by user ID
func (p *PostgresStore) FindAccount(ctx context.Context, userID string) (*Account, error) {
	acct := &Account{}
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, trust_score, created_at FROM accounts WHERE user_id = $1
	`, userID).Scan(&acct.UserID, &acct.TrustScore, &acct.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// PutAccount creates or replaces an account
func (p *PostgresStore) PutAccount(ctx context.Context, account *Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, trust_score, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET trust_score = EXCLUDED.trust_score
	`, account.UserID, account.TrustScore, account.CreatedAt)
	return err
}

// RecordTransaction appends a transaction to the ledger
func (p *PostgresStore) RecordTransaction(ctx context.Context, tx *Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tx.ID, tx.UserID, tx.Amount, tx.Currency, tx.Status, tx.CreatedAt)
	return err
}

// RecentTransactions returns transactions created at or after since, newest first
func (p *PostgresStore) RecentTransactions(ctx context.Context, userID string, since time.Time) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, amount, currency, status, created_at
		FROM transactions
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Transaction
	for rows.Next() {
		tx := &Transaction{}
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Currency, &tx.Status, &tx.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// CountTransactions counts transactions created at or after since
func (p *PostgresStore) CountTransactions(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&count)
	return count, err
}

// KnownIPs returns the user's observed IP addresses
func (p *PostgresStore) KnownIPs(ctx context.Context, userID string) ([]string, error) {
	return p.stringColumn(ctx, `
		SELECT ip_address FROM user_ips WHERE user_id = $1 ORDER BY ip_address
	`, userID)
}

// KnownDevices returns the user's observed device fingerprints
func (p *PostgresStore) KnownDevices(ctx context.Context, userID string) ([]string, error) {
	return p.stringColumn(ctx, `
		SELECT fingerprint FROM user_devices WHERE user_id = $1 ORDER BY fingerprint
	`, userID)
}

// ObserveIP records an IP address for the user (idempotent)
func (p *PostgresStore) ObserveIP(ctx context.Context, userID, ip string) error {
	if ip == "" {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_ips (user_id, ip_address) VALUES ($1, $2)
		ON CONFLICT (user_id, ip_address) DO NOTHING
	`, userID, ip)
	return err
}

// ObserveDevice records a device fingerprint for the user (idempotent)
func (p *PostgresStore) ObserveDevice(ctx context.Context, userID, fingerprint string) error {
	if fingerprint == "" {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_devices (user_id, fingerprint) VALUES ($1, $2)
		ON CONFLICT (user_id, fingerprint) DO NOTHING
	`, userID, fingerprint)
	return err
}

func (p *PostgresStore) stringColumn(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
