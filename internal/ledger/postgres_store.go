package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists minted-intent entries in PostgreSQL. The primary key
// on intent_id is the uniqueness constraint that makes Claim safe under
// concurrent webhook retries.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS minted_intents (
    intent_id TEXT PRIMARY KEY,
    wallet_address TEXT NOT NULL,
    quantity BIGINT NOT NULL,
    amount_cents BIGINT NOT NULL,
    tx_hash TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    failure_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

// NewPostgresStore connects using the DSN and ensures the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Claim(ctx context.Context, entry Entry) (bool, error) {
	now := time.Now().UTC()
	tag, err := p.pool.Exec(ctx, `
INSERT INTO minted_intents (intent_id, wallet_address, quantity, amount_cents, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (intent_id) DO NOTHING
`, entry.IntentID, entry.WalletAddress, entry.Quantity, entry.AmountCents, StatusClaimed, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore) MarkMinted(ctx context.Context, intentID, txHash string) error {
	_, err := p.pool.Exec(ctx, `
UPDATE minted_intents
SET status = $2, tx_hash = $3, updated_at = $4
WHERE intent_id = $1
`, intentID, StatusMinted, txHash, time.Now().UTC())
	return err
}

func (p *PostgresStore) MarkFailed(ctx context.Context, intentID, reason string) error {
	_, err := p.pool.Exec(ctx, `
UPDATE minted_intents
SET status = $2, failure_reason = $3, updated_at = $4
WHERE intent_id = $1
`, intentID, StatusFailed, reason, time.Now().UTC())
	return err
}

func (p *PostgresStore) Get(ctx context.Context, intentID string) (*Entry, error) {
	row := p.pool.QueryRow(ctx, `
SELECT intent_id, wallet_address, quantity, amount_cents, tx_hash, status, failure_reason, created_at, updated_at
FROM minted_intents
WHERE intent_id = $1
`, intentID)

	var e Entry
	if err := row.Scan(&e.IntentID, &e.WalletAddress, &e.Quantity, &e.AmountCents, &e.TxHash, &e.Status, &e.FailureReason, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (p *PostgresStore) Failures(ctx context.Context) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, `
SELECT intent_id, wallet_address, quantity, amount_cents, tx_hash, status, failure_reason, created_at, updated_at
FROM minted_intents
WHERE status = $1
ORDER BY created_at
`, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.IntentID, &e.WalletAddress, &e.Quantity, &e.AmountCents, &e.TxHash, &e.Status, &e.FailureReason, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
