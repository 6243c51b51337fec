package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the market catalog table.
const Schema = `
CREATE TABLE IF NOT EXISTS lending_markets (
	chain_id   BIGINT      NOT NULL,
	market_id  TEXT        NOT NULL,
	position   INTEGER     NOT NULL DEFAULT 0,
	enabled    BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, market_id)
)`

// Store reads the list of markets to evaluate. It holds market ids only;
// rates are never persisted.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the catalog table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// ListMarketIDs returns enabled market ids for a chain in catalog order.
func (s *Store) ListMarketIDs(ctx context.Context, chainID uint64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT market_id FROM lending_markets
		WHERE chain_id = $1 AND enabled
		ORDER BY position, market_id
	`, int64(chainID))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UpsertMarkets registers market ids, keeping the given order as position.
func (s *Store) UpsertMarkets(ctx context.Context, chainID uint64, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, id := range ids {
		batch.Queue(`
			INSERT INTO lending_markets (chain_id, market_id, position, enabled, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, now(), now())
			ON CONFLICT (chain_id, market_id)
			DO UPDATE SET
				position = EXCLUDED.position,
				enabled = TRUE,
				updated_at = now()
		`, int64(chainID), id, i)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ids {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// DisableMarkets stops evaluating the given ids without deleting them.
func (s *Store) DisableMarkets(ctx context.Context, chainID uint64, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE lending_markets SET enabled = FALSE, updated_at = now()
		WHERE chain_id = $1 AND market_id = ANY($2)
	`, int64(chainID), ids)
	return err
}
