package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/dataset"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS prices (
	material_code  TEXT NOT NULL,
	short_code     TEXT,
	description    TEXT,
	price_text     TEXT,
	price          DOUBLE PRECISION,
	price_currency TEXT,
	brand          TEXT,
	source_file    TEXT,
	source_page    INTEGER,
	record_code    TEXT,
	main_header    TEXT,
	sub_header     TEXT,
	sub_header2    TEXT,
	image_path     TEXT,
	year           INTEGER,
	month          INTEGER
);
CREATE INDEX IF NOT EXISTS idx_prices_triple ON prices (brand, year, month);
`

// PostgresStore backs deployments where several ingestion nodes share
// one master dataset.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, cfg common.DatasetConfig) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dataset dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.DialTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = cfg.DialTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Begin(ctx context.Context) (dataset.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context) ([]dataset.Record, error) {
	rows, err := s.pool.Query(ctx, listSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dataset.Record
	for rows.Next() {
		var r dataset.Record
		if err := rows.Scan(scanTarget(&r)...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) DeleteTriple(ctx context.Context, key dataset.TripleKey) (int64, error) {
	tag, err := t.tx.Exec(ctx, deleteTripleSQL, key.Brand, key.Year, key.Month)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) InsertRecords(ctx context.Context, recs []dataset.Record) error {
	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(insertSQL, insertArgs(r)...)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *pgxTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
