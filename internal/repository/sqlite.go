package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/smartprice/pricelist/internal/dataset"
)

// Schema follows the original prices table, extended with the month
// partition column and the as-printed price text.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS prices (
	material_code  TEXT NOT NULL,
	short_code     TEXT,
	description    TEXT,
	price_text     TEXT,
	price          REAL,
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

// SQLiteStore is the single-node master dataset store.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dataset dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer connection keeps SQLITE_BUSY out of the merge path;
	// the keyed triple locks already serialize writers above this.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Begin(ctx context.Context) (dataset.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context) ([]dataset.Record, error) {
	rows, err := s.db.QueryContext(ctx, listSQL)
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

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLiteStore) Close() error                   { return s.db.Close() }

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) DeleteTriple(ctx context.Context, key dataset.TripleKey) (int64, error) {
	res, err := t.tx.ExecContext(ctx, deleteTripleSQL, key.Brand, key.Year, key.Month)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) InsertRecords(ctx context.Context, recs []dataset.Record) error {
	stmt, err := t.tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, insertArgs(r)...); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) Commit(_ context.Context) error   { return t.tx.Commit() }
func (t *sqlTx) Rollback(_ context.Context) error { return t.tx.Rollback() }
