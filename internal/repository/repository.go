// Package repository persists the master dataset. SQLite is the
// single-node default; a Postgres store backs pooled deployments. Both
// speak the same prices table, and all mutation flows through the
// dataset merger's transaction contract.
package repository

import (
	"context"

	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/dataset"
)

// Store is the persistence surface the pipeline depends on.
type Store interface {
	dataset.Store
	// ListRecords returns the full master dataset ordered by
	// description then record code, the order the spreadsheet mirror
	// uses.
	ListRecords(ctx context.Context) ([]dataset.Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open selects the backend from configuration: Postgres when a DSN is
// set, SQLite otherwise.
func Open(ctx context.Context, cfg common.DatasetConfig) (Store, error) {
	if cfg.DSN != "" {
		return OpenPostgres(ctx, cfg)
	}
	return OpenSQLite(ctx, cfg.SQLitePath)
}

// Column order shared by every statement touching the prices table.
const columns = `material_code, short_code, description, price_text, price,
	price_currency, brand, source_file, source_page, record_code,
	main_header, sub_header, sub_header2, image_path, year, month`

const insertSQL = `INSERT INTO prices (` + columns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const deleteTripleSQL = `DELETE FROM prices WHERE brand = $1 AND year = $2 AND month = $3`

const listSQL = `SELECT ` + columns + ` FROM prices ORDER BY description, record_code`

func insertArgs(r dataset.Record) []any {
	return []any{
		r.MaterialCode, r.ShortCode, r.Description, r.Price, r.PriceValue,
		r.Currency, r.Brand, r.SourceFile, r.Page, r.RecordCode,
		r.MainHeading, r.SubHeading, r.SubHeading2, r.ImagePath, r.Year, r.Month,
	}
}

// scanTarget matches the columns order for row scans.
func scanTarget(r *dataset.Record) []any {
	return []any{
		&r.MaterialCode, &r.ShortCode, &r.Description, &r.Price, &r.PriceValue,
		&r.Currency, &r.Brand, &r.SourceFile, &r.Page, &r.RecordCode,
		&r.MainHeading, &r.SubHeading, &r.SubHeading2, &r.ImagePath, &r.Year, &r.Month,
	}
}
