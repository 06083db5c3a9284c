// Package extract produces raw candidate rows from one document page.
// The strategies share one contract: direct text, spreadsheet, OCR plus
// a text model, a vision model, and the hosted document service when
// configured; the orchestrator tries them in that fixed order and stops
// at the first one yielding rows.
package extract

import (
	"context"

	"github.com/smartprice/pricelist/internal/brand"
)

// Document is one input price list plus its matched brand profile.
type Document struct {
	Path    string
	Name    string // base name, used in provenance
	Format  string // constants.PDF or constants.SPREADSHEET
	Profile brand.Profile
}

// RawRow maps arbitrary header text to cell values. Headers preserves
// the column order seen in the document so canonicalization stays
// deterministic when several headers resolve to the same field.
type RawRow struct {
	Headers    []string
	Values     map[string]string
	Page       int
	SourceFile string
}

// Set appends a header/value pair, keeping column order.
func (r *RawRow) Set(header, value string) {
	if r.Values == nil {
		r.Values = make(map[string]string)
	}
	if _, seen := r.Values[header]; !seen {
		r.Headers = append(r.Headers, header)
	}
	r.Values[header] = value
}

// PageExtract is one strategy's output for one page. Zero rows with a
// nil error is a failed attempt that triggers fallback, not an error.
type PageExtract struct {
	Rows []RawRow
	// Note carries the diagnostic excerpt (model name, truncated
	// prompt/response) recorded for zero-row pages.
	Note string
	// Image and RawResponse feed the debug artifact store; nil for
	// strategies that never leave the local machine.
	Image       []byte
	RawResponse []byte
}

// Strategy extracts raw rows from one page. Implementations are lazy
// per page and restartable: failure on page N must not invalidate pages
// already produced.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc Document, page int) (PageExtract, error)
}
