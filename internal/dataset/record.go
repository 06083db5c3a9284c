// Package dataset owns the master price dataset: the canonical record
// shape and the merger that is the only writer to the persistent store.
package dataset

import (
	"fmt"
	"strings"
)

// Record is one canonical price row, the unit persisted to the master
// dataset.
type Record struct {
	MaterialCode string
	ShortCode    string
	Description  string
	// Price keeps the text exactly as printed; PriceValue carries the
	// parsed numeric value (0 when normalization failed and the field
	// was blanked).
	Price      string
	PriceValue float64
	Currency   string
	Brand      string
	SourceFile string
	Page       int
	// RecordCode is "<file-stem>|<page>|<seq>" with seq 1-based within
	// the page. A matched brand profile's record code, when declared,
	// prefixes the stem.
	RecordCode  string
	MainHeading string
	SubHeading  string
	SubHeading2 string
	ImagePath   string
	Year        int
	Month       int
}

// Valid reports whether the record may be persisted. A row without a
// material code is never a real product.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.MaterialCode) != ""
}

// Triple returns the record's logical partition key.
func (r Record) Triple() TripleKey {
	return TripleKey{Brand: r.Brand, Year: r.Year, Month: r.Month}
}

// TripleKey partitions the master dataset for update-mode replacement
// and for the single-writer-per-triple rule.
type TripleKey struct {
	Brand string
	Year  int
	Month int
}

func (k TripleKey) String() string {
	return fmt.Sprintf("%s/%04d-%02d", k.Brand, k.Year, k.Month)
}
