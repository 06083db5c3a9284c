package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/dataset"
	"github.com/smartprice/pricelist/internal/extract"
	"github.com/smartprice/pricelist/internal/headers"
	"github.com/smartprice/pricelist/internal/normalize"
)

// Canonicalizer turns raw extracted rows into persistable records:
// header resolution, price/code normalization, provenance and the
// (brand, year, month) partition key.
type Canonicalizer struct {
	resolver *headers.Resolver
	style    normalize.Style
	logger   *slog.Logger
	now      func() time.Time
}

func NewCanonicalizer(resolver *headers.Resolver, style normalize.Style, logger *slog.Logger) *Canonicalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Canonicalizer{resolver: resolver, style: style, logger: logger, now: time.Now}
}

// Canonicalize maps one page's raw rows onto records. Rows whose
// material code stays empty after the code/description split are
// dropped; normalization never invents rows.
func (c *Canonicalizer) Canonicalize(doc extract.Document, page int, rows []extract.RawRow, imagePath string) []dataset.Record {
	year, month := c.documentPeriod(doc.Name)
	stem := fileStem(doc.Name)
	// A matched profile's record code prefixes provenance so records from
	// the same vendor group together across files.
	if code := doc.Profile.RecordCode; code != "" && !doc.Profile.IsDefault() {
		stem = code + "|" + stem
	}

	out := make([]dataset.Record, 0, len(rows))
	seq := 0
	for _, raw := range rows {
		rec := c.canonicalRow(doc, raw)
		if !rec.Valid() {
			c.logger.Debug("row dropped, no material code",
				"file", doc.Name, "page", page)
			continue
		}
		seq++
		rec.SourceFile = doc.Name
		rec.Page = page
		rec.RecordCode = fmt.Sprintf("%s|%d|%d", stem, page, seq)
		rec.ImagePath = imagePath
		if rec.Year == 0 {
			rec.Year = year
		}
		rec.Month = month
		out = append(out, rec)
	}
	return out
}

func (c *Canonicalizer) canonicalRow(doc extract.Document, raw extract.RawRow) dataset.Record {
	var rec dataset.Record

	priceHeader, priceYear := c.selectPriceHeader(raw)
	for _, header := range raw.Headers {
		field, ok := c.resolver.Resolve(header)
		if !ok {
			continue
		}
		value := strings.TrimSpace(raw.Values[header])
		switch field {
		case constants.FieldMaterialCode:
			if rec.MaterialCode == "" {
				rec.MaterialCode = value
			}
		case constants.FieldShortCode:
			if rec.ShortCode == "" {
				rec.ShortCode = value
			}
		case constants.FieldDescription:
			if rec.Description == "" {
				rec.Description = value
			}
		case constants.FieldPrice:
			if header == priceHeader {
				rec.Price = value
			}
		case constants.FieldCurrency:
			if rec.Currency == "" {
				rec.Currency = normalize.NormalizeCurrency(value)
			}
		case constants.FieldMainHeading:
			if rec.MainHeading == "" {
				rec.MainHeading = value
			}
		case constants.FieldSubHeading:
			if rec.SubHeading == "" {
				rec.SubHeading = value
			} else if rec.SubHeading2 == "" {
				rec.SubHeading2 = value
			}
		case constants.FieldSubHeading2:
			if rec.SubHeading2 == "" {
				rec.SubHeading2 = value
			}
		case constants.FieldBrand:
			if rec.Brand == "" {
				rec.Brand = value
			}
		}
	}
	rec.Year = priceYear

	// A code packed into the description ("KFC250-038 / Valve Body")
	// fills the material code only when no code column resolved.
	if rec.MaterialCode == "" && rec.Description != "" {
		code, desc := normalize.SplitCodeDescription(rec.Description)
		rec.MaterialCode = code
		if desc != "" {
			rec.Description = desc
		}
	}

	if rec.Price != "" {
		v, err := normalize.ParsePrice(rec.Price, c.style)
		if err != nil {
			if errors.Is(err, common.ErrNormalization) {
				c.logger.Warn("price normalization failed",
					"file", doc.Name, "value", rec.Price, "error", err)
			}
			rec.Price = ""
		} else {
			rec.PriceValue = v
		}
	}

	if rec.Currency == "" {
		rec.Currency = doc.Profile.DefaultCurrency
	}
	if rec.Currency == "" {
		rec.Currency = constants.DefaultCurrency
	}

	if rec.Brand == "" && !doc.Profile.IsDefault() {
		rec.Brand = doc.Profile.Name
	}
	if rec.Brand == "" {
		rec.Brand = normalize.DetectBrand(doc.Name)
	}
	if rec.Brand == "" {
		rec.Brand = doc.Profile.Name
	}
	return rec
}

var headerYear = regexp.MustCompile(`(20\d{2})`)

// selectPriceHeader picks the price column to persist when several
// headers resolve to the price field: the one naming the latest year
// wins ("2024 Fiyat" vs "2025 Fiyat"), otherwise the first in column
// order. Returns the chosen header and its year (0 when none).
func (c *Canonicalizer) selectPriceHeader(raw extract.RawRow) (string, int) {
	best, bestYear := "", -1
	for _, header := range raw.Headers {
		field, ok := c.resolver.Resolve(header)
		if !ok || field != constants.FieldPrice {
			continue
		}
		year := 0
		if m := headerYear.FindStringSubmatch(header); m != nil {
			year, _ = strconv.Atoi(m[1])
		}
		if best == "" || year > bestYear {
			best, bestYear = header, year
		}
	}
	if bestYear < 0 {
		bestYear = 0
	}
	return best, bestYear
}

// Month names accepted in file names, Turkish and English.
var monthNames = map[string]int{
	"ocak": 1, "subat": 2, "mart": 3, "nisan": 4, "mayis": 5,
	"haziran": 6, "temmuz": 7, "agustos": 8, "eylul": 9, "ekim": 10,
	"kasim": 11, "aralik": 12,
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5,
	"june": 6, "july": 7, "august": 8, "september": 9, "october": 10,
	"november": 11, "december": 12,
}

// documentPeriod derives the dataset partition from the file name
// ("Kale 2025 Ocak.pdf"), falling back to the ingestion date for the
// parts the name does not carry.
func (c *Canonicalizer) documentPeriod(name string) (year, month int) {
	stem := fileStem(name)
	if m := headerYear.FindStringSubmatch(stem); m != nil {
		year, _ = strconv.Atoi(m[1])
	}
	folded := headers.Normalize(stem)
	for _, tok := range strings.Fields(folded) {
		if m, ok := monthNames[tok]; ok {
			month = m
			break
		}
	}

	now := c.now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	return year, month
}

func fileStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
