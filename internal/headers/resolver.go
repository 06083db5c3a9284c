// Package headers maps vendor-specific column headers onto canonical fields.
package headers

import (
	"strings"
	"unicode"

	"github.com/smartprice/pricelist/constants"
)

// Synonym sets per canonical field. Matching is exact or normalized; the
// resolver never guesses from fuzzy similarity. An unmapped header stays
// unresolved so its values cannot corrupt price/code data downstream.
var synonyms = map[constants.Field][]string{
	constants.FieldMaterialCode: {
		"ürün kodu", "urun kodu", "malzeme kodu", "malzeme", "stok kodu",
		"kod", "tip", "ref no", "ref.", "ürün ref", "ürün tip",
		"product code", "part no", "item name", "item no", "item number",
		"item #", "item code", "stock code", "code",
	},
	constants.FieldShortCode: {
		"kısa kod", "kisa kod", "short code", "shortcode", "kısa ürün kodu",
	},
	constants.FieldDescription: {
		"description", "ürün açıklaması", "açıklama", "aciklama",
		"özellikler", "detay", "explanation",
	},
	constants.FieldPrice: {
		"fiyat", "birim fiyat", "liste fiyatı", "price", "unit price",
		"list price", "tutar", "amount",
	},
	constants.FieldCurrency: {
		"para birimi", "currency",
	},
	constants.FieldMainHeading: {
		"ana başlık", "ana baslik", "ana_baslik",
	},
	constants.FieldSubHeading: {
		"alt başlık", "alt baslik", "alt_baslik",
	},
	constants.FieldSubHeading2: {
		"alt başlık 2", "alt baslik 2", "alt başlık2", "alt baslik2",
	},
	constants.FieldBrand: {
		"marka", "brand",
	},
}

// Resolver maps arbitrary header text to canonical field names.
type Resolver struct {
	table map[string]constants.Field
}

// NewResolver builds the lookup table from the declared synonym sets.
func NewResolver() *Resolver {
	table := make(map[string]constants.Field)
	for field, variants := range synonyms {
		table[Normalize(string(field))] = field
		for _, v := range variants {
			table[Normalize(v)] = field
		}
	}
	return &Resolver{table: table}
}

// Resolve returns the canonical field a header denotes. ok is false when
// no declared synonym matches; the caller keeps the raw header in
// provenance and writes nothing into canonical fields.
func (r *Resolver) Resolve(header string) (constants.Field, bool) {
	f, ok := r.table[Normalize(header)]
	return f, ok
}

// Normalize casefolds a header for table lookup: underscores become
// spaces, Turkish diacritics fold to ASCII, whitespace collapses.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		r = foldRune(r)
		if unicode.IsSpace(r) {
			if !prevSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func foldRune(r rune) rune {
	switch r {
	case 'ç':
		return 'c'
	case 'ğ':
		return 'g'
	case 'ı', 'i':
		return 'i'
	case 'ö':
		return 'o'
	case 'ş':
		return 's'
	case 'ü':
		return 'u'
	}
	return r
}
