// Package normalize holds locale-aware price parsing and code/description
// splitting for raw extracted cell text.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/smartprice/pricelist/internal/common"
)

// Style selects the decimal-separator convention of the source document.
type Style string

const (
	// StyleEU treats '.' as thousands separator and ',' as decimal separator.
	StyleEU Style = "eu"
	// StyleEN inverts StyleEU.
	StyleEN Style = "en"
)

// ParseStyle maps a config string onto a Style, defaulting to StyleEU.
func ParseStyle(s string) Style {
	if Style(s) == StyleEN {
		return StyleEN
	}
	return StyleEU
}

var nonNumeric = regexp.MustCompile(`[^\d,.]+`)

// ParsePrice converts raw price text into a numeric value. Currency
// symbols and whitespace are stripped first. A NormalizationError is
// returned when nothing numeric remains; callers leave the field blank
// rather than abort the batch.
func ParsePrice(text string, style Style) (float64, error) {
	s := nonNumeric.ReplaceAllString(strings.TrimSpace(text), "")
	if s == "" {
		return 0, common.NormalizationError("no numeric content in %q", text)
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch style {
	case StyleEN:
		if hasComma && hasDot {
			if strings.LastIndex(s, ",") < strings.LastIndex(s, ".") {
				s = strings.ReplaceAll(s, ",", "")
			} else {
				s = strings.ReplaceAll(s, ".", "")
				s = strings.ReplaceAll(s, ",", ".")
			}
		} else if hasComma {
			s = strings.ReplaceAll(s, ",", "")
		}
	default: // StyleEU
		if hasComma && hasDot {
			if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
				s = strings.ReplaceAll(s, ".", "")
				s = strings.ReplaceAll(s, ",", ".")
			}
		} else if hasComma {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, common.NormalizationError("unparseable price %q", text)
	}
	return v, nil
}

// DetectCurrency guesses a currency from a text snippet, returning ""
// when nothing recognizable appears.
func DetectCurrency(text string) string {
	if text == "" {
		return ""
	}
	up := strings.ToUpper(text)
	switch {
	case strings.Contains(up, "EUR") || strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(up, "USD") || strings.Contains(text, "$"):
		return "USD"
	case strings.Contains(up, "TL") || strings.Contains(up, "TRY") || strings.Contains(text, "₺"):
		return "TRY"
	}
	return ""
}

// NormalizeCurrency collapses currency spellings to a single symbol.
// Unknown values return "".
func NormalizeCurrency(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TL", "TRY", "₺":
		return "₺"
	case "USD", "$":
		return "$"
	case "EUR", "€":
		return "€"
	}
	return ""
}
