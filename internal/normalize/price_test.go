package normalize

import (
	"errors"
	"math"
	"testing"

	"github.com/smartprice/pricelist/internal/common"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in    string
		style Style
		want  float64
	}{
		{"1.234,56", StyleEU, 1234.56},
		{"1,234.56", StyleEN, 1234.56},
		{"1.234.567,89", StyleEU, 1234567.89},
		{"1234,5", StyleEU, 1234.5},
		{"1234.5", StyleEU, 1234.5},
		{"1,5", StyleEU, 1.5},
		{"1,500", StyleEN, 1500},
		{"€ 12,90", StyleEU, 12.90},
		{"12.90 TL", StyleEN, 12.90},
		{"  450 ", StyleEU, 450},
		{"$1,234.56", StyleEN, 1234.56},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in, tt.style)
		if err != nil {
			t.Errorf("ParsePrice(%q, %s) error: %v", tt.in, tt.style, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParsePrice(%q, %s) = %v, want %v", tt.in, tt.style, got, tt.want)
		}
	}
}

func TestParsePriceErrors(t *testing.T) {
	for _, in := range []string{"abc", "", "TL", "-"} {
		_, err := ParsePrice(in, StyleEU)
		if err == nil {
			t.Errorf("ParsePrice(%q) = nil error, want NormalizationError", in)
			continue
		}
		if !errors.Is(err, common.ErrNormalization) {
			t.Errorf("ParsePrice(%q) error %v is not ErrNormalization", in, err)
		}
	}
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12,90 €", "EUR"},
		{"USD 45", "USD"},
		{"120 TL", "TRY"},
		{"₺99", "TRY"},
		{"plain", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DetectCurrency(tt.in); got != tt.want {
			t.Errorf("DetectCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"TL", "₺"},
		{"try", "₺"},
		{"USD", "$"},
		{"€", "€"},
		{"GBP", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCurrency(tt.in); got != tt.want {
			t.Errorf("NormalizeCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
