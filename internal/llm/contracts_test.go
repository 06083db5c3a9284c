package llm

import (
	"strings"
	"testing"
)

func TestParseProductsAcceptsStringOrNumberFields(t *testing.T) {
	raw := "```json\n" + `{
  "products": [
    {"Malzeme_Kodu": "KFC250-038", "Açıklama": "Valve Body", "Fiyat": "1.234,56", "Sayfa": "3"},
    {"Malzeme_Kodu": "DK24-100", "Fiyat": 89.9, "Sayfa": 4}
  ]
}` + "\n```"

	products, err := ParseProducts(raw)
	if err != nil {
		t.Fatalf("ParseProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if products[0].Price != "1.234,56" || int(products[0].Page) != 3 {
		t.Errorf("string fields = %q / %d", products[0].Price, products[0].Page)
	}
	if products[1].Price != "89.9" || int(products[1].Page) != 4 {
		t.Errorf("numeric fields = %q / %d", products[1].Price, products[1].Page)
	}
}

func TestParseProductsRejectsMissingMandatoryFields(t *testing.T) {
	raw := `{"products": [{"Açıklama": "Valve Body"}]}`
	if _, err := ParseProducts(raw); err == nil {
		t.Fatal("want schema rejection for a row without code and price")
	}
}

func TestParseProductsRejectsUnknownRootKey(t *testing.T) {
	raw := `{"rows": []}`
	if _, err := ParseProducts(raw); err == nil {
		t.Fatal("want schema rejection for missing products key")
	}
}

func TestParseProductsRejectsProse(t *testing.T) {
	if _, err := ParseProducts("I could not find any products on this page."); err == nil {
		t.Fatal("want error for non-JSON response")
	}
}

func TestParseProductsRejectsEmptyResponse(t *testing.T) {
	_, err := ParseProducts("")
	if err == nil || !strings.Contains(err.Error(), "empty model response") {
		t.Errorf("err = %v", err)
	}
}
