// Package llm talks to chat/vision model backends and decodes their
// structured price-list output.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string or number into a string, because
// models emit prices and short codes either way.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexInt decodes a JSON number or numeric string into an int.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("page number %q: %w", s, err)
	}
	*f = FlexInt(int(v))
	return nil
}

// ProductRow is one element of the model's "products" array.
type ProductRow struct {
	MaterialCode FlexString `json:"Malzeme_Kodu"`
	ShortCode    FlexString `json:"Kisa_Kod,omitempty"`
	Description  string     `json:"Açıklama,omitempty"`
	Price        FlexString `json:"Fiyat"`
	Currency     string     `json:"Para_Birimi,omitempty"`
	Brand        string     `json:"Marka,omitempty"`
	SourceFile   string     `json:"Kaynak_Dosya,omitempty"`
	Page         FlexInt    `json:"Sayfa,omitempty"`
	RecordCode   string     `json:"Record_Code,omitempty"`
	MainHeading  string     `json:"Ana_Baslik,omitempty"`
	SubHeading   string     `json:"Alt_Baslik,omitempty"`
	SubHeading2  string     `json:"Alt_Baslik2,omitempty"`
	ImagePath    string     `json:"Image_Path,omitempty"`
}

// ProductsResponse is the root object of the structured output contract.
type ProductsResponse struct {
	Products []ProductRow `json:"products"`
}

// ModelClient is the slice of the model backend the pipeline depends on.
type ModelClient interface {
	// CompleteJSON sends a text prompt and returns the raw response body.
	CompleteJSON(ctx context.Context, prompt string) (string, error)
	// CompleteVisionJSON sends a prompt plus one page image.
	CompleteVisionJSON(ctx context.Context, prompt string, imagePNG []byte) (string, error)
	// ModelName reports the configured model for diagnostics.
	ModelName() string
}

// ParseProducts cleans, validates and decodes a model response. A
// response that fails to parse or validate is a zero-row result for the
// page, never a pipeline error, so the only error returned here is for
// the caller's diagnostic note.
func ParseProducts(raw string) ([]ProductRow, error) {
	cleaned := []byte(CleanJSON(raw))
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("empty model response")
	}
	if err := ValidateJSONAgainstSchema(BuildProductsJSONSchema(), cleaned); err != nil {
		return nil, err
	}
	var out ProductsResponse
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	return out.Products, nil
}
