package llm

import (
	"encoding/json"
	"strings"

	"github.com/smartprice/pricelist/internal/brand"
)

// PromptRequest carries the document context a prompt is built from.
type PromptRequest struct {
	SourceFile string
	Page       int
	Profile    brand.Profile
	// OCRText is set for the text-completion path and empty for vision.
	OCRText string
}

const promptPreamble = `You are a price-list extraction assistant. The input is one page of a
vendor price list. Extract every real product row and nothing else:
table headers, section headings, footnotes and page notes are never
product rows. Headers may be Turkish, English or mixed; recognize the
header and assign values to the right field.`

const promptRules = `Rules:
- Malzeme_Kodu and Fiyat are mandatory for a row; omit rows missing either.
- Record the main heading a row sits under as Ana_Baslik and the
  sub-heading as Alt_Baslik (Alt_Baslik2 for a second level, if present).
- Keep Fiyat exactly as printed, including its decimal separator.
- If one code row carries several price columns, emit one product per
  price column with the column title appended to the code ("DK24 - Plastik").
- Unknown fields are empty strings. Never output null. Never invent values.
Return ONLY a JSON object with the root key "products" matching this schema:`

// BuildPrompt assembles the brand-aware extraction prompt for one page.
// The profile's override text, when present, takes precedence over the
// generic instructions, mirroring the per-brand extraction guide.
func BuildPrompt(req PromptRequest) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n")

	if req.Profile.PromptOverride != "" {
		b.WriteString("Brand-specific instructions for ")
		b.WriteString(req.Profile.Name)
		b.WriteString(":\n")
		b.WriteString(req.Profile.PromptOverride)
		b.WriteString("\n\n")
	}
	if req.Profile.DefaultCurrency != "" {
		b.WriteString("When no currency is visible, use ")
		b.WriteString(req.Profile.DefaultCurrency)
		b.WriteString(" for Para_Birimi.\n")
	}
	if len(req.Profile.MainHeadingRules) > 0 {
		b.WriteString("Lines containing these markers are headings, not products: ")
		b.WriteString(strings.Join(req.Profile.MainHeadingRules, ", "))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(promptRules)
	b.WriteString("\n")
	b.WriteString(mustJSON(BuildProductsJSONSchema()))

	if req.OCRText != "" {
		b.WriteString("\n\nOCR text of the page:\n")
		b.WriteString(truncate(req.OCRText, 6000))
	}
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n...(truncated)"
}
