package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildProductsJSONSchema returns the JSON-Schema (draft 2020-12 subset)
// for the model's structured output: a root object whose "products"
// array holds one element per extracted row. The same map is embedded in
// the prompt and used to validate the response locally.
func BuildProductsJSONSchema() map[string]any {
	strOrNum := map[string]any{"type": []string{"string", "number"}}

	itemProps := map[string]any{
		"Malzeme_Kodu": map[string]any{"type": "string"},
		"Kisa_Kod":     strOrNum,
		"Açıklama":     map[string]any{"type": "string"},
		"Fiyat":        strOrNum,
		"Para_Birimi":  map[string]any{"type": "string"},
		"Marka":        map[string]any{"type": "string"},
		"Kaynak_Dosya": map[string]any{"type": "string"},
		"Sayfa":        strOrNum,
		"Record_Code":  map[string]any{"type": "string"},
		"Ana_Baslik":   map[string]any{"type": "string"},
		"Alt_Baslik":   map[string]any{"type": "string"},
		"Alt_Baslik2":  map[string]any{"type": "string"},
		"Image_Path":   map[string]any{"type": "string"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"products"},
		"properties": map[string]any{
			"products": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"Malzeme_Kodu", "Fiyat"},
					"properties":           itemProps,
				},
			},
		},
	}
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
