package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"claimlens/internal/schema"
)

// ResponseSchema returns the JSON Schema a model reply must satisfy for
// the given document type. Unknown field names are tolerated and dropped
// during mapping; the schema only pins the shape of what is present.
func ResponseSchema(sch *schema.DocumentTypeSchema) map[string]any {
	fieldProps := map[string]any{}
	for _, name := range sch.FieldNames() {
		fieldProps[name] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value":      map[string]any{"type": []string{"string", "number", "null"}},
				"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"quote":      map[string]any{"type": []string{"string", "null"}},
			},
			"required": []string{"value", "confidence"},
		}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":       "object",
				"properties": fieldProps,
			},
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"service":    map[string]any{"type": []string{"string", "null"}},
						"code":       map[string]any{"type": []string{"string", "null"}},
						"amount":     map[string]any{"type": []string{"number", "string", "null"}},
						"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
						"quote":      map[string]any{"type": []string{"string", "null"}},
					},
					"required": []string{"confidence"},
				},
			},
		},
		"required": []string{"fields"},
	}
}

// ValidateResponse validates a raw model reply against the response
// schema for the given document type.
func ValidateResponse(sch *schema.DocumentTypeSchema, data []byte) error {
	b, err := json.Marshal(ResponseSchema(sch))
	if err != nil {
		return fmt.Errorf("extract.ValidateResponse: marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("extract.ValidateResponse: add schema: %w", err)
	}
	compiled, err := compiler.Compile("response.json")
	if err != nil {
		return fmt.Errorf("extract.ValidateResponse: compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("extract.ValidateResponse: unmarshal reply: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("extract.ValidateResponse: reply does not match schema: %w", err)
	}
	return nil
}
