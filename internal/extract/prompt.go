package extract

import (
	"strings"

	"claimlens/internal/schema"
)

// BuildExtractionPrompt returns the model prompt for structured field
// extraction over the OCR text of a document of the given type.
func BuildExtractionPrompt(sch *schema.DocumentTypeSchema) string {
	docName := strings.ReplaceAll(string(sch.Type), "_", " ")

	prompt := `You are extracting structured data from the OCR text of a ` + docName + ` document.
Return JSON only with this format:
{
  "fields": {
    "<field_name>": {"value": "...", "confidence": 0.0-1.0, "quote": "short source text"}
  },
  "line_items": [
    {"service": "...", "code": "...", "amount": 0.0, "confidence": 0.0-1.0, "quote": "short source text"}
  ]
}

Use exactly these field names: ` + strings.Join(sch.FieldNames(), ", ") + `.
Use null for the value of any field the document does not contain, with confidence 0.
Copy each quote verbatim from the document text.`

	if !sch.HasLineItems {
		prompt += "\nThis document type has no itemized rows; return an empty line_items array."
	}

	prompt += "\n\nReturn ONLY valid JSON with no markdown formatting, no code fences, no explanation - just the raw JSON object."
	return prompt
}
