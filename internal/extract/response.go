package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"claimlens/internal/domain"
	"claimlens/internal/port"
	"claimlens/internal/schema"
)

// modelField mirrors one field entry of a model reply.
type modelField struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Quote      string  `json:"quote"`
}

// modelLineItem mirrors one line_items row of a model reply.
type modelLineItem struct {
	Service    *string `json:"service"`
	Code       *string `json:"code"`
	Amount     any     `json:"amount"`
	Confidence float64 `json:"confidence"`
	Quote      string  `json:"quote"`
}

type modelReply struct {
	Fields    map[string]modelField `json:"fields"`
	LineItems []modelLineItem       `json:"line_items"`
}

// StripCodeFences removes a markdown code fence wrapper from a model
// reply, if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeModelReply validates a model reply and maps it onto one candidate
// per schema field, in schema order. Fields the model omitted come back
// absent with zero confidence; names outside the schema are dropped. A
// null value forces the candidate's confidence to zero regardless of what
// the model claimed.
func DecodeModelReply(sch *schema.DocumentTypeSchema, raw string, pages []domain.PageEvidence) (*port.ExtractOutput, error) {
	cleaned := []byte(StripCodeFences(raw))
	if err := ValidateResponse(sch, cleaned); err != nil {
		return nil, err
	}

	var reply modelReply
	if err := json.Unmarshal(cleaned, &reply); err != nil {
		return nil, fmt.Errorf("extract.DecodeModelReply: %w", err)
	}

	out := &port.ExtractOutput{}
	for _, name := range sch.FieldNames() {
		cand := domain.FieldCandidate{Name: name, Method: domain.MethodModel}
		if mf, ok := reply.Fields[name]; ok {
			cand.Value = coerceValue(mf.Value)
			if cand.Value != nil {
				cand.Confidence = clamp01(mf.Confidence)
			}
			if mf.Quote != "" {
				cand.Evidence = []domain.EvidenceRef{ResolveQuote(mf.Quote, pages)}
			}
		}
		out.Fields = append(out.Fields, cand)
	}

	for _, row := range reply.LineItems {
		item := domain.LineItem{
			Service:    trimPtr(row.Service),
			Code:       trimPtr(row.Code),
			Amount:     coerceAmount(row.Amount),
			Method:     domain.MethodModel,
			Confidence: clamp01(row.Confidence),
		}
		if row.Quote != "" {
			item.Evidence = []domain.EvidenceRef{ResolveQuote(row.Quote, pages)}
		}
		out.LineItems = append(out.LineItems, item)
	}
	return out, nil
}

var nonAmountChars = regexp.MustCompile(`[^0-9.]`)

// SafeAmount strips currency noise from a raw amount and parses what is
// left. Returns nil when nothing numeric remains.
func SafeAmount(raw string) *float64 {
	clean := nonAmountChars.ReplaceAllString(raw, "")
	if clean == "" {
		return nil
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil
	}
	return &v
}

func coerceValue(v any) *string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		return &s
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

func coerceAmount(v any) *float64 {
	switch t := v.(type) {
	case float64:
		f := t
		return &f
	case string:
		return SafeAmount(t)
	default:
		return nil
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
