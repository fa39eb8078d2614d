// Package pattern implements the deterministic label-proximity extraction
// strategy. It needs no network and never fails, which makes it the
// terminal strategy of the extraction chain.
package pattern

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"claimlens/internal/domain"
	"claimlens/internal/extract"
	"claimlens/internal/port"
	"claimlens/internal/schema"
)

// lineItemPattern matches "<service> <code> <amount>" rows, e.g.
// "Office Visit 99213 $125.00".
var lineItemPattern = regexp.MustCompile(`([A-Za-z][A-Za-z0-9\s\-]{2,40})\s+([A-Z0-9]{3,12})\s+\$?([0-9]+\.[0-9]{2})`)

// Config tunes the deterministic extractor.
type Config struct {
	FoundConfidence    float64 // confidence for a pattern hit, default 0.55
	LineItemConfidence float64 // confidence per matched row, default 0.5
	MaxLineItems       int     // row cap, default 20
}

// Extractor implements port.FieldExtractor by matching each schema
// field's label-proximity pattern against the document text.
type Extractor struct {
	cfg Config
}

// New creates a pattern extractor, applying defaults for unset values.
func New(cfg Config) *Extractor {
	if cfg.FoundConfidence <= 0 {
		cfg.FoundConfidence = 0.55
	}
	if cfg.LineItemConfidence <= 0 {
		cfg.LineItemConfidence = 0.5
	}
	if cfg.MaxLineItems <= 0 {
		cfg.MaxLineItems = 20
	}
	return &Extractor{cfg: cfg}
}

func (e *Extractor) Extract(_ context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	out := &port.ExtractOutput{}
	for _, def := range input.Schema.Fields {
		out.Fields = append(out.Fields, e.extractField(def, input))
	}
	if input.Schema.HasLineItems {
		out.LineItems = e.extractLineItems(input)
	}
	return out, nil
}

// extractField returns an absent candidate (nil value, zero confidence)
// when the field's pattern does not match.
func (e *Extractor) extractField(def schema.FieldDef, input port.ExtractInput) domain.FieldCandidate {
	cand := domain.FieldCandidate{Name: def.Name, Method: domain.MethodFallback}

	m := def.Pattern.FindStringSubmatch(input.FullText)
	if m == nil {
		return cand
	}

	quote := strings.TrimSpace(m[0])
	value := quote
	if len(m) > 1 {
		value = strings.TrimSpace(m[1])
	}
	if def.Kind == domain.FieldKindAmount {
		amt := extract.SafeAmount(value)
		if amt == nil {
			return cand
		}
		value = strconv.FormatFloat(*amt, 'f', -1, 64)
	}
	if value == "" {
		return cand
	}

	cand.Value = &value
	cand.Confidence = e.cfg.FoundConfidence
	cand.Evidence = []domain.EvidenceRef{extract.ResolveQuote(quote, input.Pages)}
	return cand
}

func (e *Extractor) extractLineItems(input port.ExtractInput) []domain.LineItem {
	var rows []domain.LineItem
	for _, m := range lineItemPattern.FindAllStringSubmatch(input.FullText, -1) {
		service := strings.TrimSpace(m[1])
		code := strings.TrimSpace(m[2])
		amount, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		rows = append(rows, domain.LineItem{
			Service:    &service,
			Code:       &code,
			Amount:     &amount,
			Method:     domain.MethodFallback,
			Confidence: e.cfg.LineItemConfidence,
			Evidence:   []domain.EvidenceRef{extract.ResolveQuote(m[0], input.Pages)},
		})
		if len(rows) >= e.cfg.MaxLineItems {
			break
		}
	}
	return rows
}
