package port

import (
	"context"

	"claimlens/internal/domain"
	"claimlens/internal/schema"
)

// ExtractInput carries the evidence a field extraction strategy works from.
type ExtractInput struct {
	Schema   *schema.DocumentTypeSchema
	Pages    []domain.PageEvidence
	FullText string
}

// ExtractOutput is one strategy's proposal: a candidate for each schema
// field plus any line items the document yielded. Strategies report a
// field they could not find as a candidate with a nil value and zero
// confidence rather than omitting it.
type ExtractOutput struct {
	Fields    []domain.FieldCandidate
	LineItems []domain.LineItem
	ModelUsed string
}

// FieldExtractor abstracts a field extraction strategy.
type FieldExtractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
}
