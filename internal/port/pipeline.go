package port

import (
	"context"

	"github.com/google/uuid"

	"claimlens/internal/domain"
)

// ExtractionPipeline runs the extraction chain over a document's prepared
// pages. It returns a complete result or a fatal error, never a partial
// result.
type ExtractionPipeline interface {
	Process(ctx context.Context, documentID uuid.UUID, pages []domain.RawPage, typeHint string) (*domain.ExtractionResult, error)
}
