package port

import (
	"context"

	"github.com/google/uuid"

	"claimlens/internal/domain"
)

// ExtractionRepository defines the contract for extraction persistence.
// Extractions are versioned per document; version numbers are assigned by
// the repository on insert.
type ExtractionRepository interface {
	// Create inserts the extraction together with its flattened field
	// evidence and line-item rows in one transaction.
	Create(ctx context.Context, ex *domain.Extraction, fields []domain.FieldEvidenceRow, items []domain.LineItemRow) error
	GetLatest(ctx context.Context, documentID uuid.UUID) (*domain.Extraction, error)
	GetVersion(ctx context.Context, documentID uuid.UUID, version int) (*domain.Extraction, error)
	ListVersions(ctx context.Context, documentID uuid.UUID) ([]domain.Extraction, error)
	// UpdateReview persists ex's review state and payload on the same
	// version row.
	UpdateReview(ctx context.Context, ex *domain.Extraction) error
	ListFieldEvidence(ctx context.Context, extractionID int64) ([]domain.FieldEvidenceRow, error)
	ListLineItems(ctx context.Context, extractionID int64) ([]domain.LineItemRow, error)
}
