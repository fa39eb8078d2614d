package port

import (
	"context"

	"github.com/google/uuid"

	"claimlens/internal/domain"
)

// DocumentRepository defines the contract for document persistence.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	// List returns documents newest first, optionally filtered by status.
	List(ctx context.Context, status *domain.DocumentStatus, offset, limit int) ([]domain.Document, int, error)
	// ListReviewQueue returns review_required documents newest first.
	ListReviewQueue(ctx context.Context, offset, limit int) ([]domain.ReviewQueueItem, int, error)
	// ClaimQueued atomically moves up to limit uploaded documents to
	// processing and returns them. Concurrent workers never claim the
	// same document twice.
	ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error)
	// UpdateProcessingResult persists the outcome of a pipeline run:
	// status, document type, confidence, and error message.
	UpdateProcessingResult(ctx context.Context, doc *domain.Document) error
	UpdateStatus(ctx context.Context, docID uuid.UUID, status domain.DocumentStatus) error
	MarkFailed(ctx context.Context, docID uuid.UUID, message string) error
	Delete(ctx context.Context, docID uuid.UUID) error
}
