package port

import (
	"context"

	"claimlens/internal/domain"
)

// EmailSender defines the contract for operational notifications.
type EmailSender interface {
	// SendReviewRequested notifies the review inbox that a document needs
	// human attention.
	SendReviewRequested(ctx context.Context, to string, doc *domain.Document, reasons []string) error
	// SendProcessingFailed notifies the review inbox that a document
	// could not be processed at all.
	SendProcessingFailed(ctx context.Context, to string, doc *domain.Document, message string) error
}
