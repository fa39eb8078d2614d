package noop

import (
	"context"
	"log"
	"strings"

	"claimlens/internal/domain"
	"claimlens/internal/port"
)

type noopSender struct {
	frontendURL string
}

// NewNoopSender creates a no-op EmailSender that logs notifications to stdout.
func NewNoopSender(frontendURL string) port.EmailSender {
	return &noopSender{frontendURL: frontendURL}
}

func (s *noopSender) SendReviewRequested(_ context.Context, to string, doc *domain.Document, reasons []string) error {
	log.Printf("[NOOP EMAIL] Review requested for %s to %s: %s/review/%s (reasons: %s)",
		doc.OriginalFilename, to, s.frontendURL, doc.ID, strings.Join(reasons, ", "))
	return nil
}

func (s *noopSender) SendProcessingFailed(_ context.Context, to string, doc *domain.Document, message string) error {
	log.Printf("[NOOP EMAIL] Processing failed for %s to %s: %s", doc.OriginalFilename, to, message)
	return nil
}
