package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"claimlens/internal/domain"
	"claimlens/internal/port"
)

// ApproveInput is the DTO for approving a document under review.
// Corrections maps field names to reviewer-supplied values; corrected
// fields are stored with full confidence and the manual method.
type ApproveInput struct {
	DocumentID  uuid.UUID
	Corrections map[string]string
}

// ReviewService defines the human-review contract.
type ReviewService interface {
	Queue(ctx context.Context, offset, limit int) ([]domain.ReviewQueueItem, int, error)
	Approve(ctx context.Context, input ApproveInput) (*domain.Extraction, error)
	Reject(ctx context.Context, docID uuid.UUID) (*domain.Extraction, error)
}

type reviewService struct {
	docRepo port.DocumentRepository
	exRepo  port.ExtractionRepository
}

// NewReviewService creates a new ReviewService implementation.
func NewReviewService(docRepo port.DocumentRepository, exRepo port.ExtractionRepository) ReviewService {
	return &reviewService{docRepo: docRepo, exRepo: exRepo}
}

func (s *reviewService) Queue(ctx context.Context, offset, limit int) ([]domain.ReviewQueueItem, int, error) {
	return s.docRepo.ListReviewQueue(ctx, offset, limit)
}

// Approve resolves a review. Corrections replace the stored payload on
// the latest extraction version; the machine's flattened evidence rows are
// left as recorded.
func (s *reviewService) Approve(ctx context.Context, input ApproveInput) (*domain.Extraction, error) {
	ex, err := s.reviewable(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	if len(input.Corrections) > 0 {
		corrected, err := applyCorrections(ex.Payload, input.Corrections)
		if err != nil {
			return nil, err
		}
		ex.Payload = corrected
	}

	ex.ReviewState = domain.ReviewApproved
	if err := s.exRepo.UpdateReview(ctx, ex); err != nil {
		return nil, fmt.Errorf("approving extraction: %w", err)
	}

	if err := s.docRepo.UpdateStatus(ctx, input.DocumentID, domain.StatusReviewed); err != nil {
		return nil, fmt.Errorf("marking document reviewed: %w", err)
	}

	log.Printf("reviewService.Approve: document %s approved (version %d, %d corrections)",
		input.DocumentID, ex.Version, len(input.Corrections))
	return ex, nil
}

func (s *reviewService) Reject(ctx context.Context, docID uuid.UUID) (*domain.Extraction, error) {
	ex, err := s.reviewable(ctx, docID)
	if err != nil {
		return nil, err
	}

	ex.ReviewState = domain.ReviewRejected
	if err := s.exRepo.UpdateReview(ctx, ex); err != nil {
		return nil, fmt.Errorf("rejecting extraction: %w", err)
	}

	if err := s.docRepo.UpdateStatus(ctx, docID, domain.StatusRejected); err != nil {
		return nil, fmt.Errorf("marking document rejected: %w", err)
	}

	log.Printf("reviewService.Reject: document %s rejected (version %d)", docID, ex.Version)
	return ex, nil
}

// reviewable loads the latest extraction of a document that is awaiting
// review.
func (s *reviewService) reviewable(ctx context.Context, docID uuid.UUID) (*domain.Extraction, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusReviewRequired {
		return nil, domain.ErrDocumentNotReviewable
	}
	return s.exRepo.GetLatest(ctx, docID)
}

// applyCorrections rewrites the named fields inside the result payload.
// A corrected field carries the reviewer's value at full confidence with
// no violations.
func applyCorrections(payload json.RawMessage, corrections map[string]string) (json.RawMessage, error) {
	var res domain.ExtractionResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("unmarshaling extraction payload: %w", err)
	}

	for name, value := range corrections {
		f := res.Field(name)
		if f == nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownField, name)
		}
		v := value
		f.Value = &v
		f.Method = domain.MethodManual
		f.Confidence = 1.0
		f.Score = 1.0
		f.Valid = true
		f.Violations = nil
		f.Evidence = nil
	}

	return json.Marshal(&res)
}
