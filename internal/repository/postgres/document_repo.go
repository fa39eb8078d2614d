package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"claimlens/internal/domain"
	"claimlens/internal/port"
)

type documentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
func NewDocumentRepo(db *sqlx.DB) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `INSERT INTO documents (
		id, original_filename, content_type, file_type, file_size,
		s3_bucket, s3_key, page_count, status, type_hint,
		document_type, confidence_score, error_message,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13,
		$14, $15
	)`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.OriginalFilename, doc.ContentType, doc.FileType, doc.FileSize,
		doc.S3Bucket, doc.S3Key, doc.PageCount, doc.Status, doc.TypeHint,
		doc.DocumentType, doc.ConfidenceScore, doc.ErrorMessage,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc,
		"SELECT * FROM documents WHERE id = $1", docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) List(ctx context.Context, status *domain.DocumentStatus, offset, limit int) ([]domain.Document, int, error) {
	var total int
	var docs []domain.Document

	if status != nil {
		err := r.db.GetContext(ctx, &total,
			"SELECT COUNT(*) FROM documents WHERE status = $1", *status)
		if err != nil {
			return nil, 0, fmt.Errorf("documentRepo.List count: %w", err)
		}
		err = r.db.SelectContext(ctx, &docs,
			`SELECT * FROM documents WHERE status = $1
			 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			*status, limit, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("documentRepo.List: %w", err)
		}
		return docs, total, nil
	}

	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM documents")
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List count: %w", err)
	}
	err = r.db.SelectContext(ctx, &docs,
		"SELECT * FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List: %w", err)
	}
	return docs, total, nil
}

func (r *documentRepo) ListReviewQueue(ctx context.Context, offset, limit int) ([]domain.ReviewQueueItem, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM documents WHERE status = $1", domain.StatusReviewRequired)
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.ListReviewQueue count: %w", err)
	}

	var items []domain.ReviewQueueItem
	err = r.db.SelectContext(ctx, &items,
		`SELECT id, original_filename, document_type, confidence_score, status, created_at
		 FROM documents WHERE status = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		domain.StatusReviewRequired, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.ListReviewQueue: %w", err)
	}
	return items, total, nil
}

func (r *documentRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		`UPDATE documents SET status = $1, updated_at = $2
		 WHERE id IN (
			SELECT id FROM documents WHERE status = $3
			ORDER BY created_at ASC LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.StatusProcessing, time.Now().UTC(), domain.StatusUploaded, limit)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ClaimQueued: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) UpdateProcessingResult(ctx context.Context, doc *domain.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET
			status = $1, document_type = $2, confidence_score = $3,
			page_count = $4, error_message = $5, updated_at = $6
		 WHERE id = $7`,
		doc.Status, doc.DocumentType, doc.ConfidenceScore,
		doc.PageCount, doc.ErrorMessage, doc.UpdatedAt,
		doc.ID)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateProcessingResult: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, docID uuid.UUID, status domain.DocumentStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3",
		status, time.Now().UTC(), docID)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepo) MarkFailed(ctx context.Context, docID uuid.UUID, message string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, error_message = $2, updated_at = $3
		 WHERE id = $4`,
		domain.StatusFailed, message, time.Now().UTC(), docID)
	if err != nil {
		return fmt.Errorf("documentRepo.MarkFailed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, docID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		return fmt.Errorf("documentRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
