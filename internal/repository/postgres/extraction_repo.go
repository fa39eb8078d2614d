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

type extractionRepo struct {
	db *sqlx.DB
}

// NewExtractionRepo creates a new PostgreSQL-backed ExtractionRepository.
func NewExtractionRepo(db *sqlx.DB) port.ExtractionRepository {
	return &extractionRepo{db: db}
}

// Create inserts the extraction and its flattened rows in one transaction.
// The version is assigned here: one past the document's current highest.
func (r *extractionRepo) Create(ctx context.Context, ex *domain.Extraction, fields []domain.FieldEvidenceRow, items []domain.LineItemRow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("extractionRepo.Create begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &ex.Version,
		"SELECT COALESCE(MAX(version), 0) + 1 FROM extractions WHERE document_id = $1",
		ex.DocumentID)
	if err != nil {
		return fmt.Errorf("extractionRepo.Create version: %w", err)
	}

	ex.CreatedAt = time.Now().UTC()
	err = tx.GetContext(ctx, &ex.ID,
		`INSERT INTO extractions (
			document_id, version, review_state, payload,
			model_used, decision, confidence, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		ex.DocumentID, ex.Version, ex.ReviewState, ex.Payload,
		ex.ModelUsed, ex.Decision, ex.Confidence, ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("extractionRepo.Create: %w", err)
	}

	for i := range fields {
		fields[i].ExtractionID = ex.ID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO field_evidences (
				extraction_id, field_name, field_value, confidence, score,
				method, valid, quote, evidence, page_number
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			fields[i].ExtractionID, fields[i].FieldName, fields[i].FieldValue,
			fields[i].Confidence, fields[i].Score, fields[i].Method,
			fields[i].Valid, fields[i].Quote, fields[i].Evidence, fields[i].PageNumber)
		if err != nil {
			return fmt.Errorf("extractionRepo.Create field %s: %w", fields[i].FieldName, err)
		}
	}

	for i := range items {
		items[i].ExtractionID = ex.ID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO extraction_line_items (
				extraction_id, row_index, service, code, amount,
				confidence, score, quote, evidence, page_number
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			items[i].ExtractionID, items[i].RowIndex, items[i].Service,
			items[i].Code, items[i].Amount, items[i].Confidence,
			items[i].Score, items[i].Quote, items[i].Evidence, items[i].PageNumber)
		if err != nil {
			return fmt.Errorf("extractionRepo.Create line item %d: %w", items[i].RowIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("extractionRepo.Create commit: %w", err)
	}
	return nil
}

func (r *extractionRepo) GetLatest(ctx context.Context, documentID uuid.UUID) (*domain.Extraction, error) {
	var ex domain.Extraction
	err := r.db.GetContext(ctx, &ex,
		`SELECT * FROM extractions WHERE document_id = $1
		 ORDER BY version DESC LIMIT 1`,
		documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExtractionNotFound
		}
		return nil, fmt.Errorf("extractionRepo.GetLatest: %w", err)
	}
	return &ex, nil
}

func (r *extractionRepo) GetVersion(ctx context.Context, documentID uuid.UUID, version int) (*domain.Extraction, error) {
	var ex domain.Extraction
	err := r.db.GetContext(ctx, &ex,
		"SELECT * FROM extractions WHERE document_id = $1 AND version = $2",
		documentID, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExtractionNotFound
		}
		return nil, fmt.Errorf("extractionRepo.GetVersion: %w", err)
	}
	return &ex, nil
}

func (r *extractionRepo) ListVersions(ctx context.Context, documentID uuid.UUID) ([]domain.Extraction, error) {
	var exs []domain.Extraction
	err := r.db.SelectContext(ctx, &exs,
		"SELECT * FROM extractions WHERE document_id = $1 ORDER BY version ASC",
		documentID)
	if err != nil {
		return nil, fmt.Errorf("extractionRepo.ListVersions: %w", err)
	}
	return exs, nil
}

func (r *extractionRepo) UpdateReview(ctx context.Context, ex *domain.Extraction) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE extractions SET review_state = $1, payload = $2 WHERE id = $3",
		ex.ReviewState, ex.Payload, ex.ID)
	if err != nil {
		return fmt.Errorf("extractionRepo.UpdateReview: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrExtractionNotFound
	}
	return nil
}

func (r *extractionRepo) ListFieldEvidence(ctx context.Context, extractionID int64) ([]domain.FieldEvidenceRow, error) {
	var rows []domain.FieldEvidenceRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM field_evidences WHERE extraction_id = $1 ORDER BY id ASC",
		extractionID)
	if err != nil {
		return nil, fmt.Errorf("extractionRepo.ListFieldEvidence: %w", err)
	}
	return rows, nil
}

func (r *extractionRepo) ListLineItems(ctx context.Context, extractionID int64) ([]domain.LineItemRow, error) {
	var rows []domain.LineItemRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM extraction_line_items WHERE extraction_id = $1 ORDER BY row_index ASC",
		extractionID)
	if err != nil {
		return nil, fmt.Errorf("extractionRepo.ListLineItems: %w", err)
	}
	return rows, nil
}
