package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document represents an ingested source document and its processing state.
type Document struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	OriginalFilename string         `db:"original_filename" json:"original_filename"`
	ContentType      string         `db:"content_type" json:"content_type"`
	FileType         FileType       `db:"file_type" json:"file_type"`
	FileSize         int64          `db:"file_size" json:"file_size"`
	S3Bucket         string         `db:"s3_bucket" json:"s3_bucket"`
	S3Key            string         `db:"s3_key" json:"s3_key"`
	PageCount        int            `db:"page_count" json:"page_count"`
	Status           DocumentStatus `db:"status" json:"status"`
	TypeHint         string         `db:"type_hint" json:"type_hint,omitempty"`
	DocumentType     *DocumentType  `db:"document_type" json:"document_type"`
	ConfidenceScore  *float64       `db:"confidence_score" json:"confidence_score"`
	ErrorMessage     string         `db:"error_message" json:"error_message"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Extraction is one versioned extraction run for a document. Payload holds
// the full ExtractionResult as produced by the pipeline; review edits
// replace the payload on the same version.
type Extraction struct {
	ID          int64           `db:"id" json:"id"`
	DocumentID  uuid.UUID       `db:"document_id" json:"document_id"`
	Version     int             `db:"version" json:"version"`
	ReviewState ReviewState     `db:"review_state" json:"review_state"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	ModelUsed   string          `db:"model_used" json:"model_used"`
	Decision    RouteDecision   `db:"decision" json:"decision"`
	Confidence  float64         `db:"confidence" json:"confidence"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// FieldEvidenceRow is a flattened, queryable projection of one field's
// value and its strongest supporting evidence. Evidence holds the full
// marshaled reference list; Quote and PageNumber mirror the first ref.
type FieldEvidenceRow struct {
	ID           int64            `db:"id" json:"id"`
	ExtractionID int64            `db:"extraction_id" json:"extraction_id"`
	FieldName    string           `db:"field_name" json:"field_name"`
	FieldValue   *string          `db:"field_value" json:"field_value"`
	Confidence   float64          `db:"confidence" json:"confidence"`
	Score        float64          `db:"score" json:"score"`
	Method       ExtractionMethod `db:"method" json:"method"`
	Valid        bool             `db:"valid" json:"valid"`
	Quote        *string          `db:"quote" json:"quote"`
	Evidence     json.RawMessage  `db:"evidence" json:"evidence,omitempty"`
	PageNumber   *int             `db:"page_number" json:"page_number"`
}

// LineItemRow is the persisted form of one scored line item.
type LineItemRow struct {
	ID           int64           `db:"id" json:"id"`
	ExtractionID int64           `db:"extraction_id" json:"extraction_id"`
	RowIndex     int             `db:"row_index" json:"row_index"`
	Service      *string         `db:"service" json:"service"`
	Code         *string         `db:"code" json:"code"`
	Amount       *float64        `db:"amount" json:"amount"`
	Confidence   float64         `db:"confidence" json:"confidence"`
	Score        float64         `db:"score" json:"score"`
	Quote        *string         `db:"quote" json:"quote"`
	Evidence     json.RawMessage `db:"evidence" json:"evidence,omitempty"`
	PageNumber   *int            `db:"page_number" json:"page_number"`
}

// ReviewQueueItem is the summary shape served to reviewers.
type ReviewQueueItem struct {
	DocumentID       uuid.UUID      `db:"id" json:"document_id"`
	OriginalFilename string         `db:"original_filename" json:"original_filename"`
	DocumentType     *DocumentType  `db:"document_type" json:"document_type"`
	ConfidenceScore  *float64       `db:"confidence_score" json:"confidence_score"`
	Status           DocumentStatus `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// ExportRow pairs a document with its latest extraction for report
// generation. Extraction is nil when the document has not been processed.
type ExportRow struct {
	Document   Document    `json:"document"`
	Extraction *Extraction `json:"extraction,omitempty"`
}
