package domain

import "github.com/google/uuid"

// RawPage is one page of a source document, as handed to the pipeline.
type RawPage struct {
	Index int    `json:"index"`
	Image []byte `json:"-"`
}

// BoundingBox locates a token in source-image pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EvidenceUnit is a single OCR-recognized token with its position and the
// engine's confidence, normalized to [0,1].
type EvidenceUnit struct {
	Text       string      `json:"text"`
	Page       int         `json:"page"`
	Line       int         `json:"line"`
	BBox       BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
}

// PageEvidence is the OCR output for one page: the plain text plus the
// positioned tokens in engine reading order.
type PageEvidence struct {
	Index int            `json:"index"`
	Text  string         `json:"text"`
	Words []EvidenceUnit `json:"words"`
}

// EvidenceRef links a field value back to supporting evidence by page and
// token index. It is a weak reference for display and audit only; a ref
// that could not be anchored to a token carries -1 in both indexes.
type EvidenceRef struct {
	Page  int    `json:"page"`
	Token int    `json:"token"`
	Quote string `json:"quote,omitempty"`
}

// FieldCandidate is a named value proposed by an extraction strategy.
// A nil Value means the field was not found.
type FieldCandidate struct {
	Name       string           `json:"name"`
	Value      *string          `json:"value"`
	Method     ExtractionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
	Evidence   []EvidenceRef    `json:"evidence,omitempty"`
}

// Absent reports whether the candidate carries no usable value.
func (f FieldCandidate) Absent() bool {
	return f.Value == nil || *f.Value == ""
}

// LineItem is one row of itemized detail (service, code, amount).
type LineItem struct {
	Service    *string          `json:"service"`
	Code       *string          `json:"code"`
	Amount     *float64         `json:"amount"`
	Method     ExtractionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
	Evidence   []EvidenceRef    `json:"evidence,omitempty"`
}

// Violation is a single validation finding against a field or line-item
// sub-field. FieldPath addresses the offending value, e.g.
// "date_of_service" or "line_items[2].amount".
type Violation struct {
	FieldPath string            `json:"field_path"`
	Reason    string            `json:"reason"`
	Severity  ViolationSeverity `json:"severity"`
	Message   string            `json:"message"`
}

// Violation reason codes.
const (
	ViolationFormatMismatch = "format_mismatch"
	ViolationNotADate       = "not_a_date"
	ViolationNotANumber     = "not_a_number"
	ViolationOutOfRange     = "out_of_range"
	ViolationSumMismatch    = "sum_mismatch"
)

// ValidatedField wraps a FieldCandidate with its validation outcome.
// The raw value is never altered; violations only annotate it.
type ValidatedField struct {
	FieldCandidate
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// ValidatedLineItem wraps a LineItem with per-sub-field findings.
type ValidatedLineItem struct {
	LineItem
	Violations []Violation `json:"violations,omitempty"`
}

// ScoredField is the final per-field record: validation outcome plus the
// combined confidence score in [0,1].
type ScoredField struct {
	ValidatedField
	Score float64 `json:"score"`
}

// ScoredLineItem is the final per-row record with its averaged score.
type ScoredLineItem struct {
	ValidatedLineItem
	Score float64 `json:"score"`
}

// ExtractionResult is the pipeline's sole output: every defined field
// scored, line items scored, the document-level confidence, and the
// routing decision. It is complete or it does not exist.
type ExtractionResult struct {
	DocumentID      uuid.UUID        `json:"document_id"`
	DocumentType    DocumentType     `json:"document_type"`
	Fields          []ScoredField    `json:"fields"`
	LineItems       []ScoredLineItem `json:"line_items"`
	Confidence      float64          `json:"confidence"`
	Decision        RouteDecision    `json:"decision"`
	Reasons         []string         `json:"reasons,omitempty"`
	MissingCritical []string         `json:"missing_critical,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	ModelUsed       string           `json:"model_used,omitempty"`
}

// Field returns the scored field with the given name, or nil.
func (r *ExtractionResult) Field(name string) *ScoredField {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i]
		}
	}
	return nil
}

// NewRawPages wraps ordered page images into RawPage records.
func NewRawPages(images [][]byte) []RawPage {
	pages := make([]RawPage, 0, len(images))
	for i, img := range images {
		pages = append(pages, RawPage{Index: i, Image: img})
	}
	return pages
}
