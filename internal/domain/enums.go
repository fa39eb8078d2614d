package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// DocumentType identifies one of the supported document categories.
type DocumentType string

const (
	DocTypeInsuranceClaim DocumentType = "insurance_claim"
	DocTypeMedicalBill    DocumentType = "medical_bill"
)

// KnownDocumentTypes is the closed set of types the system extracts.
var KnownDocumentTypes = map[DocumentType]bool{
	DocTypeInsuranceClaim: true,
	DocTypeMedicalBill:    true,
}

// DocumentStatus represents the processing lifecycle of a document.
type DocumentStatus string

const (
	StatusUploaded       DocumentStatus = "uploaded"
	StatusProcessing     DocumentStatus = "processing"
	StatusProcessed      DocumentStatus = "processed"
	StatusReviewRequired DocumentStatus = "review_required"
	StatusReviewed       DocumentStatus = "reviewed"
	StatusRejected       DocumentStatus = "rejected"
	StatusFailed         DocumentStatus = "failed"
)

// ValidDocumentStatuses is the set of statuses accepted as list filters.
var ValidDocumentStatuses = map[DocumentStatus]bool{
	StatusUploaded:       true,
	StatusProcessing:     true,
	StatusProcessed:      true,
	StatusReviewRequired: true,
	StatusReviewed:       true,
	StatusRejected:       true,
	StatusFailed:         true,
}

// ReviewState tracks the human-review outcome of an extraction version.
type ReviewState string

const (
	ReviewPending  ReviewState = "pending"
	ReviewApproved ReviewState = "approved"
	ReviewRejected ReviewState = "rejected"
)

// RouteDecision is the pipeline's routing verdict for a document.
type RouteDecision string

const (
	RouteAutoApproved  RouteDecision = "auto_approved"
	RoutePendingReview RouteDecision = "pending_review"
)

// ExtractionMethod tags which strategy produced a field candidate.
// MethodManual marks values corrected by a human reviewer.
type ExtractionMethod string

const (
	MethodModel    ExtractionMethod = "model"
	MethodFallback ExtractionMethod = "fallback"
	MethodManual   ExtractionMethod = "manual"
)

// FieldKind declares how a field's raw value is validated.
type FieldKind string

const (
	FieldKindText       FieldKind = "text"
	FieldKindDate       FieldKind = "date"
	FieldKindAmount     FieldKind = "amount"
	FieldKindIdentifier FieldKind = "identifier"
)

// ViolationSeverity grades a validation finding.
type ViolationSeverity string

const (
	SeverityError   ViolationSeverity = "error"
	SeverityWarning ViolationSeverity = "warning"
)
