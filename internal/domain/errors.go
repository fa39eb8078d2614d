package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed          = errors.New("file upload to storage failed")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrExtractionNotFound    = errors.New("extraction not found")
	ErrDocumentNotReviewable = errors.New("document is not awaiting review")
	ErrDocumentProcessing    = errors.New("document is already being processed")
	ErrNoPages               = errors.New("document has no pages")
	ErrUnreadableFile        = errors.New("file could not be read as a document")
	ErrUnknownDocumentType   = errors.New("unknown document type")
	ErrUnknownField          = errors.New("unknown field name")
)

// TypeResolutionError reports that a document could not be classified into
// one of the known types. It carries the keyword signal counts so callers
// can surface why resolution failed and request a manual hint.
type TypeResolutionError struct {
	Hint             string
	InsuranceSignals int
	MedicalSignals   int
}

func (e *TypeResolutionError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("unresolvable document type: hint %q is not a known type", e.Hint)
	}
	if e.InsuranceSignals == 0 && e.MedicalSignals == 0 {
		return "unresolvable document type: no classification signals found"
	}
	return fmt.Sprintf("unresolvable document type: ambiguous signals (insurance=%d, medical=%d)",
		e.InsuranceSignals, e.MedicalSignals)
}

// IsFatalPipelineError reports whether err is one of the error kinds
// allowed to terminate a pipeline run without producing a result.
func IsFatalPipelineError(err error) bool {
	var tre *TypeResolutionError
	return errors.Is(err, ErrNoPages) || errors.Is(err, ErrUnreadableFile) || errors.As(err, &tre)
}
