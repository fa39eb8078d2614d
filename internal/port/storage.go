package port

import (
	"context"
	"io"
)

// UploadInput encapsulates the parameters needed to upload an object.
// Metadata travels with the object; keys are uuid-based so the original
// filename survives only here.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// UploadOutput contains the result of a successful upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts cloud object storage operations. Download is
// how the processing worker fetches document bytes back for OCR.
// GetPresignedURL serves the object under filename when one is given.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	GetPresignedURL(ctx context.Context, bucket, key, filename string, expirySeconds int64) (string, error)
}
