package port

import (
	"context"

	"claimlens/internal/domain"
)

// PageOCR abstracts single-page text recognition.
type PageOCR interface {
	// RecognizePage returns the page text and positioned tokens for one
	// page image, in engine reading order.
	RecognizePage(ctx context.Context, image []byte, pageIndex int) (*domain.PageEvidence, error)
}

// PageRasterizer renders a PDF into one image per page, in page order.
type PageRasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([][]byte, error)
}
