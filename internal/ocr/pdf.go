package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"claimlens/internal/domain"
)

// ValidatePDF checks that the bytes form a readable PDF and returns the
// page count.
func ValidatePDF(data []byte) (int, error) {
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("ocr.ValidatePDF: %w: %v", domain.ErrUnreadableFile, err)
	}
	return pctx.PageCount, nil
}

// Rasterize renders each PDF page to a PNG via pdftoppm and returns the
// images in page order, capped at MaxPages.
func (e *Engine) Rasterize(ctx context.Context, pdf []byte) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "claimlens-pp-*")
	if err != nil {
		return nil, fmt.Errorf("ocr.Engine: temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log.Printf("ocr.Engine: failed to remove temp dir %q: %v", tmpDir, err)
		}
	}()

	src := filepath.Join(tmpDir, "src.pdf")
	if err := os.WriteFile(src, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("ocr.Engine: write pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <src.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", src, prefix)
	if err != nil {
		return nil, fmt.Errorf("ocr.Engine: pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// pdftoppm zero-pads page numbers, so a lexical sort is page order.
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("ocr.Engine: pdftoppm produced no images: %w", domain.ErrUnreadableFile)
	}

	images := make([][]byte, 0, len(matches))
	for _, m := range matches {
		img, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("ocr.Engine: read %s: %w", filepath.Base(m), err)
		}
		images = append(images, img)
	}
	return images, nil
}
