package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"claimlens/internal/domain"
)

// Config holds the external binary settings for recognition and
// rasterization.
type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Lang      string // default "eng"
	DPI       int    // rasterization DPI for scanned PDFs, default 220
	PSM       int    // page segmentation mode; 6 works well for uniform blocks
	OEM       int    // engine mode; leave 0 to use the tesseract default
	MaxPages  int    // cap on rasterized pages, 0 = no limit
}

// Engine recognizes page images by shelling out to tesseract. It
// implements port.PageOCR.
type Engine struct {
	cfg    Config
	runner Runner
}

// NewEngine applies defaults for unset config values. A nil runner means
// real subprocess execution.
func NewEngine(cfg Config, runner Runner) *Engine {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 220
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &Engine{cfg: cfg, runner: runner}
}

// RecognizePage runs tesseract in TSV mode over one page image and
// returns every recognized token with its position and confidence. The
// page text is rebuilt from the tokens line by line.
func (e *Engine) RecognizePage(ctx context.Context, image []byte, pageIndex int) (*domain.PageEvidence, error) {
	tmp, err := os.CreateTemp("", "claimlens-page-*")
	if err != nil {
		return nil, fmt.Errorf("ocr.Engine: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("ocr.Engine: temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("ocr.Engine: temp file: %w", err)
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--oem N] tsv
	args := []string{tmp.Name(), "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("ocr.Engine: tesseract page %d: %w: %s", pageIndex, err, truncate(string(errb), 512))
	}

	words := parseTSV(string(out), pageIndex)
	return &domain.PageEvidence{
		Index: pageIndex,
		Text:  joinLines(words),
		Words: words,
	}, nil
}

// parseTSV extracts the word rows from tesseract TSV output. Columns are
// level, page_num, block_num, par_num, line_num, word_num, left, top,
// width, height, conf, text; word rows carry level 5. A conf of -1 keeps
// the token with zero confidence.
func parseTSV(out string, pageIndex int) []domain.EvidenceUnit {
	var words []domain.EvidenceUnit
	line := 0
	prevKey := ""
	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || len(strings.TrimSpace(ln)) == 0 {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		// line_num resets per paragraph; renumber so lines ascend
		// across the whole page.
		key := cols[2] + ":" + cols[3] + ":" + cols[4]
		if prevKey != "" && key != prevKey {
			line++
		}
		prevKey = key

		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			conf = 0
		}
		words = append(words, domain.EvidenceUnit{
			Text:       text,
			Page:       pageIndex,
			Line:       line,
			BBox:       parseBBox(cols[6:10]),
			Confidence: clamp01(conf / 100),
		})
	}
	return words
}

func parseBBox(cols []string) domain.BoundingBox {
	atoi := func(s string) int {
		v, _ := strconv.Atoi(s)
		return v
	}
	return domain.BoundingBox{
		X:      atoi(cols[0]),
		Y:      atoi(cols[1]),
		Width:  atoi(cols[2]),
		Height: atoi(cols[3]),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// joinLines rebuilds readable page text: tokens on the same line join
// with spaces, line breaks become newlines.
func joinLines(words []domain.EvidenceUnit) string {
	var b strings.Builder
	last := -1
	for _, w := range words {
		if last >= 0 {
			if w.Line != last {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Text)
		last = w.Line
	}
	return b.String()
}
