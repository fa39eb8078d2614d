// Command process runs the extraction pipeline over a single local file
// and prints the resulting extraction as JSON. It talks to no database
// and no object store, which makes it handy for tuning OCR and extractor
// settings against sample documents.
//
// Usage: go run ./cmd/process -file scan.pdf [-type medical_bill] [-pretty]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"claimlens/internal/config"
	"claimlens/internal/decision"
	"claimlens/internal/domain"
	"claimlens/internal/extract"
	_ "claimlens/internal/extract/claude"
	_ "claimlens/internal/extract/gemini"
	_ "claimlens/internal/extract/openai"
	"claimlens/internal/extract/pattern"
	"claimlens/internal/ocr"
	"claimlens/internal/pipeline"
	"claimlens/internal/port"
	"claimlens/internal/schema"
	"claimlens/internal/score"
	"claimlens/internal/validator"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		file     = flag.String("file", "", "path to a pdf, jpg, or png document (required)")
		typeHint = flag.String("type", "", "document type hint (insurance_claim or medical_bill)")
		pretty   = flag.Bool("pretty", false, "indent the JSON output")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return fmt.Errorf("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *file, err)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(*file)), ".")
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return fmt.Errorf("unsupported file type %q (want pdf, jpg, jpeg, or png)", ext)
	}

	engine := ocr.NewEngine(ocr.Config{
		Tesseract: cfg.OCR.Tesseract,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Lang:      cfg.OCR.Lang,
		DPI:       cfg.OCR.DPI,
		PSM:       cfg.OCR.PSM,
		OEM:       cfg.OCR.OEM,
		MaxPages:  cfg.OCR.MaxPages,
	}, nil)

	ctx := context.Background()

	var images [][]byte
	if fileType == domain.FileTypePDF {
		if _, err := ocr.ValidatePDF(data); err != nil {
			return err
		}
		images, err = engine.Rasterize(ctx, data)
		if err != nil {
			return err
		}
	} else {
		images = [][]byte{data}
	}

	extractor, err := newExtractorChain(&cfg.Extractor)
	if err != nil {
		return err
	}

	registry := schema.NewRegistry(schema.Config{
		InsuranceCriticalFields: cfg.Schema.InsuranceCriticalFields,
		MedicalCriticalFields:   cfg.Schema.MedicalCriticalFields,
	})

	pipe := pipeline.New(
		engine,
		registry,
		extractor,
		validator.New(validator.Config{SumTolerance: cfg.Validation.SumTolerance}),
		score.New(score.Config{
			InvalidPenalty: cfg.Scoring.InvalidPenalty,
			FieldWeight:    cfg.Scoring.FieldWeight,
			LineItemWeight: cfg.Scoring.LineItemWeight,
		}),
		decision.New(decision.Config{ConfidenceThreshold: cfg.Routing.ConfidenceThreshold}),
		pipeline.Config{PageConcurrency: cfg.OCR.PageConcurrency},
	)

	result, err := pipe.Process(ctx, uuid.New(), domain.NewRawPages(images), *typeHint)
	if err != nil {
		return err
	}

	var out []byte
	if *pretty {
		out, err = json.MarshalIndent(result, "", "  ")
	} else {
		out, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, _ = os.Stdout.Write(append(out, '\n'))

	return nil
}

// newExtractorChain builds the field-extraction chain: the configured
// model providers in order, then the deterministic pattern extractor.
func newExtractorChain(cfg *config.ExtractorConfig) (port.FieldExtractor, error) {
	var strategies []port.FieldExtractor
	var names []string

	for _, pcfg := range []*config.ExtractorProviderConfig{cfg.PrimaryConfig(), cfg.SecondaryConfig()} {
		if pcfg == nil {
			continue
		}
		p, err := extract.NewProvider(cfg, pcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s extractor: %w", pcfg.Provider, err)
		}
		strategies = append(strategies, p)
		names = append(names, pcfg.Provider)
	}

	strategies = append(strategies, pattern.New(pattern.Config{
		FoundConfidence:    cfg.FallbackConfidence,
		LineItemConfidence: cfg.LineItemConfidence,
		MaxLineItems:       cfg.MaxLineItems,
	}))
	names = append(names, "pattern")

	return extract.NewFallbackExtractor(strategies, names, cfg.Primary.MaxRetries, cfg.FallbackCeiling), nil
}
