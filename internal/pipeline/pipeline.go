// Package pipeline sequences the extraction stages for one document: page
// OCR, document-type resolution, field extraction, validation, scoring,
// and the routing decision.
//
// A run either returns a complete ExtractionResult or a fatal error, never
// a partial result. Only empty input, an unresolvable document type, or a
// canceled context are fatal; a failed page or a failed extraction call
// degrades into the result as warnings and absent fields.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"claimlens/internal/decision"
	"claimlens/internal/domain"
	"claimlens/internal/port"
	"claimlens/internal/schema"
	"claimlens/internal/score"
	"claimlens/internal/validator"
)

// Config holds the orchestration knobs.
type Config struct {
	// PageConcurrency bounds how many pages are OCRed at once.
	PageConcurrency int
}

// Pipeline wires the extraction stages together.
type Pipeline struct {
	ocr       port.PageOCR
	registry  *schema.Registry
	extractor port.FieldExtractor
	validator *validator.Engine
	scorer    *score.Scorer
	router    *decision.Router
	cfg       Config
}

// New creates a pipeline over the given stages.
func New(
	ocr port.PageOCR,
	registry *schema.Registry,
	extractor port.FieldExtractor,
	validator *validator.Engine,
	scorer *score.Scorer,
	router *decision.Router,
	cfg Config,
) *Pipeline {
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 4
	}
	return &Pipeline{
		ocr:       ocr,
		registry:  registry,
		extractor: extractor,
		validator: validator,
		scorer:    scorer,
		router:    router,
		cfg:       cfg,
	}
}

// Process runs every stage for one document. typeHint, when non-empty,
// bypasses keyword classification.
func (p *Pipeline) Process(ctx context.Context, documentID uuid.UUID, pages []domain.RawPage, typeHint string) (*domain.ExtractionResult, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNoPages)
	}

	evidence, warnings := p.recognizePages(ctx, pages)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullText := joinPageTexts(evidence)

	docType, err := p.registry.Resolve(fullText, typeHint)
	if err != nil {
		return nil, fmt.Errorf("resolving type of document %s: %w", documentID, err)
	}
	sch, err := p.registry.SchemaFor(docType)
	if err != nil {
		return nil, fmt.Errorf("loading schema for document %s: %w", documentID, err)
	}

	out, err := p.extractor.Extract(ctx, port.ExtractInput{
		Schema:   sch,
		Pages:    evidence,
		FullText: fullText,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("pipeline.Pipeline: extraction failed for document %s: %v", documentID, err)
		warnings = append(warnings, "field extraction failed, all fields reported absent")
		out = absentOutput(sch)
	}

	vfields, vitems := p.validator.Validate(sch, out.Fields, out.LineItems)
	sfields, sitems, confidence := p.scorer.Score(vfields, vitems)
	outcome := p.router.Route(sch, sfields, confidence)

	log.Printf("pipeline.Pipeline: document %s processed, type=%s confidence=%.4f decision=%s",
		documentID, docType, confidence, outcome.Decision)

	return &domain.ExtractionResult{
		DocumentID:      documentID,
		DocumentType:    docType,
		Fields:          sfields,
		LineItems:       sitems,
		Confidence:      confidence,
		Decision:        outcome.Decision,
		Reasons:         outcome.Reasons,
		MissingCritical: outcome.MissingCritical,
		Warnings:        warnings,
		ModelUsed:       out.ModelUsed,
	}, nil
}

// recognizePages OCRs every page with bounded concurrency and reassembles
// the evidence in page order. A failed page yields empty evidence and a
// warning instead of aborting the run.
func (p *Pipeline) recognizePages(ctx context.Context, pages []domain.RawPage) ([]domain.PageEvidence, []string) {
	results := make([]domain.PageEvidence, len(pages))
	errs := make([]error, len(pages))

	sem := make(chan struct{}, p.cfg.PageConcurrency)
	var wg sync.WaitGroup
	for i := range pages {
		page := pages[i] // copy for goroutine
		idx := i

		sem <- struct{}{} // acquire
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }() // release

			ev, err := p.ocr.RecognizePage(ctx, page.Image, page.Index)
			if err != nil {
				errs[idx] = err
				results[idx] = domain.PageEvidence{Index: page.Index}
				return
			}
			results[idx] = *ev
		}()
	}
	wg.Wait()

	var warnings []string
	for i, err := range errs {
		if err == nil {
			continue
		}
		log.Printf("pipeline.Pipeline: ocr failed on page %d: %v", pages[i].Index, err)
		warnings = append(warnings, fmt.Sprintf("ocr failed on page %d", pages[i].Index))
	}
	return results, warnings
}

// absentOutput reports every schema field as absent. Used when extraction
// fails outright so the run still produces a complete, reviewable result.
func absentOutput(sch *schema.DocumentTypeSchema) *port.ExtractOutput {
	out := &port.ExtractOutput{}
	for _, name := range sch.FieldNames() {
		out.Fields = append(out.Fields, domain.FieldCandidate{
			Name:   name,
			Method: domain.MethodFallback,
		})
	}
	return out
}

func joinPageTexts(pages []domain.PageEvidence) string {
	var texts []string
	for _, p := range pages {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
