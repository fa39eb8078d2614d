package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"claimlens/internal/config"
	"claimlens/internal/decision"
	emailnoop "claimlens/internal/email/noop"
	emailses "claimlens/internal/email/ses"
	"claimlens/internal/extract"
	_ "claimlens/internal/extract/claude"
	_ "claimlens/internal/extract/gemini"
	_ "claimlens/internal/extract/openai"
	"claimlens/internal/extract/pattern"
	"claimlens/internal/handler"
	"claimlens/internal/ocr"
	"claimlens/internal/pipeline"
	"claimlens/internal/port"
	"claimlens/internal/repository/postgres"
	"claimlens/internal/router"
	"claimlens/internal/schema"
	"claimlens/internal/score"
	"claimlens/internal/service"
	s3storage "claimlens/internal/storage/s3"
	"claimlens/internal/validator"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	docRepo := postgres.NewDocumentRepo(db)
	exRepo := postgres.NewExtractionRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	sender, err := newEmailSender(&cfg.Email)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}

	// OCR engine handles both page recognition and PDF rasterization.
	engine := ocr.NewEngine(ocr.Config{
		Tesseract: cfg.OCR.Tesseract,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Lang:      cfg.OCR.Lang,
		DPI:       cfg.OCR.DPI,
		PSM:       cfg.OCR.PSM,
		OEM:       cfg.OCR.OEM,
		MaxPages:  cfg.OCR.MaxPages,
	}, nil)

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

	// Initialize services
	docSvc := service.NewDocumentService(docRepo, exRepo, s3Client, engine, pipe, sender, &cfg.S3, &cfg.Email)
	reviewSvc := service.NewReviewService(docRepo, exRepo)
	reportSvc := service.NewReportService(docRepo, exRepo)

	// Initialize handlers
	documentH := handler.NewDocumentHandler(docSvc)
	reviewH := handler.NewReviewHandler(reviewSvc)
	exportH := handler.NewExportHandler(reportSvc)
	healthH := handler.NewHealthHandler(db, cfg.OCR.Tesseract, cfg.OCR.Pdftoppm)

	r := router.Setup(cfg.CORS.AllowedOrigins, documentH, reviewH, exportH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background worker picks up queued documents.
	worker := service.NewProcessQueueWorker(docRepo, docSvc, service.ProcessQueueConfig{
		PollInterval:   time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		ProcessTimeout: time.Duration(cfg.Queue.ProcessTimeoutSecs) * time.Second,
		Concurrency:    cfg.Queue.Concurrency,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-workerDone

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

func newEmailSender(cfg *config.EmailConfig) (port.EmailSender, error) {
	if cfg.Provider == "ses" {
		return emailses.NewSESSender(cfg.Region, cfg.FromAddress, cfg.FromName, cfg.ReviewURL)
	}
	return emailnoop.NewNoopSender(cfg.ReviewURL), nil
}
