package service

import (
	"context"
	"log"
	"sync"
	"time"

	"claimlens/internal/port"
)

// ProcessQueueConfig holds settings for the processing queue worker.
type ProcessQueueConfig struct {
	PollInterval   time.Duration
	ProcessTimeout time.Duration
	Concurrency    int
}

// ProcessQueueWorker polls for uploaded documents and dispatches them
// through the extraction pipeline.
type ProcessQueueWorker struct {
	docRepo    port.DocumentRepository
	docService DocumentService
	cfg        ProcessQueueConfig
	wg         sync.WaitGroup
}

// NewProcessQueueWorker creates a new ProcessQueueWorker.
func NewProcessQueueWorker(docRepo port.DocumentRepository, docService DocumentService, cfg ProcessQueueConfig) *ProcessQueueWorker {
	return &ProcessQueueWorker{
		docRepo:    docRepo,
		docService: docService,
		cfg:        cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight documents have finished.
func (w *ProcessQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("processQueueWorker: started (poll=%s, concurrency=%d, timeout=%s)",
		w.cfg.PollInterval, w.cfg.Concurrency, w.cfg.ProcessTimeout)

	for {
		select {
		case <-ctx.Done():
			log.Printf("processQueueWorker: shutting down, waiting for in-flight documents...")
			w.wg.Wait()
			log.Printf("processQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			docs, err := w.docRepo.ClaimQueued(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("processQueueWorker: ClaimQueued error: %v", err)
				continue
			}

			for i := range docs {
				doc := docs[i] // copy for goroutine

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so in-flight documents complete even during shutdown.
					procCtx, cancel := context.WithTimeout(context.Background(), w.cfg.ProcessTimeout)
					defer cancel()

					log.Printf("processQueueWorker: dispatching document %s", doc.ID)
					if _, err := w.docService.ProcessDocument(procCtx, &doc, ""); err != nil {
						log.Printf("processQueueWorker: document %s failed: %v", doc.ID, err)
					}
				}()
			}
		}
	}
}
