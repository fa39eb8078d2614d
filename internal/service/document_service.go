package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"claimlens/internal/config"
	"claimlens/internal/domain"
	"claimlens/internal/ocr"
	"claimlens/internal/port"
)

// UploadDocumentInput is the DTO for document upload requests. TypeHint
// optionally names the document type when the caller already knows it.
type UploadDocumentInput struct {
	File     multipart.File
	Header   *multipart.FileHeader
	TypeHint string
}

// DocumentService defines the document management contract.
type DocumentService interface {
	Upload(ctx context.Context, input UploadDocumentInput) (*domain.Document, error)
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, status *domain.DocumentStatus, offset, limit int) ([]domain.Document, int, error)
	GetDownloadURL(ctx context.Context, docID uuid.UUID) (string, error)
	GetLatestExtraction(ctx context.Context, docID uuid.UUID) (*domain.Extraction, error)
	ListExtractions(ctx context.Context, docID uuid.UUID) ([]domain.Extraction, error)
	Process(ctx context.Context, docID uuid.UUID, typeHint string) (*domain.Extraction, error)
	ProcessDocument(ctx context.Context, doc *domain.Document, typeHint string) (*domain.Extraction, error)
	Delete(ctx context.Context, docID uuid.UUID) error
}

type documentService struct {
	docRepo    port.DocumentRepository
	exRepo     port.ExtractionRepository
	storage    port.ObjectStorage
	rasterizer port.PageRasterizer
	pipeline   port.ExtractionPipeline
	email      port.EmailSender
	s3cfg      *config.S3Config
	emailCfg   *config.EmailConfig
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(
	docRepo port.DocumentRepository,
	exRepo port.ExtractionRepository,
	storage port.ObjectStorage,
	rasterizer port.PageRasterizer,
	pipe port.ExtractionPipeline,
	sender port.EmailSender,
	s3cfg *config.S3Config,
	emailCfg *config.EmailConfig,
) DocumentService {
	return &documentService{
		docRepo:    docRepo,
		exRepo:     exRepo,
		storage:    storage,
		rasterizer: rasterizer,
		pipeline:   pipe,
		email:      sender,
		s3cfg:      s3cfg,
		emailCfg:   emailCfg,
	}
}

func (s *documentService) Upload(ctx context.Context, input UploadDocumentInput) (*domain.Document, error) {
	// Validate file extension
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	// Validate file size
	maxBytes := s.s3cfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Validate the type hint before accepting the upload
	if input.TypeHint != "" && !domain.KnownDocumentTypes[domain.DocumentType(input.TypeHint)] {
		return nil, domain.ErrUnknownDocumentType
	}

	// Read first 512 bytes for magic-byte content type detection
	buf := make([]byte, 512)
	n, err := input.File.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	detectedType := http.DetectContentType(buf[:n])

	// Validate detected content type
	_, validContent := domain.AllowedContentTypes[detectedType]
	if !validContent {
		return nil, domain.ErrUnsupportedFileType
	}

	// Seek back and read the full file; PDF validation needs all bytes
	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}
	fileBytes, err := io.ReadAll(input.File)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	pageCount := 1
	if fileType == domain.FileTypePDF {
		pageCount, err = ocr.ValidatePDF(fileBytes)
		if err != nil {
			return nil, err
		}
	}

	docID := uuid.New()
	s3Key := fmt.Sprintf("documents/%s/%s", docID, input.Header.Filename)
	contentType := domain.AllowedFileTypes[fileType]

	doc := &domain.Document{
		ID:               docID,
		OriginalFilename: input.Header.Filename,
		ContentType:      contentType,
		FileType:         fileType,
		FileSize:         input.Header.Size,
		S3Bucket:         s.s3cfg.Bucket,
		S3Key:            s3Key,
		PageCount:        pageCount,
		Status:           domain.StatusUploaded,
		TypeHint:         input.TypeHint,
	}

	log.Printf("documentService.Upload: uploading document %s (%s, %d bytes, %d pages)",
		input.Header.Filename, contentType, input.Header.Size, pageCount)

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3cfg.Bucket,
		Key:         s3Key,
		Body:        bytes.NewReader(fileBytes),
		ContentType: contentType,
		Size:        input.Header.Size,
		Metadata:    map[string]string{"original-filename": input.Header.Filename},
	})
	if err != nil {
		log.Printf("documentService.Upload: S3 upload failed for document %s: %v", doc.ID, err)
		if markErr := s.docRepo.MarkFailed(ctx, doc.ID, "upload to storage failed"); markErr != nil {
			log.Printf("documentService.Upload: failed to mark document %s failed: %v", doc.ID, markErr)
		}
		return nil, domain.ErrUploadFailed
	}

	return doc, nil
}

func (s *documentService) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, docID)
}

func (s *documentService) List(ctx context.Context, status *domain.DocumentStatus, offset, limit int) ([]domain.Document, int, error) {
	return s.docRepo.List(ctx, status, offset, limit)
}

func (s *documentService) GetDownloadURL(ctx context.Context, docID uuid.UUID) (string, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, doc.S3Bucket, doc.S3Key, doc.OriginalFilename, s.s3cfg.PresignExpiry)
}

func (s *documentService) GetLatestExtraction(ctx context.Context, docID uuid.UUID) (*domain.Extraction, error) {
	if _, err := s.docRepo.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.exRepo.GetLatest(ctx, docID)
}

func (s *documentService) ListExtractions(ctx context.Context, docID uuid.UUID) ([]domain.Extraction, error) {
	if _, err := s.docRepo.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.exRepo.ListVersions(ctx, docID)
}

// Process runs the extraction pipeline for one document on the caller's
// context. Reprocessing an already-processed document creates the next
// extraction version.
func (s *documentService) Process(ctx context.Context, docID uuid.UUID, typeHint string) (*domain.Extraction, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.StatusProcessing {
		return nil, domain.ErrDocumentProcessing
	}

	if err := s.docRepo.UpdateStatus(ctx, docID, domain.StatusProcessing); err != nil {
		return nil, fmt.Errorf("marking document processing: %w", err)
	}
	doc.Status = domain.StatusProcessing

	return s.ProcessDocument(ctx, doc, typeHint)
}

// ProcessDocument performs the core processing: S3 download, page
// preparation, the extraction pipeline, result persistence, and status
// transitions. The doc must already be in processing status. It is called
// by both Process and the queue worker.
func (s *documentService) ProcessDocument(ctx context.Context, doc *domain.Document, typeHint string) (*domain.Extraction, error) {
	if typeHint == "" {
		typeHint = doc.TypeHint
	}

	fileBytes, err := s.storage.Download(ctx, doc.S3Bucket, doc.S3Key)
	if err != nil {
		err = fmt.Errorf("downloading document: %w", err)
		s.failProcessing(ctx, doc, err)
		return nil, err
	}

	images, err := s.preparePages(ctx, doc, fileBytes)
	if err != nil {
		s.failProcessing(ctx, doc, err)
		return nil, err
	}

	res, err := s.pipeline.Process(ctx, doc.ID, domain.NewRawPages(images), typeHint)
	if err != nil {
		s.failProcessing(ctx, doc, err)
		return nil, err
	}

	ex, err := s.saveResult(ctx, doc, res)
	if err != nil {
		s.failProcessing(ctx, doc, err)
		return nil, err
	}
	return ex, nil
}

// preparePages turns the raw file into ordered page images. PDFs are
// rasterized; jpg and png uploads already are a single page.
func (s *documentService) preparePages(ctx context.Context, doc *domain.Document, fileBytes []byte) ([][]byte, error) {
	if doc.FileType == domain.FileTypePDF {
		images, err := s.rasterizer.Rasterize(ctx, fileBytes)
		if err != nil {
			return nil, fmt.Errorf("rasterizing document: %w", err)
		}
		return images, nil
	}
	return [][]byte{fileBytes}, nil
}

func (s *documentService) saveResult(ctx context.Context, doc *domain.Document, res *domain.ExtractionResult) (*domain.Extraction, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshaling extraction result: %w", err)
	}

	ex := &domain.Extraction{
		DocumentID:  doc.ID,
		ReviewState: domain.ReviewPending,
		Payload:     payload,
		ModelUsed:   res.ModelUsed,
		Decision:    res.Decision,
		Confidence:  res.Confidence,
	}
	if err := s.exRepo.Create(ctx, ex, fieldRows(res), lineItemRows(res)); err != nil {
		return nil, fmt.Errorf("saving extraction: %w", err)
	}

	status := domain.StatusProcessed
	if res.Decision == domain.RoutePendingReview {
		status = domain.StatusReviewRequired
	}
	docType := res.DocumentType
	doc.Status = status
	doc.DocumentType = &docType
	doc.ConfidenceScore = &res.Confidence
	doc.ErrorMessage = ""
	if err := s.docRepo.UpdateProcessingResult(ctx, doc); err != nil {
		return nil, fmt.Errorf("updating document result: %w", err)
	}

	log.Printf("documentService.ProcessDocument: document %s processed as %s (decision %s, version %d)",
		doc.ID, res.DocumentType, res.Decision, ex.Version)

	if status == domain.StatusReviewRequired {
		s.notifyReviewRequested(ctx, doc, res.Reasons)
	}

	return ex, nil
}

func (s *documentService) failProcessing(ctx context.Context, doc *domain.Document, procErr error) {
	log.Printf("documentService.failProcessing: document %s failed: %v", doc.ID, procErr)
	if err := s.docRepo.MarkFailed(ctx, doc.ID, procErr.Error()); err != nil {
		log.Printf("documentService.failProcessing: failed to update status for %s: %v", doc.ID, err)
	}
	s.notifyProcessingFailed(ctx, doc, procErr.Error())
}

// notifyReviewRequested sends the review notification. Failures are logged
// but never block processing.
func (s *documentService) notifyReviewRequested(ctx context.Context, doc *domain.Document, reasons []string) {
	if s.email == nil || s.emailCfg.ReviewAddress == "" {
		return
	}
	if err := s.email.SendReviewRequested(ctx, s.emailCfg.ReviewAddress, doc, reasons); err != nil {
		log.Printf("documentService.notifyReviewRequested: failed to send for %s: %v", doc.ID, err)
	}
}

func (s *documentService) notifyProcessingFailed(ctx context.Context, doc *domain.Document, message string) {
	if s.email == nil || s.emailCfg.ReviewAddress == "" {
		return
	}
	if err := s.email.SendProcessingFailed(ctx, s.emailCfg.ReviewAddress, doc, message); err != nil {
		log.Printf("documentService.notifyProcessingFailed: failed to send for %s: %v", doc.ID, err)
	}
}

func (s *documentService) Delete(ctx context.Context, docID uuid.UUID) error {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, doc.S3Bucket, doc.S3Key); err != nil {
		log.Printf("documentService.Delete: failed to delete from S3: %v", err)
		return fmt.Errorf("deleting from storage: %w", err)
	}

	return s.docRepo.Delete(ctx, docID)
}

// fieldRows flattens the scored fields into persistable rows. Quote and
// PageNumber mirror the first evidence ref when one exists.
func fieldRows(res *domain.ExtractionResult) []domain.FieldEvidenceRow {
	rows := make([]domain.FieldEvidenceRow, 0, len(res.Fields))
	for i := range res.Fields {
		f := &res.Fields[i]
		row := domain.FieldEvidenceRow{
			FieldName:  f.Name,
			FieldValue: f.Value,
			Confidence: f.Confidence,
			Score:      f.Score,
			Method:     f.Method,
			Valid:      f.Valid,
		}
		fillEvidence(f.Evidence, &row.Quote, &row.Evidence, &row.PageNumber)
		rows = append(rows, row)
	}
	return rows
}

func lineItemRows(res *domain.ExtractionResult) []domain.LineItemRow {
	rows := make([]domain.LineItemRow, 0, len(res.LineItems))
	for i := range res.LineItems {
		item := &res.LineItems[i]
		row := domain.LineItemRow{
			RowIndex:   i,
			Service:    item.Service,
			Code:       item.Code,
			Amount:     item.Amount,
			Confidence: item.Confidence,
			Score:      item.Score,
		}
		fillEvidence(item.Evidence, &row.Quote, &row.Evidence, &row.PageNumber)
		rows = append(rows, row)
	}
	return rows
}

func fillEvidence(refs []domain.EvidenceRef, quote **string, evidence *json.RawMessage, pageNumber **int) {
	if len(refs) == 0 {
		return
	}
	first := refs[0]
	if first.Quote != "" {
		q := first.Quote
		*quote = &q
	}
	if first.Page >= 0 {
		p := first.Page
		*pageNumber = &p
	}
	if raw, err := json.Marshal(refs); err == nil {
		*evidence = raw
	}
}
