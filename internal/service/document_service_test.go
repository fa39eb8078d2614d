package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"claimlens/internal/config"
	"claimlens/internal/domain"
	"claimlens/internal/port"
	"claimlens/internal/service"
	"claimlens/mocks"
)

func testS3Config() config.S3Config {
	return config.S3Config{
		Region:        "us-east-1",
		Bucket:        "test-bucket",
		MaxFileSizeMB: 1,
		PresignExpiry: 3600,
	}
}

func testEmailConfig(reviewAddress string) config.EmailConfig {
	return config.EmailConfig{
		Provider:      "noop",
		FromAddress:   "noreply@claimlens.test",
		ReviewAddress: reviewAddress,
	}
}

type documentServiceMocks struct {
	docRepo    *mocks.MockDocumentRepo
	exRepo     *mocks.MockExtractionRepo
	storage    *mocks.MockObjectStorage
	rasterizer *mocks.MockPageRasterizer
	pipeline   *mocks.MockExtractionPipeline
	email      *mocks.MockEmailSender
}

func setupDocumentService(reviewAddress string) (service.DocumentService, *documentServiceMocks) {
	m := &documentServiceMocks{
		docRepo:    new(mocks.MockDocumentRepo),
		exRepo:     new(mocks.MockExtractionRepo),
		storage:    new(mocks.MockObjectStorage),
		rasterizer: new(mocks.MockPageRasterizer),
		pipeline:   new(mocks.MockExtractionPipeline),
		email:      new(mocks.MockEmailSender),
	}
	s3cfg := testS3Config()
	emailCfg := testEmailConfig(reviewAddress)
	svc := service.NewDocumentService(m.docRepo, m.exRepo, m.storage, m.rasterizer, m.pipeline, m.email, &s3cfg, &emailCfg)
	return svc, m
}

// createMultipartFile creates a fake multipart file header and content for testing.
func createMultipartFile(t *testing.T, filename string, content []byte, contentType string) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	file, err := form.File["file"][0].Open()
	require.NoError(t, err)
	return file, form.File["file"][0]
}

// pngContent returns minimal PNG bytes (magic header plus padding).
func pngContent() []byte {
	header := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	return append(header, bytes.Repeat([]byte{0x00}, 100)...)
}

// jpegContent returns minimal JPEG bytes (magic header plus padding).
func jpegContent() []byte {
	header := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	return append(header, bytes.Repeat([]byte{0x00}, 100)...)
}

func autoApprovedResult(docID uuid.UUID) *domain.ExtractionResult {
	value := "CLM-001"
	return &domain.ExtractionResult{
		DocumentID:   docID,
		DocumentType: domain.DocTypeInsuranceClaim,
		Fields: []domain.ScoredField{{
			ValidatedField: domain.ValidatedField{
				FieldCandidate: domain.FieldCandidate{
					Name:       "claim_number",
					Value:      &value,
					Method:     domain.MethodModel,
					Confidence: 0.95,
				},
				Valid: true,
			},
			Score: 0.95,
		}},
		Confidence: 0.91,
		Decision:   domain.RouteAutoApproved,
		ModelUsed:  "gpt-4o-mini",
	}
}

// --- Upload ---

func TestDocumentService_Upload_Success_PNG(t *testing.T) {
	svc, m := setupDocumentService("")

	file, header := createMultipartFile(t, "scan.png", pngContent(), "image/png")
	defer file.Close()

	m.docRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Document")).Return(nil)
	m.storage.On("Upload", mock.Anything, mock.MatchedBy(func(input port.UploadInput) bool {
		return input.Bucket == "test-bucket" && input.ContentType == "image/png" &&
			input.Metadata["original-filename"] == "scan.png"
	})).Return(&port.UploadOutput{Location: "https://test-bucket.s3.amazonaws.com/x", ETag: "abc"}, nil)

	doc, err := svc.Upload(context.Background(), service.UploadDocumentInput{
		File:     file,
		Header:   header,
		TypeHint: "insurance_claim",
	})

	require.NoError(t, err)
	assert.Equal(t, "scan.png", doc.OriginalFilename)
	assert.Equal(t, domain.FileTypePNG, doc.FileType)
	assert.Equal(t, domain.StatusUploaded, doc.Status)
	assert.Equal(t, 1, doc.PageCount)
	assert.Equal(t, "insurance_claim", doc.TypeHint)
	assert.Contains(t, doc.S3Key, doc.ID.String())

	m.docRepo.AssertExpectations(t)
	m.storage.AssertExpectations(t)
}

func TestDocumentService_Upload_UnsupportedExtension(t *testing.T) {
	svc, _ := setupDocumentService("")

	file, header := createMultipartFile(t, "notes.txt", []byte("plain text"), "text/plain")
	defer file.Close()

	_, err := svc.Upload(context.Background(), service.UploadDocumentInput{File: file, Header: header})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestDocumentService_Upload_FileTooLarge(t *testing.T) {
	svc, _ := setupDocumentService("")

	big := append(pngContent(), bytes.Repeat([]byte{0x01}, 2<<20)...)
	file, header := createMultipartFile(t, "huge.png", big, "image/png")
	defer file.Close()

	_, err := svc.Upload(context.Background(), service.UploadDocumentInput{File: file, Header: header})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestDocumentService_Upload_UnknownTypeHint(t *testing.T) {
	svc, _ := setupDocumentService("")

	file, header := createMultipartFile(t, "scan.png", pngContent(), "image/png")
	defer file.Close()

	_, err := svc.Upload(context.Background(), service.UploadDocumentInput{
		File:     file,
		Header:   header,
		TypeHint: "receipt",
	})
	assert.ErrorIs(t, err, domain.ErrUnknownDocumentType)
}

func TestDocumentService_Upload_ContentMismatch(t *testing.T) {
	svc, _ := setupDocumentService("")

	// Extension says PNG but the bytes are plain text.
	file, header := createMultipartFile(t, "fake.png", []byte("definitely not an image"), "image/png")
	defer file.Close()

	_, err := svc.Upload(context.Background(), service.UploadDocumentInput{File: file, Header: header})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestDocumentService_Upload_UnreadablePDF(t *testing.T) {
	svc, _ := setupDocumentService("")

	file, header := createMultipartFile(t, "broken.pdf", []byte("%PDF-1.4 garbage with no xref"), "application/pdf")
	defer file.Close()

	_, err := svc.Upload(context.Background(), service.UploadDocumentInput{File: file, Header: header})
	assert.ErrorIs(t, err, domain.ErrUnreadableFile)
}

func TestDocumentService_Upload_StorageFailure(t *testing.T) {
	svc, m := setupDocumentService("")

	file, header := createMultipartFile(t, "scan.jpg", jpegContent(), "image/jpeg")
	defer file.Close()

	m.docRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Document")).Return(nil)
	m.storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(nil, errors.New("connection reset"))
	m.docRepo.On("MarkFailed", mock.Anything, mock.AnythingOfType("uuid.UUID"), "upload to storage failed").Return(nil)

	_, err := svc.Upload(context.Background(), service.UploadDocumentInput{File: file, Header: header})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)

	m.docRepo.AssertExpectations(t)
}

// --- Process ---

func processableDoc(fileType domain.FileType) *domain.Document {
	return &domain.Document{
		ID:               uuid.New(),
		OriginalFilename: "claim.png",
		FileType:         fileType,
		S3Bucket:         "test-bucket",
		S3Key:            "documents/x/claim.png",
		Status:           domain.StatusUploaded,
	}
}

func TestDocumentService_Process_Success(t *testing.T) {
	svc, m := setupDocumentService("")

	doc := processableDoc(domain.FileTypePNG)
	res := autoApprovedResult(doc.ID)

	m.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	m.docRepo.On("UpdateStatus", mock.Anything, doc.ID, domain.StatusProcessing).Return(nil)
	m.storage.On("Download", mock.Anything, "test-bucket", "documents/x/claim.png").
		Return(pngContent(), nil)
	m.pipeline.On("Process", mock.Anything, doc.ID, mock.MatchedBy(func(pages []domain.RawPage) bool {
		return len(pages) == 1 && pages[0].Index == 0
	}), "").Return(res, nil)
	m.exRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Extraction"), mock.Anything, mock.Anything).Return(nil)
	m.docRepo.On("UpdateProcessingResult", mock.Anything, doc).Return(nil)

	ex, err := svc.Process(context.Background(), doc.ID, "")

	require.NoError(t, err)
	assert.Equal(t, doc.ID, ex.DocumentID)
	assert.Equal(t, domain.ReviewPending, ex.ReviewState)
	assert.Equal(t, domain.RouteAutoApproved, ex.Decision)
	assert.Equal(t, 0.91, ex.Confidence)
	assert.NotEmpty(t, ex.Payload)

	assert.Equal(t, domain.StatusProcessed, doc.Status)
	require.NotNil(t, doc.DocumentType)
	assert.Equal(t, domain.DocTypeInsuranceClaim, *doc.DocumentType)
	require.NotNil(t, doc.ConfidenceScore)
	assert.Equal(t, 0.91, *doc.ConfidenceScore)

	m.docRepo.AssertExpectations(t)
	m.exRepo.AssertExpectations(t)
	m.pipeline.AssertExpectations(t)
}

func TestDocumentService_Process_AlreadyProcessing(t *testing.T) {
	svc, m := setupDocumentService("")

	doc := processableDoc(domain.FileTypePNG)
	doc.Status = domain.StatusProcessing
	m.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	_, err := svc.Process(context.Background(), doc.ID, "")
	assert.ErrorIs(t, err, domain.ErrDocumentProcessing)
}

func TestDocumentService_Process_NotFound(t *testing.T) {
	svc, m := setupDocumentService("")

	docID := uuid.New()
	m.docRepo.On("GetByID", mock.Anything, docID).Return(nil, domain.ErrDocumentNotFound)

	_, err := svc.Process(context.Background(), docID, "")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentService_Process_ReviewRequired_SendsEmail(t *testing.T) {
	svc, m := setupDocumentService("review@claimlens.test")

	doc := processableDoc(domain.FileTypePNG)
	res := autoApprovedResult(doc.ID)
	res.Decision = domain.RoutePendingReview
	res.Confidence = 0.42
	res.Reasons = []string{"document confidence 0.4200 below threshold 0.80"}

	m.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	m.docRepo.On("UpdateStatus", mock.Anything, doc.ID, domain.StatusProcessing).Return(nil)
	m.storage.On("Download", mock.Anything, doc.S3Bucket, doc.S3Key).Return(pngContent(), nil)
	m.pipeline.On("Process", mock.Anything, doc.ID, mock.Anything, "").Return(res, nil)
	m.exRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Extraction"), mock.Anything, mock.Anything).Return(nil)
	m.docRepo.On("UpdateProcessingResult", mock.Anything, doc).Return(nil)
	m.email.On("SendReviewRequested", mock.Anything, "review@claimlens.test", doc, res.Reasons).Return(nil)

	ex, err := svc.Process(context.Background(), doc.ID, "")

	require.NoError(t, err)
	assert.Equal(t, domain.RoutePendingReview, ex.Decision)
	assert.Equal(t, domain.StatusReviewRequired, doc.Status)

	m.email.AssertExpectations(t)
}

func TestDocumentService_Process_PipelineFatal(t *testing.T) {
	svc, m := setupDocumentService("review@claimlens.test")

	doc := processableDoc(domain.FileTypePNG)
	fatal := &domain.TypeResolutionError{Hint: "unknown"}

	m.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	m.docRepo.On("UpdateStatus", mock.Anything, doc.ID, domain.StatusProcessing).Return(nil)
	m.storage.On("Download", mock.Anything, doc.S3Bucket, doc.S3Key).Return(pngContent(), nil)
	m.pipeline.On("Process", mock.Anything, doc.ID, mock.Anything, "").Return(nil, fatal)
	m.docRepo.On("MarkFailed", mock.Anything, doc.ID, mock.AnythingOfType("string")).Return(nil)
	m.email.On("SendProcessingFailed", mock.Anything, "review@claimlens.test", doc, mock.AnythingOfType("string")).Return(nil)

	_, err := svc.Process(context.Background(), doc.ID, "")

	require.Error(t, err)
	var trErr *domain.TypeResolutionError
	assert.ErrorAs(t, err, &trErr)

	m.docRepo.AssertExpectations(t)
	m.email.AssertExpectations(t)
}

func TestDocumentService_Process_DownloadFailure(t *testing.T) {
	svc, m := setupDocumentService("")

	doc := processableDoc(domain.FileTypePNG)

	m.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	m.docRepo.On("UpdateStatus", mock.Anything, doc.ID, domain.StatusProcessing).Return(nil)
	m.storage.On("Download", mock.Anything, doc.S3Bucket, doc.S3Key).Return(nil, errors.New("no such key"))
	m.docRepo.On("MarkFailed", mock.Anything, doc.ID, mock.AnythingOfType("string")).Return(nil)

	_, err := svc.Process(context.Background(), doc.ID, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "downloading document")

	m.docRepo.AssertExpectations(t)
}

func TestDocumentService_ProcessDocument_PDFRasterized(t *testing.T) {
	svc, m := setupDocumentService("")

	doc := processableDoc(domain.FileTypePDF)
	doc.Status = domain.StatusProcessing
	res := autoApprovedResult(doc.ID)
	pdfBytes := []byte("%PDF-1.4 stand-in")

	m.storage.On("Download", mock.Anything, doc.S3Bucket, doc.S3Key).Return(pdfBytes, nil)
	m.rasterizer.On("Rasterize", mock.Anything, pdfBytes).Return([][]byte{pngContent(), pngContent()}, nil)
	m.pipeline.On("Process", mock.Anything, doc.ID, mock.MatchedBy(func(pages []domain.RawPage) bool {
		return len(pages) == 2 && pages[1].Index == 1
	}), "").Return(res, nil)
	m.exRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Extraction"), mock.Anything, mock.Anything).Return(nil)
	m.docRepo.On("UpdateProcessingResult", mock.Anything, doc).Return(nil)

	_, err := svc.ProcessDocument(context.Background(), doc, "")

	require.NoError(t, err)
	m.rasterizer.AssertExpectations(t)
	m.pipeline.AssertExpectations(t)
}

func TestDocumentService_ProcessDocument_TypeHintFallback(t *testing.T) {
	svc, m := setupDocumentService("")

	doc := processableDoc(domain.FileTypePNG)
	doc.Status = domain.StatusProcessing
	doc.TypeHint = "medical_bill"
	res := autoApprovedResult(doc.ID)
	res.DocumentType = domain.DocTypeMedicalBill

	m.storage.On("Download", mock.Anything, doc.S3Bucket, doc.S3Key).Return(pngContent(), nil)
	m.pipeline.On("Process", mock.Anything, doc.ID, mock.Anything, "medical_bill").Return(res, nil)
	m.exRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Extraction"), mock.Anything, mock.Anything).Return(nil)
	m.docRepo.On("UpdateProcessingResult", mock.Anything, doc).Return(nil)

	_, err := svc.ProcessDocument(context.Background(), doc, "")

	require.NoError(t, err)
	m.pipeline.AssertExpectations(t)
}

// --- Reads ---

func TestDocumentService_GetDownloadURL(t *testing.T) {
	svc, m := setupDocumentService("")

	doc := processableDoc(domain.FileTypePNG)
	m.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	m.storage.On("GetPresignedURL", mock.Anything, doc.S3Bucket, doc.S3Key, doc.OriginalFilename, int64(3600)).
		Return("https://presigned.example/claim.png", nil)

	url, err := svc.GetDownloadURL(context.Background(), doc.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://presigned.example/claim.png", url)
}

func TestDocumentService_GetLatestExtraction(t *testing.T) {
	svc, m := setupDocumentService("")

	doc := processableDoc(domain.FileTypePNG)
	ex := &domain.Extraction{ID: 4, DocumentID: doc.ID, Version: 2, Payload: json.RawMessage(`{}`)}

	m.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	m.exRepo.On("GetLatest", mock.Anything, doc.ID).Return(ex, nil)

	got, err := svc.GetLatestExtraction(context.Background(), doc.ID)

	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestDocumentService_GetLatestExtraction_DocumentNotFound(t *testing.T) {
	svc, m := setupDocumentService("")

	docID := uuid.New()
	m.docRepo.On("GetByID", mock.Anything, docID).Return(nil, domain.ErrDocumentNotFound)

	_, err := svc.GetLatestExtraction(context.Background(), docID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
