package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"claimlens/internal/domain"
	"claimlens/internal/handler"
	"claimlens/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newDocumentHandler() (*handler.DocumentHandler, *mocks.MockDocumentService) {
	docSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(docSvc)
	return h, docSvc
}

func uploadedDoc(docID uuid.UUID) *domain.Document {
	return &domain.Document{
		ID:               docID,
		OriginalFilename: "claim.png",
		ContentType:      "image/png",
		FileType:         domain.FileTypePNG,
		FileSize:         108,
		S3Bucket:         "claimlens-uploads",
		S3Key:            "documents/" + docID.String() + ".png",
		PageCount:        1,
		Status:           domain.StatusUploaded,
		CreatedAt:        time.Now(),
	}
}

func storedExtraction(docID uuid.UUID) *domain.Extraction {
	return &domain.Extraction{
		ID:          7,
		DocumentID:  docID,
		Version:     1,
		ReviewState: domain.ReviewPending,
		Payload:     json.RawMessage(`{"document_type":"insurance_claim"}`),
		ModelUsed:   "gpt-4o-mini",
		Decision:    domain.RouteAutoApproved,
		Confidence:  0.91,
		CreatedAt:   time.Now(),
	}
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("Upload", mock.Anything, mock.AnythingOfType("service.UploadDocumentInput")).
		Return(uploadedDoc(docID), nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "claim.png")
	part.Write([]byte("\x89PNG\r\n\x1a\ntest content"))
	writer.WriteField("type_hint", "insurance_claim")
	writer.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	h.Upload(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp handler.APIResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.True(t, resp.Success)
	docSvc.AssertExpectations(t)
}

func TestDocumentHandler_Upload_NoFile(t *testing.T) {
	h, docSvc := newDocumentHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", nil)

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	docSvc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Upload_UnsupportedType(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docSvc.On("Upload", mock.Anything, mock.AnythingOfType("service.UploadDocumentInput")).
		Return(nil, domain.ErrUnsupportedFileType)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "notes.txt")
	part.Write([]byte("plain text"))
	writer.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.APIResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestDocumentHandler_Upload_FileTooLarge(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docSvc.On("Upload", mock.Anything, mock.AnythingOfType("service.UploadDocumentInput")).
		Return(nil, domain.ErrFileTooLarge)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "scan.pdf")
	part.Write([]byte("%PDF-1.4 test"))
	writer.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	h.Upload(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDocumentHandler_GetByID_Success(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("GetByID", mock.Anything, docID).Return(uploadedDoc(docID), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)
	docSvc.AssertExpectations(t)
}

func TestDocumentHandler_GetByID_InvalidID(t *testing.T) {
	h, docSvc := newDocumentHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/not-a-uuid", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	docSvc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestDocumentHandler_GetByID_NotFound(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("GetByID", mock.Anything, docID).Return(nil, domain.ErrDocumentNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_List_Defaults(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("List", mock.Anything, (*domain.DocumentStatus)(nil), 0, 20).
		Return([]domain.Document{*uploadedDoc(docID)}, 1, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents", http.NoBody)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)
	assert.Equal(t, 20, resp.Meta.Limit)
	docSvc.AssertExpectations(t)
}

func TestDocumentHandler_List_StatusFilter(t *testing.T) {
	h, docSvc := newDocumentHandler()

	status := domain.StatusReviewRequired
	docSvc.On("List", mock.Anything, &status, 0, 50).
		Return([]domain.Document{}, 0, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents?status=review_required&limit=50", http.NoBody)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	docSvc.AssertExpectations(t)
}

func TestDocumentHandler_List_UnknownStatus(t *testing.T) {
	h, docSvc := newDocumentHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents?status=sideways", http.NoBody)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	docSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_Process_Success(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("Process", mock.Anything, docID, "").Return(storedExtraction(docID), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/process", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.Process(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	docSvc.AssertExpectations(t)
}

func TestDocumentHandler_Process_TypeHintBody(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("Process", mock.Anything, docID, "medical_bill").Return(storedExtraction(docID), nil)

	body := strings.NewReader(`{"type_hint":"medical_bill"}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/process", body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.Process(c)

	assert.Equal(t, http.StatusOK, w.Code)
	docSvc.AssertExpectations(t)
}

func TestDocumentHandler_Process_AlreadyProcessing(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("Process", mock.Anything, docID, "").Return(nil, domain.ErrDocumentProcessing)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/process", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.Process(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDocumentHandler_Process_TypeUnresolved(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("Process", mock.Anything, docID, "").
		Return(nil, &domain.TypeResolutionError{Hint: "receipt"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/process", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.Process(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp handler.APIResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestDocumentHandler_GetDownloadURL_Success(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("GetDownloadURL", mock.Anything, docID).
		Return("https://s3.test/claimlens-uploads/"+docID.String(), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/download", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.GetDownloadURL(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "download_url")
	docSvc.AssertExpectations(t)
}

func TestDocumentHandler_GetLatestExtraction_NotFound(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("GetLatestExtraction", mock.Anything, docID).
		Return(nil, domain.ErrExtractionNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/extractions/latest", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.GetLatestExtraction(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_ListExtractions_Success(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("ListExtractions", mock.Anything, docID).
		Return([]domain.Extraction{*storedExtraction(docID)}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/extractions", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.ListExtractions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	docSvc.AssertExpectations(t)
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	h, docSvc := newDocumentHandler()

	docID := uuid.New()
	docSvc.On("Delete", mock.Anything, docID).Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/api/v1/documents/"+docID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}

	h.Delete(c)

	assert.Equal(t, http.StatusOK, w.Code)
	docSvc.AssertExpectations(t)
}
