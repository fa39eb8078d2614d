package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"claimlens/internal/service"
)

// ReviewHandler handles human-review endpoints.
type ReviewHandler struct {
	reviewService service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// Queue handles GET /api/v1/reviews
// @Summary Get review queue
// @Description List documents routed to human review with their latest extraction, newest first
// @Tags reviews
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.ReviewQueueItem,meta=PagMeta} "Review queue"
// @Router /reviews [get]
func (h *ReviewHandler) Queue(c *gin.Context) {
	offset, limit := parsePagination(c)

	items, total, err := h.reviewService.Queue(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, items, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Approve handles POST /api/v1/reviews/:id/approve
// @Summary Approve a document
// @Description Approve a document under review, optionally correcting field values first
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Param request body ApproveDocumentRequest false "Optional field corrections"
// @Success 200 {object} Response{data=domain.Extraction} "Approved extraction"
// @Failure 400 {object} ErrorResponseBody "Invalid ID, malformed body, or unknown correction field"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document is not awaiting review"
// @Router /reviews/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	var req struct {
		Corrections map[string]string `json:"corrections"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body")
			return
		}
	}

	ex, err := h.reviewService.Approve(c.Request.Context(), service.ApproveInput{
		DocumentID:  docID,
		Corrections: req.Corrections,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, ex)
}

// Reject handles POST /api/v1/reviews/:id/reject
// @Summary Reject a document
// @Description Reject a document under review, marking its extraction as rejected
// @Tags reviews
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=domain.Extraction} "Rejected extraction"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document is not awaiting review"
// @Router /reviews/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	ex, err := h.reviewService.Reject(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, ex)
}
