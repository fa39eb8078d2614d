package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"claimlens/internal/csvexport"
	"claimlens/internal/domain"
	"claimlens/internal/service"
	"claimlens/internal/xlsxexport"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler handles report download endpoints.
type ExportHandler struct {
	reportService service.ReportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(reportService service.ReportService) *ExportHandler {
	return &ExportHandler{reportService: reportService}
}

// exportScope resolves the optional status filter and the filename scope
// label. Responds with 400 and returns ok=false on an unknown status.
func exportScope(c *gin.Context) (status *domain.DocumentStatus, scope string, ok bool) {
	scope = "documents"
	if statusStr := c.Query("status"); statusStr != "" {
		s := domain.DocumentStatus(statusStr)
		if !domain.ValidDocumentStatuses[s] {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "unknown status filter")
			return nil, "", false
		}
		status = &s
		scope = statusStr + "_documents"
	}
	return status, scope, true
}

// ExportCSV handles GET /api/v1/exports/documents.csv
// @Summary Export documents as CSV
// @Description Download all documents with their latest extraction as a UTF-8 BOM CSV file
// @Tags exports
// @Produce text/csv
// @Param status query string false "Filter by document status"
// @Success 200 {file} file "CSV file"
// @Failure 400 {object} ErrorResponseBody "Unknown status filter"
// @Router /exports/documents.csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	status, scope, ok := exportScope(c)
	if !ok {
		return
	}

	rows, err := h.reportService.ExportRows(c.Request.Context(), status)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := csvexport.BuildFilename(scope)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	// BOM first so spreadsheet tools detect UTF-8.
	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		return
	}
	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteRows(rows); err != nil {
		return
	}
	w.Flush()
}

// ExportXLSX handles GET /api/v1/exports/documents.xlsx
// @Summary Export documents as XLSX
// @Description Download all documents with their latest extraction as a workbook with document, field, and line item sheets
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Filter by document status"
// @Success 200 {file} file "XLSX workbook"
// @Failure 400 {object} ErrorResponseBody "Unknown status filter"
// @Router /exports/documents.xlsx [get]
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	status, scope, ok := exportScope(c)
	if !ok {
		return
	}

	data, err := h.reportService.BuildXLSX(c.Request.Context(), status)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := xlsxexport.BuildFilename(scope)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
