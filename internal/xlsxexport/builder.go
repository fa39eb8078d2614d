package xlsxexport

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"claimlens/internal/csvexport"
	"claimlens/internal/domain"
)

// Sheet names in the generated workbook.
const (
	documentsSheet = "Documents"
	fieldsSheet    = "Fields"
	lineItemsSheet = "Line Items"
)

var documentColumns = []string{
	"Document Name",
	"Status",
	"Document Type",
	"Decision",
	"Review State",
	"Confidence",
	"Version",
	"Field Count",
	"Line Item Count",
	"Missing Critical",
	"Warnings",
	"Model Used",
	"Extracted At",
	"Created At",
}

var fieldColumns = []string{
	"Document Name",
	"Document Type",
	"Field",
	"Value",
	"Method",
	"Confidence",
	"Score",
	"Valid",
	"Violations",
	"Page",
}

var lineItemColumns = []string{
	"Document Name",
	"Row",
	"Service",
	"Code",
	"Amount",
	"Method",
	"Confidence",
	"Score",
	"Violations",
}

// Build renders export rows into a three-sheet workbook: a document
// summary plus per-field and per-line-item detail. Returns the encoded
// XLSX bytes.
func Build(rows []domain.ExportRow) ([]byte, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), documentsSheet); err != nil {
		return nil, fmt.Errorf("naming sheet %s: %w", documentsSheet, err)
	}
	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return nil, fmt.Errorf("creating sheet %s: %w", fieldsSheet, err)
	}
	if _, err := f.NewSheet(lineItemsSheet); err != nil {
		return nil, fmt.Errorf("creating sheet %s: %w", lineItemsSheet, err)
	}

	docs := newSheetWriter(f, documentsSheet)
	fields := newSheetWriter(f, fieldsSheet)
	items := newSheetWriter(f, lineItemsSheet)

	docs.writeRow(headerCells(documentColumns))
	fields.writeRow(headerCells(fieldColumns))
	items.writeRow(headerCells(lineItemColumns))

	for i := range rows {
		writeDocument(docs, fields, items, &rows[i])
	}

	// Widen the name and free-text columns.
	_ = f.SetColWidth(documentsSheet, "A", "A", 32)
	_ = f.SetColWidth(documentsSheet, "J", "K", 40)
	_ = f.SetColWidth(documentsSheet, "M", "N", 20)
	_ = f.SetColWidth(fieldsSheet, "A", "A", 32)
	_ = f.SetColWidth(fieldsSheet, "C", "D", 24)
	_ = f.SetColWidth(fieldsSheet, "I", "I", 40)
	_ = f.SetColWidth(lineItemsSheet, "A", "A", 32)
	_ = f.SetColWidth(lineItemsSheet, "C", "C", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_scope}_{YYYY-MM-DD}.xlsx
func BuildFilename(scope string) string {
	sanitized := csvexport.SanitizeFilename(scope)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.xlsx", sanitized, date)
}

// sheetWriter appends rows to one sheet, tracking the next row number.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func newSheetWriter(f *excelize.File, sheet string) *sheetWriter {
	return &sheetWriter{f: f, sheet: sheet}
}

// writeRow writes values into the next row, one cell per value.
func (w *sheetWriter) writeRow(values []any) {
	w.row++
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, w.row)
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
}

// writeDocument writes one export row across the three sheets. Detail
// sheets only receive rows when the extraction payload decodes.
func writeDocument(docs, fields, items *sheetWriter, row *domain.ExportRow) {
	doc := &row.Document
	ex := row.Extraction
	res := decodeResult(ex)

	rec := make([]any, len(documentColumns))
	rec[0] = doc.OriginalFilename
	rec[1] = string(doc.Status)
	if doc.DocumentType != nil {
		rec[2] = string(*doc.DocumentType)
	}
	rec[13] = doc.CreatedAt.Format(time.RFC3339)
	if ex != nil {
		rec[3] = string(ex.Decision)
		rec[4] = string(ex.ReviewState)
		rec[5] = ex.Confidence
		rec[6] = ex.Version
		rec[11] = ex.ModelUsed
		rec[12] = ex.CreatedAt.Format(time.RFC3339)
	}
	if res != nil {
		rec[7] = len(res.Fields)
		rec[8] = len(res.LineItems)
		rec[9] = strings.Join(res.MissingCritical, "; ")
		rec[10] = strings.Join(res.Warnings, "; ")
	}
	docs.writeRow(rec)

	if res == nil {
		return
	}
	for i := range res.Fields {
		fields.writeRow(fieldCells(doc, res, &res.Fields[i]))
	}
	for i := range res.LineItems {
		items.writeRow(lineItemCells(doc, i, &res.LineItems[i]))
	}
}

func fieldCells(doc *domain.Document, res *domain.ExtractionResult, f *domain.ScoredField) []any {
	return []any{
		doc.OriginalFilename,
		string(res.DocumentType),
		f.Name,
		strDeref(f.Value),
		string(f.Method),
		f.Confidence,
		f.Score,
		f.Valid,
		joinViolations(f.Violations),
		firstPage(f.Evidence),
	}
}

// lineItemCells renders one scored line item; idx mirrors the stored
// row_index.
func lineItemCells(doc *domain.Document, idx int, it *domain.ScoredLineItem) []any {
	return []any{
		doc.OriginalFilename,
		idx,
		strDeref(it.Service),
		strDeref(it.Code),
		floatCell(it.Amount),
		string(it.Method),
		it.Confidence,
		it.Score,
		joinViolations(it.Violations),
	}
}

// decodeResult unpacks the stored payload, or nil when the document has
// no extraction or the payload does not parse.
func decodeResult(ex *domain.Extraction) *domain.ExtractionResult {
	if ex == nil || len(ex.Payload) == 0 {
		return nil
	}
	var res domain.ExtractionResult
	if err := json.Unmarshal(ex.Payload, &res); err != nil {
		return nil
	}
	return &res
}

// firstPage returns the page index of the first anchored evidence ref.
func firstPage(refs []domain.EvidenceRef) any {
	for _, r := range refs {
		if r.Page >= 0 {
			return r.Page
		}
	}
	return nil
}

func joinViolations(vs []domain.Violation) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, fmt.Sprintf("%s: %s", v.FieldPath, v.Reason))
	}
	return strings.Join(parts, "; ")
}

func headerCells(cols []string) []any {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	return vals
}

func strDeref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatCell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
