package csvexport

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"claimlens/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row (20 columns). Field columns cover the
// union of both document type schemas; columns the type does not define
// stay empty.
var columns = []string{
	"Document Name",
	"Status",
	"Document Type",
	"Decision",
	"Review State",
	"Confidence",
	"Claim Number",
	"Invoice Number",
	"Claimant Name",
	"Patient Name",
	"Policy Number",
	"Provider Name",
	"Date of Service",
	"Total Amount",
	"Line Item Count",
	"Missing Critical",
	"Warnings",
	"Model Used",
	"Extracted At",
	"Created At",
}

// Writer wraps csv.Writer for exporting extraction results as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the 20-column header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRows converts a batch of export rows to CSV records and writes them.
func (w *Writer) WriteRows(rows []domain.ExportRow) error {
	for i := range rows {
		rec := exportRowRecord(&rows[i])
		if err := w.csv.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// exportRowRecord converts one export row to a 20-element string slice.
// Document columns are always filled; extraction columns only when the
// document has an extraction with a readable payload.
func exportRowRecord(row *domain.ExportRow) []string {
	rec := make([]string, len(columns))

	doc := &row.Document
	rec[0] = doc.OriginalFilename
	rec[1] = string(doc.Status)
	if doc.DocumentType != nil {
		rec[2] = string(*doc.DocumentType)
	}
	rec[19] = doc.CreatedAt.Format(time.RFC3339)

	ex := row.Extraction
	if ex == nil {
		return rec
	}
	rec[3] = string(ex.Decision)
	rec[4] = string(ex.ReviewState)
	rec[5] = formatScore(ex.Confidence)
	rec[17] = ex.ModelUsed
	rec[18] = ex.CreatedAt.Format(time.RFC3339)

	var res domain.ExtractionResult
	if err := json.Unmarshal(ex.Payload, &res); err != nil {
		return rec
	}

	rec[6] = fieldValue(&res, "claim_number")
	rec[7] = fieldValue(&res, "invoice_number")
	rec[8] = fieldValue(&res, "claimant_name")
	rec[9] = fieldValue(&res, "patient_name")
	rec[10] = fieldValue(&res, "policy_number")
	rec[11] = fieldValue(&res, "provider_name")
	rec[12] = fieldValue(&res, "date_of_service")
	rec[13] = fieldValue(&res, "total_amount")
	rec[14] = strconv.Itoa(len(res.LineItems))
	rec[15] = strings.Join(res.MissingCritical, "; ")
	rec[16] = strings.Join(res.Warnings, "; ")

	return rec
}

func fieldValue(res *domain.ExtractionResult, name string) string {
	f := res.Field(name)
	if f == nil || f.Value == nil {
		return ""
	}
	return *f.Value
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans an export scope name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_scope}_{YYYY-MM-DD}.csv
func BuildFilename(scope string) string {
	sanitized := SanitizeFilename(scope)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.csv", sanitized, date)
}
