package service

import (
	"context"
	"errors"
	"fmt"

	"claimlens/internal/domain"
	"claimlens/internal/port"
	"claimlens/internal/xlsxexport"
)

// exportBatchSize caps how many documents are pulled per page while
// assembling an export.
const exportBatchSize = 200

// ReportService assembles document rows for the CSV export and renders
// the XLSX review report.
type ReportService interface {
	// ExportRows returns every document, optionally filtered by status,
	// paired with its latest extraction, newest first.
	ExportRows(ctx context.Context, status *domain.DocumentStatus) ([]domain.ExportRow, error)
	// BuildXLSX renders the same rows into an XLSX workbook.
	BuildXLSX(ctx context.Context, status *domain.DocumentStatus) ([]byte, error)
}

type reportService struct {
	docRepo port.DocumentRepository
	exRepo  port.ExtractionRepository
}

func NewReportService(docRepo port.DocumentRepository, exRepo port.ExtractionRepository) ReportService {
	return &reportService{docRepo: docRepo, exRepo: exRepo}
}

func (s *reportService) ExportRows(ctx context.Context, status *domain.DocumentStatus) ([]domain.ExportRow, error) {
	var rows []domain.ExportRow
	for offset := 0; ; offset += exportBatchSize {
		docs, total, err := s.docRepo.List(ctx, status, offset, exportBatchSize)
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}
		for i := range docs {
			ex, err := s.exRepo.GetLatest(ctx, docs[i].ID)
			if err != nil && !errors.Is(err, domain.ErrExtractionNotFound) {
				return nil, fmt.Errorf("loading extraction for %s: %w", docs[i].ID, err)
			}
			rows = append(rows, domain.ExportRow{Document: docs[i], Extraction: ex})
		}
		if len(docs) < exportBatchSize || len(rows) >= total {
			return rows, nil
		}
	}
}

func (s *reportService) BuildXLSX(ctx context.Context, status *domain.DocumentStatus) ([]byte, error) {
	rows, err := s.ExportRows(ctx, status)
	if err != nil {
		return nil, err
	}
	data, err := xlsxexport.Build(rows)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	return data, nil
}
