package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claimlens/internal/domain"
)

// MockReportService is a mock implementation of service.ReportService.
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) ExportRows(ctx context.Context, status *domain.DocumentStatus) ([]domain.ExportRow, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExportRow), args.Error(1)
}

func (m *MockReportService) BuildXLSX(ctx context.Context, status *domain.DocumentStatus) ([]byte, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
