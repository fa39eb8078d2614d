package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"claimlens/internal/domain"
)

// MockExtractionRepo is a mock implementation of port.ExtractionRepository.
type MockExtractionRepo struct {
	mock.Mock
}

func (m *MockExtractionRepo) Create(ctx context.Context, ex *domain.Extraction, fields []domain.FieldEvidenceRow, items []domain.LineItemRow) error {
	args := m.Called(ctx, ex, fields, items)
	return args.Error(0)
}

func (m *MockExtractionRepo) GetLatest(ctx context.Context, documentID uuid.UUID) (*domain.Extraction, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Extraction), args.Error(1)
}

func (m *MockExtractionRepo) GetVersion(ctx context.Context, documentID uuid.UUID, version int) (*domain.Extraction, error) {
	args := m.Called(ctx, documentID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Extraction), args.Error(1)
}

func (m *MockExtractionRepo) ListVersions(ctx context.Context, documentID uuid.UUID) ([]domain.Extraction, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Extraction), args.Error(1)
}

func (m *MockExtractionRepo) UpdateReview(ctx context.Context, ex *domain.Extraction) error {
	args := m.Called(ctx, ex)
	return args.Error(0)
}

func (m *MockExtractionRepo) ListFieldEvidence(ctx context.Context, extractionID int64) ([]domain.FieldEvidenceRow, error) {
	args := m.Called(ctx, extractionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FieldEvidenceRow), args.Error(1)
}

func (m *MockExtractionRepo) ListLineItems(ctx context.Context, extractionID int64) ([]domain.LineItemRow, error) {
	args := m.Called(ctx, extractionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LineItemRow), args.Error(1)
}
