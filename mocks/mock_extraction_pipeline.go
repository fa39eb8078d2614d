package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"claimlens/internal/domain"
)

// MockExtractionPipeline is a mock implementation of port.ExtractionPipeline.
type MockExtractionPipeline struct {
	mock.Mock
}

func (m *MockExtractionPipeline) Process(ctx context.Context, documentID uuid.UUID, pages []domain.RawPage, typeHint string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, documentID, pages, typeHint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}
