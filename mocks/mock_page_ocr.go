package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claimlens/internal/domain"
)

// MockPageOCR is a mock implementation of port.PageOCR.
type MockPageOCR struct {
	mock.Mock
}

func (m *MockPageOCR) RecognizePage(ctx context.Context, image []byte, pageIndex int) (*domain.PageEvidence, error) {
	args := m.Called(ctx, image, pageIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PageEvidence), args.Error(1)
}
