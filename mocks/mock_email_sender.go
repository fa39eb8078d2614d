package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claimlens/internal/domain"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendReviewRequested(ctx context.Context, to string, doc *domain.Document, reasons []string) error {
	args := m.Called(ctx, to, doc, reasons)
	return args.Error(0)
}

func (m *MockEmailSender) SendProcessingFailed(ctx context.Context, to string, doc *domain.Document, message string) error {
	args := m.Called(ctx, to, doc, message)
	return args.Error(0)
}
