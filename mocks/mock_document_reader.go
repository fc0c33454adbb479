package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockDocumentReader is a mock implementation of port.DocumentReader.
type MockDocumentReader struct {
	mock.Mock
}

func (m *MockDocumentReader) ReadDocument(path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentReader) ValidateDocument(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}
