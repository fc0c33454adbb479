package mocks

import (
	"github.com/stretchr/testify/mock"

	"cdicheck/internal/port"
)

// MockGuidelineSource is a mock implementation of port.GuidelineSource.
type MockGuidelineSource struct {
	mock.Mock
}

func (m *MockGuidelineSource) Search(payerKey, query string, topK int) []port.GuidelineHit {
	args := m.Called(payerKey, query, topK)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]port.GuidelineHit)
}

func (m *MockGuidelineSource) SearchByCPT(payerKey string, cptCodes []string, topK int) []port.GuidelineHit {
	args := m.Called(payerKey, cptCodes, topK)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]port.GuidelineHit)
}

func (m *MockGuidelineSource) BuildContext(procName string, hits []port.GuidelineHit, maxChars int, payerKey string) port.GuidelineContext {
	args := m.Called(procName, hits, maxChars, payerKey)
	return args.Get(0).(port.GuidelineContext)
}
