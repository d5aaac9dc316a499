package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/ec-order-payments/internal/processor"
)

// MockProcessor is a mock implementation of processor.Client for testing
type MockProcessor struct {
	mu sync.Mutex

	// For tracking calls in tests
	IntentCalls []processor.IntentParams
	RefundCalls []processor.RefundParams

	// Errors returned instead of a result when set
	IntentErr error
	RefundErr error
}

// NewMockProcessor creates a new MockProcessor
func NewMockProcessor() *MockProcessor {
	return &MockProcessor{}
}

// CreateIntent records the call and returns a deterministic intent
func (m *MockProcessor) CreateIntent(ctx context.Context, params processor.IntentParams) (*processor.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IntentCalls = append(m.IntentCalls, params)
	if m.IntentErr != nil {
		return nil, m.IntentErr
	}

	n := len(m.IntentCalls)
	return &processor.Intent{
		ID:           fmt.Sprintf("pi_test_%d", n),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", n),
	}, nil
}

// CreateRefund records the call and returns a pending refund
func (m *MockProcessor) CreateRefund(ctx context.Context, params processor.RefundParams) (*processor.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RefundCalls = append(m.RefundCalls, params)
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}

	return &processor.Refund{
		ID:     fmt.Sprintf("re_test_%d", len(m.RefundCalls)),
		Status: "pending",
	}, nil
}

// MockVerifier is a mock implementation of processor.Verifier for testing
type MockVerifier struct {
	Event *processor.Event
	Err   error

	Calls int
}

func (v *MockVerifier) Verify(payload []byte, signature string) (*processor.Event, error) {
	v.Calls++
	if v.Err != nil {
		return nil, v.Err
	}
	return v.Event, nil
}
