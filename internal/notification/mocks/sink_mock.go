package mocks

import (
	"context"
	"sync"
)

// Notification records a single Notify call
type Notification struct {
	Event   string
	Payload any
}

// MockSink is a mock implementation of notification.Sink for testing
type MockSink struct {
	mu    sync.Mutex
	calls []Notification
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Notify(ctx context.Context, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Notification{Event: event, Payload: payload})
}

// Calls returns a copy of the recorded notifications
func (m *MockSink) Calls() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.calls...)
}

// Events returns the recorded event names in order
func (m *MockSink) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.calls))
	for i, c := range m.calls {
		names[i] = c.Event
	}
	return names
}

// Reset clears recorded notifications
func (m *MockSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
