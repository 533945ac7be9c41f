package llm

import (
	"context"
	"sync"
)

// MockResponse defines a canned response for the mock provider.
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider returns pre-configured responses in sequence and keeps
// returning the last one once they run out. It records every request.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     []Request
	idx       int
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock that returns the given responses in order.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Complete returns the next canned response and records the request.
func (m *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.responses) == 0 {
		return &Response{Model: "mock"}, nil
	}

	r := m.responses[m.idx]
	if m.idx < len(m.responses)-1 {
		m.idx++
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &Response{Content: r.Content, Model: "mock"}, nil
}

// Calls returns a copy of all requests received so far.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
