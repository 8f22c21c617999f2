package completion

import (
	"context"
	"sync"
)

// Call records one Generate invocation on a Mock.
type Call struct {
	Prompt string
	Params Params
}

// Mock is a deterministic Client for testing.
type Mock struct {
	// Response is the fixed text returned by Generate.
	// If empty, Generate echoes the prompt back.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	mu    sync.Mutex
	calls []Call
}

// NewMock creates a mock client with the given fixed response.
func NewMock(response string) *Mock {
	return &Mock{Response: response}
}

// NewMockWithError creates a mock client that always returns err.
func NewMockWithError(err error) *Mock {
	return &Mock{Error: err}
}

// NewEchoMock creates a mock client that returns every prompt unchanged.
func NewEchoMock() *Mock {
	return &Mock{}
}

// Generate records the call and returns the configured response or error.
func (m *Mock) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Prompt: prompt, Params: params})
	m.mu.Unlock()

	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return prompt, nil
}

// Calls returns a copy of all recorded calls in order.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent call, or false if there was none.
func (m *Mock) LastCall() (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.calls) == 0 {
		return Call{}, false
	}
	return m.calls[len(m.calls)-1], true
}
