package diarize

import (
	"context"
	"sync"
)

// Mock is a scriptable backend for tests and local development.
// Results are returned in call order, repeating the last one.
type Mock struct {
	mu      sync.Mutex
	results []Result
	err     error
	calls   int
}

// NewMock creates a mock returning the given results in order.
func NewMock(results ...Result) *Mock {
	return &Mock{results: results}
}

// Fail makes every subsequent call return err.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Diarize was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Diarize returns the next scripted result.
func (m *Mock) Diarize(ctx context.Context, audioPath string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	idx := m.calls
	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	if len(m.results) == 0 {
		return Result{}, nil
	}
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx], nil
}
