// Package llmtest provides a configurable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/interview-assistant/internal/llm"
)

// MockClient implements llm.Client with overridable behavior and call counting.
type MockClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GetModelFunc        func(tier llm.ModelTier) string
	CloseFunc           func() error

	mu          sync.Mutex
	jsonCalls   int
	textCalls   int
	lastPrompts []string
}

// GenerateContent implements llm.Client.
func (m *MockClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	m.textCalls++
	m.lastPrompts = append(m.lastPrompts, prompt)
	m.mu.Unlock()

	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "Mock summary", nil
}

// GenerateJSON implements llm.Client.
func (m *MockClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	m.jsonCalls++
	m.lastPrompts = append(m.lastPrompts, prompt)
	m.mu.Unlock()

	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{}`, nil
}

// GetModel implements llm.Client.
func (m *MockClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

// Close implements llm.Client.
func (m *MockClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns the number of JSON and text generations made so far.
func (m *MockClient) Calls() (jsonCalls, textCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jsonCalls, m.textCalls
}

// Prompts returns a copy of every prompt received, in order.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lastPrompts...)
}
