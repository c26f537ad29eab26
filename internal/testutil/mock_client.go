// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/decodingchris/prompttest/internal/llm"
)

// MockLLMClient is a configurable mock for llm.Client used across test
// packages. It is safe for concurrent use.
type MockLLMClient struct {
	// Responses maps user messages to canned responses.
	Responses map[string]string

	// DefaultResponse is returned when no matching key is found in Responses.
	DefaultResponse string

	// ResponseFunc, when set, overrides Responses and DefaultResponse.
	ResponseFunc func(req llm.ChatRequest) (string, error)

	mu sync.Mutex

	// Calls tracks the number of ChatCompletion invocations.
	Calls int

	// LastRequest stores the most recent ChatRequest for inspection.
	LastRequest llm.ChatRequest
}

func (m *MockLLMClient) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.Calls++
	m.LastRequest = req
	m.mu.Unlock()

	if m.ResponseFunc != nil {
		content, err := m.ResponseFunc(req)
		if err != nil {
			return nil, err
		}
		return &llm.ChatResponse{Content: content}, nil
	}

	if resp, ok := m.Responses[req.UserMessage]; ok {
		return &llm.ChatResponse{Content: resp}, nil
	}

	if m.DefaultResponse != "" {
		return &llm.ChatResponse{Content: m.DefaultResponse}, nil
	}

	return &llm.ChatResponse{Content: "mock response"}, nil
}

func (m *MockLLMClient) ChatCompletionStream(_ context.Context, _ llm.ChatRequest) (*llm.StreamReader, error) {
	return nil, fmt.Errorf("streaming not supported in mock")
}

// CallCount returns the number of ChatCompletion invocations so far.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
