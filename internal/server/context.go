package server

import (
	"github.com/decodingchris/prompttest/internal/llm"
)

// Context holds shared dependencies for MCP tool handlers.
type Context struct {
	LLMClient  llm.Client
	SuitesDir  string
	PromptsDir string
	ReportsDir string
	CacheDir   string

	// MaxConcurrency caps concurrent test cases per suite. 0 means unbounded.
	MaxConcurrency int
}
