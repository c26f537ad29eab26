package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/decodingchris/prompttest/internal/llm"
)

// newLLMClient creates an LLM client from the endpoint and api-key flags,
// falling back to the OPENROUTER_API_KEY environment variable (loaded from
// .env when present).
func newLLMClient(endpoint, apiKey string) (llm.Client, error) {
	// A missing .env is fine; the key may come from the environment.
	_ = godotenv.Load()

	var opts []llm.Option
	if endpoint != "" {
		opts = append(opts, llm.WithBaseURL(endpoint))
	}

	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured: set OPENROUTER_API_KEY in your environment or .env file, or pass --api-key")
	}
	opts = append(opts, llm.WithAPIKey(apiKey))

	return llm.NewOpenAIClient(opts...), nil
}
