package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the OpenRouter endpoint used when no other endpoint is
// configured. Any OpenAI-compatible API works.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client abstracts an OpenAI-compatible LLM API.
type Client interface {
	// ChatCompletion sends a chat completion request and returns the response.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// ChatCompletionStream sends a streaming chat completion request.
	ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error)
}

// ChatRequest is a simplified chat request.
type ChatRequest struct {
	Model         string
	SystemMessage string
	UserMessage   string
	Temperature   float64
}

// ChatResponse holds the result of a chat completion.
type ChatResponse struct {
	Content string
}

// StreamReader wraps a streaming response.
type StreamReader struct {
	stream *openai.ChatCompletionStream
}

// Recv reads the next chunk from the stream.
func (s *StreamReader) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Delta.Content, nil
	}
	return "", nil
}

// Close closes the stream.
func (s *StreamReader) Close() {
	s.stream.Close()
}

// OpenAIClient implements Client using the OpenAI-compatible API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	cfg := &clientConfig{
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	config := openai.DefaultConfig(cfg.apiKey)
	config.BaseURL = cfg.baseURL

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
	}
}

// ChatCompletion sends a non-streaming chat completion request.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages(req),
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, translateError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	return &ChatResponse{
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// ChatCompletionStream sends a streaming chat completion request.
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatRequest) (*StreamReader, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages(req),
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &StreamReader{stream: stream}, nil
}

// messages builds the message list, omitting the system message when the
// request does not carry one.
func messages(req ChatRequest) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if req.SystemMessage != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemMessage,
		})
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})
}

// translateError maps transport-level failures to actionable messages.
func translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("authentication failed, check your OPENROUTER_API_KEY: %w", err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("rate limited by the API: %w", err)
		}
		return fmt.Errorf("API error: %w", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("request timed out: %w", err)
	}

	return fmt.Errorf("chat completion failed: %w", err)
}

// CollectStream reads all chunks from a StreamReader and returns the full content.
func CollectStream(sr *StreamReader) (string, error) {
	defer sr.Close()
	var b strings.Builder
	for {
		chunk, err := sr.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}
