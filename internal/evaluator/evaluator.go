// Package evaluator rules on model responses using an LLM as judge.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/decodingchris/prompttest/internal/llm"
)

// Verdict is a parsed judge ruling.
type Verdict struct {
	Passed bool
	Reason string
	Raw    string
	Cached bool
}

// Evaluator asks a judge model whether responses meet their criteria,
// consulting the disk cache first. A nil cache disables caching.
type Evaluator struct {
	client llm.Client
	cache  *llm.DiskCache
}

// New creates an Evaluator backed by client and cache.
func New(client llm.Client, cache *llm.DiskCache) *Evaluator {
	return &Evaluator{client: client, cache: cache}
}

// Evaluate judges response against criteria with the given model.
func (e *Evaluator) Evaluate(ctx context.Context, response, criteria, model string, temperature float64) (*Verdict, error) {
	prompt := fmt.Sprintf(VerdictPrompt, criteria, response)
	key := llm.Key(map[string]any{
		"eval_prompt": prompt,
		"model":       model,
		"temperature": temperature,
	})

	if e.cache != nil {
		if text, ok := e.cache.Read(key); ok {
			slog.Debug("evaluation cache hit", "model", model, "key", key)
			verdict := parseVerdict(text)
			verdict.Cached = true
			return verdict, nil
		}
	}

	text, err := e.complete(ctx, prompt, model, temperature)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Write(key, text); err != nil {
			slog.Warn("failed to write evaluation cache", "key", key, "error", err)
		}
	}
	return parseVerdict(text), nil
}

func (e *Evaluator) complete(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	req := llm.ChatRequest{
		Model:       model,
		UserMessage: prompt,
		Temperature: temperature,
	}

	// Try streaming first.
	stream, err := e.client.ChatCompletionStream(ctx, req)
	if err == nil {
		result, streamErr := llm.CollectStream(stream)
		if streamErr == nil {
			return result, nil
		}
		slog.Warn("streaming evaluation failed, falling back to non-streaming", "error", streamErr)
	} else {
		slog.Debug("streaming not available, using non-streaming", "error", err)
	}

	// Fallback to non-streaming.
	resp, err := e.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("evaluation failed: %w", err)
	}
	return resp.Content, nil
}

// parseVerdict extracts the ruling from the last line of the judge's answer.
func parseVerdict(text string) *Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &Verdict{Raw: text, Reason: "Evaluation failed: LLM returned an empty response."}
	}

	lines := strings.Split(trimmed, "\n")
	lastLine := lines[len(lines)-1]

	if strings.Contains(lastLine, "EVALUATION: PASS") {
		return &Verdict{
			Passed: true,
			Reason: strings.TrimSpace(strings.Replace(lastLine, "EVALUATION: PASS -", "", 1)),
			Raw:    text,
		}
	}
	if strings.Contains(lastLine, "EVALUATION: FAIL") {
		return &Verdict{
			Reason: strings.TrimSpace(strings.Replace(lastLine, "EVALUATION: FAIL -", "", 1)),
			Raw:    text,
		}
	}
	return &Verdict{Raw: text, Reason: "Invalid evaluation format. Full text: " + text}
}
