package llm

import (
	"context"
	"log/slog"
)

// Generator produces model responses for rendered prompts, consulting the
// disk cache first. A nil cache disables caching.
type Generator struct {
	client Client
	cache  *DiskCache
}

// NewGenerator creates a Generator backed by client and cache.
func NewGenerator(client Client, cache *DiskCache) *Generator {
	return &Generator{client: client, cache: cache}
}

// Generate returns the model's response to prompt, reporting whether it was
// served from the cache.
func (g *Generator) Generate(ctx context.Context, prompt, model string, temperature float64) (string, bool, error) {
	key := Key(map[string]any{
		"prompt":      prompt,
		"model":       model,
		"temperature": temperature,
	})

	if g.cache != nil {
		if text, ok := g.cache.Read(key); ok {
			slog.Debug("generation cache hit", "model", model, "key", key)
			return text, true, nil
		}
	}

	resp, err := g.client.ChatCompletion(ctx, ChatRequest{
		Model:       model,
		UserMessage: prompt,
		Temperature: temperature,
	})
	if err != nil {
		return "", false, err
	}

	if g.cache != nil {
		if err := g.cache.Write(key, resp.Content); err != nil {
			slog.Warn("failed to write generation cache", "key", key, "error", err)
		}
	}
	return resp.Content, false, nil
}
