package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/decodingchris/prompttest/internal/evaluator"
	"github.com/decodingchris/prompttest/internal/llm"
	"github.com/decodingchris/prompttest/internal/server"
)

func handleEvaluateResponse(ctx context.Context, request mcp.CallToolRequest, sc *server.Context) (*mcp.CallToolResult, error) {
	if sc.LLMClient == nil {
		return mcp.NewToolResultError("LLM client is not configured"), nil
	}

	args := request.GetArguments()

	response, ok := args["response"].(string)
	if !ok || response == "" {
		return mcp.NewToolResultError("response is required"), nil
	}
	criteria, ok := args["criteria"].(string)
	if !ok || criteria == "" {
		return mcp.NewToolResultError("criteria is required"), nil
	}

	model := evaluator.DefaultJudgeModel
	if m, ok := args["model"].(string); ok && m != "" {
		model = m
	}
	temperature := 0.0
	if t, ok := args["temperature"].(float64); ok {
		temperature = t
	}

	e := evaluator.New(sc.LLMClient, llm.NewDiskCache(sc.CacheDir))
	verdict, err := e.Evaluate(ctx, response, criteria, model, temperature)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"passed": verdict.Passed,
		"reason": verdict.Reason,
		"cached": verdict.Cached,
		"model":  model,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal verdict: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
