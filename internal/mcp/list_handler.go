package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/decodingchris/prompttest/internal/discovery"
	"github.com/decodingchris/prompttest/internal/server"
)

func handleListSuites(_ context.Context, _ mcp.CallToolRequest, sc *server.Context) (*mcp.CallToolResult, error) {
	d := discovery.New(sc.SuitesDir, sc.PromptsDir)
	suites, err := d.Discover()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discovery failed: %v", err)), nil
	}

	type suiteInfo struct {
		Path            string `json:"path"`
		Prompt          string `json:"prompt"`
		GenerationModel string `json:"generation_model,omitempty"`
		EvaluationModel string `json:"evaluation_model,omitempty"`
		TestCount       int    `json:"test_count"`
	}

	infos := make([]suiteInfo, 0, len(suites))
	for _, suite := range suites {
		infos = append(infos, suiteInfo{
			Path:            suite.FilePath,
			Prompt:          suite.PromptName,
			GenerationModel: suite.Config.GenerationModel,
			EvaluationModel: suite.Config.EvaluationModel,
			TestCount:       len(suite.Tests),
		})
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal suites: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
