package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/decodingchris/prompttest/internal/discovery"
	"github.com/decodingchris/prompttest/internal/evaluator"
	"github.com/decodingchris/prompttest/internal/llm"
	"github.com/decodingchris/prompttest/internal/report"
	"github.com/decodingchris/prompttest/internal/runner"
	"github.com/decodingchris/prompttest/internal/server"
)

func handleRunSuites(ctx context.Context, request mcp.CallToolRequest, sc *server.Context) (*mcp.CallToolResult, error) {
	if sc.LLMClient == nil {
		return mcp.NewToolResultError("LLM client is not configured"), nil
	}

	args := request.GetArguments()
	fileGlobs := splitGlobs(args["test_files"])
	idGlobs := splitGlobs(args["test_ids"])

	maxConcurrency := sc.MaxConcurrency
	if n, ok := args["max_concurrency"].(float64); ok && n > 0 {
		maxConcurrency = int(n)
	}

	d := discovery.New(sc.SuitesDir, sc.PromptsDir)
	suites, err := d.Discover()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discovery failed: %v", err)), nil
	}
	suites = runner.FilterSuites(suites, sc.SuitesDir, fileGlobs, idGlobs)
	if len(suites) == 0 {
		return mcp.NewToolResultText(`{"total": 0, "message": "no tests found"}`), nil
	}

	cache := llm.NewDiskCache(sc.CacheDir)
	r := runner.NewRunner(llm.NewGenerator(sc.LLMClient, cache), evaluator.New(sc.LLMClient, cache), maxConcurrency)
	summary := r.Run(ctx, suites)

	writer, err := report.NewWriter(sc.ReportsDir, sc.PromptsDir, time.Now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create report directory: %v", err)), nil
	}
	if err := writer.WriteAll(summary); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write reports: %v", err)), nil
	}
	if err := writer.WriteSummary(summary); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write summary: %v", err)), nil
	}
	if err := writer.WriteLatestLink(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update latest link: %v", err)), nil
	}

	type testOutcome struct {
		ID         string `json:"id"`
		Passed     bool   `json:"passed"`
		Cached     bool   `json:"cached"`
		Evaluation string `json:"evaluation,omitempty"`
		Error      string `json:"error,omitempty"`
	}
	type suiteOutcome struct {
		Suite  string        `json:"suite"`
		Prompt string        `json:"prompt"`
		Tests  []testOutcome `json:"tests"`
	}

	outcomes := make([]suiteOutcome, 0, len(summary.Suites))
	for _, suiteResult := range summary.Suites {
		out := suiteOutcome{
			Suite:  suiteResult.Suite.FilePath,
			Prompt: suiteResult.Suite.PromptName,
		}
		for _, result := range suiteResult.Results {
			out.Tests = append(out.Tests, testOutcome{
				ID:         result.TestCase.ID,
				Passed:     result.Passed,
				Cached:     result.Cached,
				Evaluation: result.Evaluation,
				Error:      result.Err,
			})
		}
		outcomes = append(outcomes, out)
	}

	payload := map[string]any{
		"total":      summary.Total,
		"passed":     summary.Passed,
		"failed":     summary.Failed,
		"duration":   summary.Duration.String(),
		"report_dir": writer.RunDir(),
		"suites":     outcomes,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// splitGlobs turns a comma-separated argument into a clean glob list.
func splitGlobs(value any) []string {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var globs []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			globs = append(globs, part)
		}
	}
	return globs
}
