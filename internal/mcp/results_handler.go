package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/decodingchris/prompttest/internal/server"
)

func handleGetResults(_ context.Context, request mcp.CallToolRequest, sc *server.Context) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	runID, _ := args["run_id"].(string)

	if runID != "" {
		return getSpecificRun(sc.ReportsDir, runID)
	}
	return listRuns(sc.ReportsDir)
}

func listRuns(reportsDir string) (*mcp.CallToolResult, error) {
	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultText("[]"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to read reports directory: %v", err)), nil
	}

	// Keep the zero case a JSON array, not null.
	runs := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		// "latest" points at a run already in the list.
		if !e.IsDir() || e.Name() == "latest" {
			continue
		}

		summaryPath := filepath.Join(reportsDir, e.Name(), "summary.json")
		data, err := os.ReadFile(summaryPath)
		if err != nil {
			continue
		}

		var summary map[string]any
		if err := json.Unmarshal(data, &summary); err != nil {
			continue
		}
		summary["run_id"] = e.Name()
		runs = append(runs, summary)
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal runs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func getSpecificRun(reportsDir, runID string) (*mcp.CallToolResult, error) {
	runPath, err := resolveRunPath(reportsDir, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run_id: %v", err)), nil
	}

	data, err := os.ReadFile(filepath.Join(runPath, "summary.json"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %q not found: %v", runID, err)), nil
	}

	var summary map[string]any
	if err := json.Unmarshal(data, &summary); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse run summary: %v", err)), nil
	}
	summary["run_id"] = runID

	// Include the individual report file names.
	files, _ := os.ReadDir(runPath)
	var reports []string
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".md") {
			reports = append(reports, f.Name())
		}
	}
	summary["reports"] = reports

	result, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}
