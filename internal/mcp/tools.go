package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/decodingchris/prompttest/internal/server"
)

// RegisterTools registers all MCP tools with the server.
func RegisterTools(s *mcpserver.MCPServer, sc *server.Context) error {
	listTool := mcp.NewTool("list_suites",
		mcp.WithDescription("List discovered prompt test suites with their resolved configuration"),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListSuites(ctx, request, sc)
	})

	runTool := mcp.NewTool("run_suites",
		mcp.WithDescription("Run prompt test suites: generate a response for each test case and judge it against its criteria. Reports are written to the reports directory."),
		mcp.WithString("test_files",
			mcp.Description("Comma-separated glob patterns matched against suite file paths relative to the suites directory (e.g. 'billing/*.yml'). Empty runs every suite."),
		),
		mcp.WithString("test_ids",
			mcp.Description("Comma-separated glob patterns matched against test case ids. Empty runs every case."),
		),
		mcp.WithNumber("max_concurrency",
			mcp.Description("Maximum concurrent test cases per suite (0 = unbounded)"),
		),
	)
	s.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunSuites(ctx, request, sc)
	})

	evaluateTool := mcp.NewTool("evaluate_response",
		mcp.WithDescription("Judge a single response against free-text criteria using an LLM as judge"),
		mcp.WithString("response",
			mcp.Required(),
			mcp.Description("The response text to evaluate"),
		),
		mcp.WithString("criteria",
			mcp.Required(),
			mcp.Description("Free-text pass criteria the response must satisfy"),
		),
		mcp.WithString("model",
			mcp.Description("Judge model to use (default: a free judge model)"),
		),
		mcp.WithNumber("temperature",
			mcp.Description("Judge sampling temperature (default 0.0)"),
		),
	)
	s.AddTool(evaluateTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleEvaluateResponse(ctx, request, sc)
	})

	getResultsTool := mcp.NewTool("get_results",
		mcp.WithDescription("Retrieve past run summaries, or the reports of one run"),
		mcp.WithString("run_id",
			mcp.Description("Specific run directory to retrieve (optional, lists all runs if omitted)"),
		),
	)
	s.AddTool(getResultsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetResults(ctx, request, sc)
	})

	return nil
}
