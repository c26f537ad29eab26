package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcptools "github.com/decodingchris/prompttest/internal/mcp"
	"github.com/decodingchris/prompttest/internal/server"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var (
		transport      string
		httpAddr       string
		httpEndpoint   string
		endpoint       string
		apiKey         string
		maxConcurrency int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server to expose prompt testing tools via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default, for IDE integration)
  - streamable-http: HTTP with streaming support (for remote access)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			suitesDir, _ := cmd.InheritedFlags().GetString("suites-dir")
			promptsDir, _ := cmd.InheritedFlags().GetString("prompts-dir")
			reportsDir, _ := cmd.InheritedFlags().GetString("reports-dir")
			cacheDir, _ := cmd.InheritedFlags().GetString("cache-dir")

			sc := &server.Context{
				SuitesDir:      suitesDir,
				PromptsDir:     promptsDir,
				ReportsDir:     reportsDir,
				CacheDir:       cacheDir,
				MaxConcurrency: maxConcurrency,
			}

			// The list and results tools work without a client; run and
			// evaluate report the missing key per call.
			if client, err := newLLMClient(endpoint, apiKey); err == nil {
				sc.LLMClient = client
			}

			mcpSrv := mcpserver.NewMCPServer("prompttest", rootCmd.Version,
				mcpserver.WithToolCapabilities(true),
			)

			if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
				return fmt.Errorf("failed to register MCP tools: %w", err)
			}

			shutdownCtx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			switch transport {
			case transportStdio:
				return runStdioServer(mcpSrv)
			case transportStreamableHTTP:
				fmt.Printf("Starting prompttest MCP server with %s transport...\n", transport)
				return runHTTPServer(mcpSrv, httpAddr, httpEndpoint, shutdownCtx)
			default:
				return fmt.Errorf("unsupported transport: %s (supported: stdio, streamable-http)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "OpenAI-compatible API endpoint URL (default: OpenRouter)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or set OPENROUTER_API_KEY)")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "Maximum concurrent test cases per suite (0 = unbounded)")

	return cmd
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(mcpSrv *mcpserver.MCPServer, addr, endpoint string, ctx context.Context) error {
	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(endpoint),
	)

	mux := http.NewServeMux()
	mux.Handle(endpoint, mcpHandler)

	// Health check.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	fmt.Printf("  HTTP endpoint: %s\n", endpoint)
	fmt.Printf("  Health: /healthz\n")

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	fmt.Println("HTTP server stopped")
	return nil
}
