package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prompttest",
	Short: "Test your LLM prompts against plain-language criteria",
	Long: `prompttest runs YAML-defined test suites against your prompt templates.
For every test case the prompt is rendered with the case's inputs, sent to the
generation model, and the response is judged against the case's criteria by an
evaluation model.

When run without subcommands, every suite under the suites directory is run
(equivalent to 'prompttest run').`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

// runCmd is stored so the root command can delegate to it by default.
var runCmd *cobra.Command

var (
	buildCommit = "unknown"
	buildDate   = "unknown"
)

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetBuildInfo sets the commit and build date for the version command.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "prompttest version %s\n" .Version}}`)

	// Bare `prompttest` runs everything.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(runCmd, args)
	}
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		// Test failures already printed their summary.
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	runCmd = newRunCmd()
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("suites-dir", "prompttests", "Directory containing test suite files")
	rootCmd.PersistentFlags().String("prompts-dir", "prompts", "Directory containing prompt template files")
	rootCmd.PersistentFlags().String("reports-dir", ".prompttest_reports", "Directory for run reports")
	rootCmd.PersistentFlags().String("cache-dir", ".prompttest_cache", "Directory for cached LLM responses")
}
