package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/decodingchris/prompttest/internal/discovery"
	"github.com/decodingchris/prompttest/internal/evaluator"
	"github.com/decodingchris/prompttest/internal/llm"
	"github.com/decodingchris/prompttest/internal/report"
	"github.com/decodingchris/prompttest/internal/runner"
	"github.com/decodingchris/prompttest/internal/testsuite"
	"github.com/decodingchris/prompttest/internal/ui"
)

// errTestsFailed signals a completed run with failures; the summary has
// already been printed when it is returned.
var errTestsFailed = errors.New("tests failed")

func newRunCmd() *cobra.Command {
	var (
		fileGlobs      []string
		idGlobs        []string
		endpoint       string
		apiKey         string
		maxConcurrency int
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run [patterns...]",
		Short: "Run prompt test suites",
		Long: `Discover and run test suites under the suites directory.

Positional patterns narrow the run: patterns that look like file paths
(a .yml/.yaml suffix or a path separator) select suite files, everything else
selects test ids. Both accept glob syntax.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The root command delegates here without executing this command,
			// so the context may be unset and persistent flags live on the
			// inherited set.
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			suitesDir, _ := cmd.InheritedFlags().GetString("suites-dir")
			promptsDir, _ := cmd.InheritedFlags().GetString("prompts-dir")
			reportsDir, _ := cmd.InheritedFlags().GetString("reports-dir")
			cacheDir, _ := cmd.InheritedFlags().GetString("cache-dir")

			printer := ui.NewPrinter(cmd.OutOrStdout(), promptsDir)

			d := discovery.New(suitesDir, promptsDir)
			suites, err := d.Discover()
			if err != nil {
				printer.Error(err)
				return errTestsFailed
			}

			files, ids := classifyPatterns(args, suites)
			files = append(files, fileGlobs...)
			ids = append(ids, idGlobs...)

			suites = runner.FilterSuites(suites, suitesDir, files, ids)
			if len(suites) == 0 {
				printer.NoTests()
				return nil
			}

			client, err := newLLMClient(endpoint, apiKey)
			if err != nil {
				printer.Error(err)
				return errTestsFailed
			}

			cache := llm.NewDiskCache(cacheDir)
			r := runner.NewRunner(llm.NewGenerator(client, cache), evaluator.New(client, cache), maxConcurrency)
			r.SetSuiteStartFunc(printer.SuiteHeader)
			r.SetSuiteDoneFunc(printer.SuiteResults)
			r.SetProgressFunc(printer.Progress)

			summary := r.Run(ctx, suites)

			writer, err := report.NewWriter(reportsDir, promptsDir, time.Now())
			if err != nil {
				printer.Error(err)
				return errTestsFailed
			}
			if err := writer.WriteAll(summary); err != nil {
				printer.Error(err)
				return errTestsFailed
			}
			if err := writer.WriteSummary(summary); err != nil {
				printer.Error(err)
				return errTestsFailed
			}
			if err := writer.WriteLatestLink(); err != nil {
				printer.Error(err)
				return errTestsFailed
			}

			printer.Failures(summary, writer.ReportPath)
			printer.Summary(summary)

			if summary.Failed > 0 {
				return errTestsFailed
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&fileGlobs, "test-file", nil, "Glob matched against suite paths relative to the suites directory (repeatable)")
	cmd.Flags().StringArrayVar(&idGlobs, "test-id", nil, "Glob matched against test case ids (repeatable)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "OpenAI-compatible API endpoint URL (default: OpenRouter)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or set OPENROUTER_API_KEY)")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "Maximum concurrent test cases per suite (0 = unbounded)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout for the run (e.g. 10m). 0 means no timeout")

	return cmd
}

// classifyPatterns splits positional patterns into file globs and id globs.
// A pattern selects files when it carries a YAML extension, contains a path
// separator, or names the basename of a discovered suite; anything else
// selects test ids. Bare file names are widened to match at any depth.
func classifyPatterns(patterns []string, suites []*testsuite.TestSuite) (fileGlobs, idGlobs []string) {
	basenames := make(map[string]struct{}, len(suites))
	for _, suite := range suites {
		basenames[filepath.Base(suite.FilePath)] = struct{}{}
	}

	for _, pattern := range patterns {
		_, isSuiteName := basenames[pattern]
		hasExt := strings.HasSuffix(pattern, ".yml") || strings.HasSuffix(pattern, ".yaml")
		hasSep := strings.ContainsAny(pattern, `/\`)

		switch {
		case hasSep:
			fileGlobs = append(fileGlobs, pattern)
		case hasExt || isSuiteName:
			fileGlobs = append(fileGlobs, "**/"+pattern)
		default:
			idGlobs = append(idGlobs, pattern)
		}
	}
	return fileGlobs, idGlobs
}
