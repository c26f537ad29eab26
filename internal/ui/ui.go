// Package ui renders run output for the terminal.
package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/decodingchris/prompttest/internal/testsuite"
)

// MaxFailureLines caps how many lines of criteria, response and evaluation
// are shown inline for a failed test. The full text lives in the report.
const MaxFailureLines = 3

// Printer writes human-readable run output.
type Printer struct {
	out        io.Writer
	promptsDir string
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer, promptsDir string) *Printer {
	return &Printer{out: out, promptsDir: promptsDir}
}

// Progress redraws an in-place counter as test cases finish.
func (p *Printer) Progress(completed, total int) {
	fmt.Fprintf(p.out, "\rRunning tests [%d/%d]", completed, total)
	if completed >= total {
		fmt.Fprintln(p.out)
	}
}

// SuiteHeader prints the suite's files and models.
func (p *Printer) SuiteHeader(suite *testsuite.TestSuite) {
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "Test File:        %s\n", suite.FilePath)
	fmt.Fprintf(p.out, "Prompt File:      %s\n", filepath.Join(p.promptsDir, suite.PromptName+".txt"))
	fmt.Fprintf(p.out, "Generation Model: %s\n", orNA(suite.Config.GenerationModel))
	fmt.Fprintf(p.out, "Evaluation Model: %s\n", orNA(suite.Config.EvaluationModel))
}

// SuiteResults prints one line per test case.
func (p *Printer) SuiteResults(result *testsuite.SuiteResult) {
	for _, res := range result.Results {
		status := "✅ PASS"
		if !res.Passed {
			status = "❌ FAIL"
		}
		cached := ""
		if res.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(p.out, "  %s: %s%s\n", status, res.TestCase.ID, cached)
	}
}

// Failures prints details for every failed test. reportPath maps a result
// to its full report on disk.
func (p *Printer) Failures(summary *testsuite.RunSummary, reportPath func(*testsuite.TestResult) string) {
	for _, suiteResult := range summary.Suites {
		for _, res := range suiteResult.Results {
			if res.Passed {
				continue
			}

			fmt.Fprintf(p.out, "\n❌ %s\n", res.TestCase.ID)
			if res.Err != "" {
				fmt.Fprintf(p.out, "  Error:       %s\n", indent(res.Err))
				continue
			}
			fmt.Fprintf(p.out, "  Criteria:    %s\n", indent(truncate(res.TestCase.Criteria)))
			fmt.Fprintf(p.out, "  Response:    %s\n", indent(truncate(res.Response)))
			fmt.Fprintf(p.out, "  Evaluation:  %s\n", indent(truncate(res.Evaluation)))
			fmt.Fprintf(p.out, "  Full Report: %s\n", reportPath(res))
		}
	}
}

// Summary prints the final pass/fail tally.
func (p *Printer) Summary(summary *testsuite.RunSummary) {
	fmt.Fprintf(p.out, "\n%d failed, %d passed in %.2fs\n", summary.Failed, summary.Passed, summary.Duration.Seconds())
}

// NoTests reports an empty run.
func (p *Printer) NoTests() {
	fmt.Fprintln(p.out, "No tests found.")
}

// Error reports a fatal error.
func (p *Printer) Error(err error) {
	fmt.Fprintf(p.out, "Error: %v\n", err)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// truncate keeps the first MaxFailureLines lines and marks the cut.
func truncate(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > MaxFailureLines {
		return strings.Join(lines[:MaxFailureLines], "\n") + "\n[...]"
	}
	return strings.Join(lines, "\n")
}

// indent pushes continuation lines under the value column.
func indent(text string) string {
	return strings.ReplaceAll(text, "\n", "\n               ")
}
