// Package report writes per-test Markdown reports and a machine-readable
// summary for each run into a timestamped directory.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/decodingchris/prompttest/internal/testsuite"
)

// Writer writes one run's reports.
type Writer struct {
	reportsDir string
	promptsDir string
	runDir     string
	created    time.Time
}

// NewWriter creates the reports directory and a timestamped run directory
// beneath it.
func NewWriter(reportsDir, promptsDir string, now time.Time) (*Writer, error) {
	runDir := filepath.Join(reportsDir, now.Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &Writer{
		reportsDir: reportsDir,
		promptsDir: promptsDir,
		runDir:     runDir,
		created:    now,
	}, nil
}

// RunDir returns the directory reports are written into.
func (w *Writer) RunDir() string {
	return w.runDir
}

// ReportPath returns where the report for a result lives. File names join
// the suite file's stem and the test id.
func (w *Writer) ReportPath(result *testsuite.TestResult) string {
	base := filepath.Base(result.SuitePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s-%s.md", SanitizeFilename(stem), SanitizeFilename(result.TestCase.ID))
	return filepath.Join(w.runDir, name)
}

// WriteAll writes a Markdown report for every result in the run, passed or
// failed.
func (w *Writer) WriteAll(summary *testsuite.RunSummary) error {
	for _, suiteResult := range summary.Suites {
		for _, result := range suiteResult.Results {
			if err := w.Write(result); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write renders one result's Markdown report.
func (w *Writer) Write(result *testsuite.TestResult) error {
	statusEmoji, statusText := "✅", "Pass"
	if !result.Passed {
		statusEmoji, statusText = "❌", "Failure"
	}

	promptFile := filepath.Join(w.promptsDir, result.PromptName+".txt")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Test %s Report: `%s`\n\n", statusEmoji, statusText, result.TestCase.ID)
	fmt.Fprintf(&b, "- **Test File**: [%s](%s)\n", result.SuitePath, mdRelPath(result.SuitePath, w.runDir))
	fmt.Fprintf(&b, "- **Prompt File**: [%s](%s)\n", promptFile, mdRelPath(promptFile, w.runDir))
	fmt.Fprintf(&b, "- **Generation Model**: `%s`\n", result.Config.GenerationModel)
	fmt.Fprintf(&b, "- **Evaluation Model**: `%s`\n\n", result.Config.EvaluationModel)
	fmt.Fprintf(&b, "## Request (Prompt + Values)\n```text\n%s\n```\n\n", strings.TrimSpace(result.RenderedPrompt))
	fmt.Fprintf(&b, "## Criteria\n> %s\n\n", strings.TrimSpace(result.TestCase.Criteria))
	fmt.Fprintf(&b, "## Response\n%s\n\n", strings.TrimSpace(result.Response))
	fmt.Fprintf(&b, "## Evaluation\n> %s\n", strings.TrimSpace(result.Evaluation))
	if result.Err != "" {
		fmt.Fprintf(&b, "\n## Error\n```text\n%s\n```\n", strings.TrimSpace(result.Err))
	}

	if err := os.WriteFile(w.ReportPath(result), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write report for %s: %w", result.TestCase.ID, err)
	}
	return nil
}

// WriteSummary writes summary.json with the run's aggregate outcome.
func (w *Writer) WriteSummary(summary *testsuite.RunSummary) error {
	suites := make([]map[string]any, 0, len(summary.Suites))
	for _, suiteResult := range summary.Suites {
		tests := make([]map[string]any, 0, len(suiteResult.Results))
		for _, result := range suiteResult.Results {
			entry := map[string]any{
				"id":       result.TestCase.ID,
				"passed":   result.Passed,
				"cached":   result.Cached,
				"duration": result.Duration.Seconds(),
				"report":   filepath.Base(w.ReportPath(result)),
			}
			if result.Err != "" {
				entry["error"] = result.Err
			}
			tests = append(tests, entry)
		}
		suites = append(suites, map[string]any{
			"suite":  suiteResult.Suite.FilePath,
			"prompt": suiteResult.Suite.PromptName,
			"tests":  tests,
		})
	}

	payload := map[string]any{
		"timestamp": w.created.Format(time.RFC3339),
		"total":     summary.Total,
		"passed":    summary.Passed,
		"failed":    summary.Failed,
		"duration":  summary.Duration.Seconds(),
		"suites":    suites,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return os.WriteFile(filepath.Join(w.runDir, "summary.json"), data, 0o644)
}

// WriteLatestLink points reportsDir/latest at the current run directory.
// When symlinks are unavailable the run directory is copied instead.
func (w *Writer) WriteLatestLink() error {
	latest := filepath.Join(w.reportsDir, "latest")
	if err := os.RemoveAll(latest); err != nil {
		return fmt.Errorf("could not remove existing latest link: %w", err)
	}

	if err := os.Symlink(filepath.Base(w.runDir), latest); err == nil {
		return nil
	}
	if abs, err := filepath.Abs(w.runDir); err == nil {
		if err := os.Symlink(abs, latest); err == nil {
			return nil
		}
	}

	slog.Warn("could not create latest symlink, copying run directory instead", "run_dir", w.runDir)
	return copyDir(w.runDir, latest)
}

// mdRelPath returns a Markdown-friendly relative path with forward slashes.
func mdRelPath(target, start string) string {
	absTarget, err1 := filepath.Abs(target)
	absStart, err2 := filepath.Abs(start)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(absStart, absTarget)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		data, err := os.ReadFile(srcPath)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dstPath, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

var (
	illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	underscoreRuns       = regexp.MustCompile(`_+`)
)

// SanitizeFilename makes a string safe to use as a file name: illegal
// characters become underscores, runs of underscores collapse, and leading
// or trailing dots, underscores and spaces are trimmed.
func SanitizeFilename(name string) string {
	s := illegalFilenameChars.ReplaceAllString(name, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._ ")
	if s == "" {
		return "item"
	}
	return s
}
