package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/decodingchris/prompttest/internal/evaluator"
	"github.com/decodingchris/prompttest/internal/llm"
	"github.com/decodingchris/prompttest/internal/testsuite"
)

// ProgressFunc is called once per finished test case.
type ProgressFunc func(completed, total int)

// SuiteStartFunc is called before a suite's test cases start executing.
type SuiteStartFunc func(suite *testsuite.TestSuite)

// SuiteDoneFunc is called after all of a suite's test cases have finished.
type SuiteDoneFunc func(result *testsuite.SuiteResult)

// Runner executes test suites. Suites run sequentially so their output
// stays grouped; the cases within one suite run concurrently, capped by
// maxConcurrency when it is positive.
type Runner struct {
	generator      *llm.Generator
	evaluator      *evaluator.Evaluator
	maxConcurrency int
	progress       ProgressFunc
	suiteStart     SuiteStartFunc
	suiteDone      SuiteDoneFunc
}

// NewRunner creates a test runner.
func NewRunner(generator *llm.Generator, eval *evaluator.Evaluator, maxConcurrency int) *Runner {
	return &Runner{
		generator:      generator,
		evaluator:      eval,
		maxConcurrency: maxConcurrency,
	}
}

// SetProgressFunc sets the progress callback.
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.progress = fn
}

// SetSuiteStartFunc sets the per-suite start callback.
func (r *Runner) SetSuiteStartFunc(fn SuiteStartFunc) {
	r.suiteStart = fn
}

// SetSuiteDoneFunc sets the per-suite completion callback.
func (r *Runner) SetSuiteDoneFunc(fn SuiteDoneFunc) {
	r.suiteDone = fn
}

// Run executes every suite and aggregates the results. Generation and
// evaluation failures are recorded on the affected test result rather than
// aborting the run.
func (r *Runner) Run(ctx context.Context, suites []*testsuite.TestSuite) *testsuite.RunSummary {
	start := time.Now()

	total := 0
	for _, suite := range suites {
		total += len(suite.Tests)
	}

	summary := &testsuite.RunSummary{}
	var mu sync.Mutex
	completed := 0

	for _, suite := range suites {
		if err := ctx.Err(); err != nil {
			slog.Warn("run cancelled before suite", "suite", suite.FilePath)
			break
		}

		if r.suiteStart != nil {
			r.suiteStart(suite)
		}

		slog.Info("running suite",
			"suite", suite.FilePath,
			"tests", len(suite.Tests),
			"generation_model", suite.Config.GenerationModel,
			"evaluation_model", suite.Config.EvaluationModel,
		)

		suiteResult := r.runSuite(ctx, suite, total, &mu, &completed)
		summary.Suites = append(summary.Suites, suiteResult)

		if r.suiteDone != nil {
			r.suiteDone(suiteResult)
		}
	}

	for _, suiteResult := range summary.Suites {
		for _, result := range suiteResult.Results {
			summary.Total++
			if result.Passed {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
	}
	summary.Duration = time.Since(start)

	slog.Info("run complete",
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	return summary
}

func (r *Runner) runSuite(parent context.Context, suite *testsuite.TestSuite, total int, mu *sync.Mutex, completed *int) *testsuite.SuiteResult {
	results := make([]*testsuite.TestResult, len(suite.Tests))

	g, ctx := errgroup.WithContext(parent)
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}

	for i, tc := range suite.Tests {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = r.failCase(suite, tc, time.Now(), err)
				return err
			}

			results[i] = r.runCase(ctx, suite, tc)

			mu.Lock()
			*completed++
			done := *completed
			mu.Unlock()
			if r.progress != nil {
				r.progress(done, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("suite interrupted", "suite", suite.FilePath, "error", err)
	}

	return &testsuite.SuiteResult{Suite: suite, Results: results}
}

// runCase renders the prompt, generates a response and asks the judge for a
// verdict. A result counts as cached only when both calls hit the cache.
func (r *Runner) runCase(ctx context.Context, suite *testsuite.TestSuite, tc testsuite.TestCase) *testsuite.TestResult {
	start := time.Now()
	rendered := testsuite.RenderPrompt(suite.PromptContent, tc.Inputs)

	genModel := suite.Config.GenerationModel
	if genModel == "" {
		return r.failCase(suite, tc, start, fmt.Errorf("generation_model is not defined"))
	}

	response, genCached, err := r.generator.Generate(ctx, rendered, genModel, suite.Config.GenerationTemperature)
	if err != nil {
		return r.failCase(suite, tc, start, err)
	}

	evalModel := suite.Config.EvaluationModel
	if evalModel == "" {
		return r.failCase(suite, tc, start, fmt.Errorf("evaluation_model is not defined"))
	}

	verdict, err := r.evaluator.Evaluate(ctx, response, tc.Criteria, evalModel, suite.Config.EvaluationTemperature)
	if err != nil {
		return r.failCase(suite, tc, start, err)
	}

	return &testsuite.TestResult{
		TestCase:       tc,
		SuitePath:      suite.FilePath,
		PromptName:     suite.PromptName,
		Config:         suite.Config,
		RenderedPrompt: rendered,
		Response:       response,
		Evaluation:     verdict.Reason,
		Passed:         verdict.Passed,
		Cached:         genCached && verdict.Cached,
		Duration:       time.Since(start),
	}
}

func (r *Runner) failCase(suite *testsuite.TestSuite, tc testsuite.TestCase, start time.Time, err error) *testsuite.TestResult {
	slog.Error("test case failed", "suite", suite.FilePath, "test", tc.ID, "error", err)
	return &testsuite.TestResult{
		TestCase:       tc,
		SuitePath:      suite.FilePath,
		PromptName:     suite.PromptName,
		Config:         suite.Config,
		RenderedPrompt: testsuite.RenderPrompt(suite.PromptContent, tc.Inputs),
		Passed:         false,
		Err:            err.Error(),
		Duration:       time.Since(start),
	}
}
