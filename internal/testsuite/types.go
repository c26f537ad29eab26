package testsuite

import "time"

// Config holds the effective configuration for a test suite after merging
// every ancestor prompttest.yml with the suite's own config section.
// Empty model names mean "not configured"; temperatures default to 0.
type Config struct {
	Prompt                string
	GenerationModel       string
	EvaluationModel       string
	GenerationTemperature float64
	EvaluationTemperature float64
}

// TestCase is a single test within a suite: inputs fill the prompt
// template's placeholders and the criteria tell the judge what to check.
type TestCase struct {
	ID       string         `yaml:"id"`
	Inputs   map[string]any `yaml:"inputs"`
	Criteria string         `yaml:"criteria"`
}

// TestSuite is a fully resolved suite: merged configuration, the prompt
// template it binds to, and the test cases parsed from its file.
type TestSuite struct {
	FilePath      string
	Config        Config
	Tests         []TestCase
	PromptName    string
	PromptContent string
}

// TestResult is the outcome of one executed test case. Errors during
// generation or evaluation are recorded in Err rather than aborting the run.
type TestResult struct {
	TestCase       TestCase
	SuitePath      string
	PromptName     string
	Config         Config
	RenderedPrompt string
	Response       string
	Evaluation     string
	Passed         bool
	Cached         bool
	Err            string
	Duration       time.Duration
}

// SuiteResult groups the results for one suite in test-case order.
type SuiteResult struct {
	Suite   *TestSuite
	Results []*TestResult
}

// RunSummary aggregates a complete run.
type RunSummary struct {
	Suites   []*SuiteResult
	Total    int
	Passed   int
	Failed   int
	Duration time.Duration
}
