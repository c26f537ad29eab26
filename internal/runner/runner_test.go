package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decodingchris/prompttest/internal/evaluator"
	"github.com/decodingchris/prompttest/internal/llm"
	"github.com/decodingchris/prompttest/internal/testsuite"
	"github.com/decodingchris/prompttest/internal/testutil"
)

func newSuite(tests ...testsuite.TestCase) *testsuite.TestSuite {
	return &testsuite.TestSuite{
		FilePath: "prompttests/main.yml",
		Config: testsuite.Config{
			Prompt:          "customer_service",
			GenerationModel: "gen-model",
			EvaluationModel: "eval-model",
		},
		Tests:         tests,
		PromptName:    "customer_service",
		PromptContent: "Hello {user_name}",
	}
}

func newRunner(t *testing.T, client llm.Client, maxConcurrency int) *Runner {
	t.Helper()
	cache := llm.NewDiskCache(t.TempDir())
	return NewRunner(llm.NewGenerator(client, cache), evaluator.New(client, cache), maxConcurrency)
}

func TestRunAllPass(t *testing.T) {
	client := &testutil.MockLLMClient{
		Responses: map[string]string{
			"Hello Alex": "Hi Alex, how can I help?",
		},
		DefaultResponse: "EVALUATION: PASS - Polite",
	}
	r := newRunner(t, client, 0)

	suite := newSuite(
		testsuite.TestCase{ID: "greeting", Inputs: map[string]any{"user_name": "Alex"}, Criteria: "Greets the user"},
		testsuite.TestCase{ID: "tone", Inputs: map[string]any{"user_name": "Sam"}, Criteria: "Stays polite"},
	)

	var mu sync.Mutex
	progressCalls := 0
	r.SetProgressFunc(func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		progressCalls++
		assert.Equal(t, 2, total)
	})

	started, done := 0, 0
	r.SetSuiteStartFunc(func(_ *testsuite.TestSuite) { started++ })
	r.SetSuiteDoneFunc(func(_ *testsuite.SuiteResult) { done++ })

	summary := r.Run(context.Background(), []*testsuite.TestSuite{suite})

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, progressCalls)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, done)

	require.Len(t, summary.Suites, 1)
	results := summary.Suites[0].Results
	require.Len(t, results, 2)

	// Results keep the suite's test order regardless of completion order.
	assert.Equal(t, "greeting", results[0].TestCase.ID)
	assert.Equal(t, "tone", results[1].TestCase.ID)

	assert.True(t, results[0].Passed)
	assert.Equal(t, "Hi Alex, how can I help?", results[0].Response)
	assert.Equal(t, "Hello Alex", results[0].RenderedPrompt)
	assert.Equal(t, "Polite", results[0].Evaluation)
	assert.False(t, results[0].Cached)
	assert.Empty(t, results[0].Err)
}

func TestRunRecordsFailedVerdicts(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: "EVALUATION: FAIL - Too terse"}
	r := newRunner(t, client, 0)

	suite := newSuite(testsuite.TestCase{ID: "tone", Criteria: "Warm tone"})
	summary := r.Run(context.Background(), []*testsuite.TestSuite{suite})

	assert.Equal(t, 1, summary.Failed)
	result := summary.Suites[0].Results[0]
	assert.False(t, result.Passed)
	assert.Equal(t, "Too terse", result.Evaluation)
	assert.Empty(t, result.Err)
}

func TestRunMissingGenerationModel(t *testing.T) {
	client := &testutil.MockLLMClient{}
	r := newRunner(t, client, 0)

	suite := newSuite(testsuite.TestCase{ID: "t", Criteria: "c"})
	suite.Config.GenerationModel = ""

	summary := r.Run(context.Background(), []*testsuite.TestSuite{suite})

	assert.Equal(t, 1, summary.Failed)
	result := summary.Suites[0].Results[0]
	assert.False(t, result.Passed)
	assert.Contains(t, result.Err, "generation_model is not defined")
	assert.Equal(t, 0, client.CallCount())
}

func TestRunMissingEvaluationModel(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: "a response"}
	r := newRunner(t, client, 0)

	suite := newSuite(testsuite.TestCase{ID: "t", Criteria: "c"})
	suite.Config.EvaluationModel = ""

	summary := r.Run(context.Background(), []*testsuite.TestSuite{suite})

	result := summary.Suites[0].Results[0]
	assert.Contains(t, result.Err, "evaluation_model is not defined")
	assert.Equal(t, 1, client.CallCount())
}

func TestRunRecordsGenerationErrors(t *testing.T) {
	client := &testutil.MockLLMClient{
		ResponseFunc: func(_ llm.ChatRequest) (string, error) {
			return "", errors.New("api exploded")
		},
	}
	r := newRunner(t, client, 0)

	suite := newSuite(testsuite.TestCase{ID: "t", Criteria: "c"})
	summary := r.Run(context.Background(), []*testsuite.TestSuite{suite})

	assert.Equal(t, 1, summary.Failed)
	result := summary.Suites[0].Results[0]
	assert.Contains(t, result.Err, "api exploded")
	assert.Empty(t, result.Response)
	assert.Empty(t, result.Evaluation)
}

func TestRunMarksFullyCachedResults(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: "EVALUATION: PASS - OK"}
	cache := llm.NewDiskCache(t.TempDir())
	r := NewRunner(llm.NewGenerator(client, cache), evaluator.New(client, cache), 0)

	suite := newSuite(testsuite.TestCase{ID: "t", Inputs: map[string]any{"user_name": "Alex"}, Criteria: "c"})

	summary := r.Run(context.Background(), []*testsuite.TestSuite{suite})
	assert.False(t, summary.Suites[0].Results[0].Cached)
	callsAfterFirst := client.CallCount()

	summary = r.Run(context.Background(), []*testsuite.TestSuite{suite})
	assert.True(t, summary.Suites[0].Results[0].Cached)
	assert.Equal(t, callsAfterFirst, client.CallCount())
}

func TestRunBoundedConcurrency(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0

	client := &testutil.MockLLMClient{
		ResponseFunc: func(_ llm.ChatRequest) (string, error) {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return "EVALUATION: PASS - OK", nil
		},
	}
	r := NewRunner(llm.NewGenerator(client, nil), evaluator.New(client, nil), 1)

	suite := newSuite(
		testsuite.TestCase{ID: "t1", Criteria: "c"},
		testsuite.TestCase{ID: "t2", Criteria: "c"},
		testsuite.TestCase{ID: "t3", Criteria: "c"},
	)

	summary := r.Run(context.Background(), []*testsuite.TestSuite{suite})

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, maxActive)
}

func TestRunMultipleSuitesSequentially(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: "EVALUATION: PASS - OK"}
	r := newRunner(t, client, 0)

	first := newSuite(testsuite.TestCase{ID: "a", Criteria: "c"})
	second := newSuite(testsuite.TestCase{ID: "b", Criteria: "c"})
	second.FilePath = "prompttests/other.yml"

	var order []string
	r.SetSuiteStartFunc(func(s *testsuite.TestSuite) {
		order = append(order, s.FilePath)
	})

	summary := r.Run(context.Background(), []*testsuite.TestSuite{first, second})

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, []string{"prompttests/main.yml", "prompttests/other.yml"}, order)
	require.Len(t, summary.Suites, 2)
}

func TestRunCancelledContext(t *testing.T) {
	client := &testutil.MockLLMClient{DefaultResponse: "EVALUATION: PASS - OK"}
	r := newRunner(t, client, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite := newSuite(testsuite.TestCase{ID: "t", Criteria: "c"})
	summary := r.Run(ctx, []*testsuite.TestSuite{suite})

	assert.Empty(t, summary.Suites)
	assert.Equal(t, 0, summary.Total)
}
