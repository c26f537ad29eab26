package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decodingchris/prompttest/internal/testsuite"
)

func newProject(t *testing.T) (suitesDir, promptsDir string) {
	t.Helper()
	root := t.TempDir()
	suitesDir = filepath.Join(root, "prompttests")
	promptsDir = filepath.Join(root, "prompts")
	require.NoError(t, os.MkdirAll(suitesDir, 0o755))
	require.NoError(t, os.MkdirAll(promptsDir, 0o755))
	writeFile(t, promptsDir, "customer_service.txt", "Hello {user_name} ({user_tier}): {user_query}")
	return suitesDir, promptsDir
}

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, promptsDir := newProject(t)

	d := New(filepath.Join(t.TempDir(), "nope"), promptsDir)
	_, err := d.Discover()
	require.Error(t, err)

	var notFound *DirectoryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Path, "nope")
}

func TestDiscoverSingleSuite(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", `config:
  generation_model: "gen-model"
  evaluation_model: "eval-model"
`)
	writeFile(t, suitesDir, "main.yml", `config:
  prompt: "customer_service"

tests:
  - id: "greeting"
    inputs:
      user_name: "Alex"
      user_tier: "standard"
      user_query: "Hi"
    criteria: "Greets the user by name"
`)

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	require.Len(t, suites, 1)

	s := suites[0]
	assert.Equal(t, filepath.Join(suitesDir, "main.yml"), s.FilePath)
	assert.Equal(t, "customer_service", s.PromptName)
	assert.Equal(t, "Hello {user_name} ({user_tier}): {user_query}", s.PromptContent)
	assert.Equal(t, "gen-model", s.Config.GenerationModel)
	assert.Equal(t, "eval-model", s.Config.EvaluationModel)
	assert.Equal(t, 0.0, s.Config.GenerationTemperature)
	assert.Equal(t, 0.0, s.Config.EvaluationTemperature)

	require.Len(t, s.Tests, 1)
	assert.Equal(t, "greeting", s.Tests[0].ID)
	assert.Equal(t, "Greets the user by name", s.Tests[0].Criteria)
	assert.Equal(t, "Alex", s.Tests[0].Inputs["user_name"])
}

func TestAnchorsResolveAcrossFiles(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", `config:
  prompt: "customer_service"
  generation_model: "gen-model"
  evaluation_model: "eval-model"

reusable:
  inputs:
    standard_user: &standard_user
      user_name: "Alex"
      user_tier: "standard"
`)
	writeFile(t, suitesDir, "main.yml", `tests:
  - id: "merge_key"
    inputs:
      <<: *standard_user
      user_query: "Hi"
    criteria: "Greets Alex"
  - id: "plain_alias"
    inputs:
      profile: *standard_user
    criteria: "Uses the profile"
`)

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	require.Len(t, suites, 1)
	require.Len(t, suites[0].Tests, 2)

	merged := suites[0].Tests[0].Inputs
	assert.Equal(t, "Alex", merged["user_name"])
	assert.Equal(t, "standard", merged["user_tier"])
	assert.Equal(t, "Hi", merged["user_query"])

	profile, ok := suites[0].Tests[1].Inputs["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alex", profile["user_name"])
}

func TestAnchorsResolveThroughNestedChain(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", `config:
  prompt: "customer_service"
  generation_model: "gen-model"
  evaluation_model: "eval-model"

shared:
  greeting: &greeting "Hi there"
`)
	// No config in the middle directory; the chain skips it.
	writeFile(t, suitesDir, "billing/refunds/prompttest.yml", `shared:
  query: &refund_query "I want a refund"
`)
	writeFile(t, suitesDir, "billing/refunds/main.yml", `tests:
  - id: "refund"
    inputs:
      user_query: *refund_query
      greeting: *greeting
    criteria: "Handles the refund"
`)

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, "I want a refund", suites[0].Tests[0].Inputs["user_query"])
	assert.Equal(t, "Hi there", suites[0].Tests[0].Inputs["greeting"])
}

func TestDuplicateAnchorWithinFile(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	configPath := writeFile(t, suitesDir, "prompttest.yml", `config:
  prompt: "customer_service"

reusable:
  a: &dupe 1
  b: &dupe 2
`)
	writeFile(t, suitesDir, "main.yml", "tests:\n  - id: t\n    criteria: c\n")

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	var dupErr *DuplicateAnchorError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, []string{"dupe"}, dupErr.Anchors)
	assert.Equal(t, []string{configPath}, dupErr.Files)
}

func TestDuplicateAnchorAcrossFiles(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	rootCfg := writeFile(t, suitesDir, "prompttest.yml", `config:
  prompt: "customer_service"

reusable:
  a: &shared 1
`)
	subCfg := writeFile(t, suitesDir, "sub/prompttest.yml", `reusable:
  b: &shared 2
`)
	writeFile(t, suitesDir, "sub/main.yml", "tests:\n  - id: t\n    criteria: c\n")

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	var dupErr *DuplicateAnchorError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, []string{"shared"}, dupErr.Anchors)
	assert.Equal(t, []string{rootCfg, subCfg}, dupErr.Files)
}

func TestAnchorRedefinedAfterDocumentEndIsParseError(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", `config:
  prompt: "customer_service"
a: &x 1
...
b: &x 2
`)
	writeFile(t, suitesDir, "main.yml", "tests:\n  - id: t\n    criteria: c\n")

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	// The scope reset means this is not an anchor collision; the marker then
	// breaks the assembled document instead.
	var dupErr *DuplicateAnchorError
	assert.False(t, errors.As(err, &dupErr))
	var parseErr *SuiteParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestSuiteWithDocumentSeparatorIsParseError(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", "config:\n  prompt: \"customer_service\"\n")
	suitePath := writeFile(t, suitesDir, "main.yml", `tests:
  - id: t
    criteria: c
---
tests: []
`)

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	var parseErr *SuiteParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, suitePath, parseErr.SuitePath)
	assert.Contains(t, err.Error(), "single YAML document")
}

func TestConfigMergePrecedence(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", `config:
  prompt: "customer_service"
  generation_model: "root-gen"
  evaluation_model: "root-eval"
  generation_temperature: 0.7
`)
	writeFile(t, suitesDir, "sub/prompttest.yml", `config:
  generation_model: "sub-gen"
`)
	writeFile(t, suitesDir, "sub/main.yml", `config:
  evaluation_model: "suite-eval"

tests:
  - id: t
    criteria: c
`)

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	require.Len(t, suites, 1)

	cfg := suites[0].Config
	assert.Equal(t, "sub-gen", cfg.GenerationModel)
	assert.Equal(t, "suite-eval", cfg.EvaluationModel)
	assert.Equal(t, 0.7, cfg.GenerationTemperature)
	assert.Equal(t, 0.0, cfg.EvaluationTemperature)
	assert.Equal(t, "customer_service", cfg.Prompt)
}

func TestReservedConfigFileIsNotASuite(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", `config:
  prompt: "customer_service"

tests:
  - id: "should_not_run"
    criteria: "never"
`)
	writeFile(t, suitesDir, "main.yml", "tests:\n  - id: t\n    criteria: c\n")

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, filepath.Join(suitesDir, "main.yml"), suites[0].FilePath)
}

func TestNonYAMLFilesIgnored(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", "config:\n  prompt: \"customer_service\"\n")
	writeFile(t, suitesDir, "notes.txt", "not yaml")
	writeFile(t, suitesDir, "main.yml", "tests:\n  - id: t\n    criteria: c\n")

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	assert.Len(t, suites, 1)
}

func TestSuitesWithoutTestsDropped(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", "config:\n  prompt: \"customer_service\"\n")
	writeFile(t, suitesDir, "empty.yml", "")
	writeFile(t, suitesDir, "no_tests.yml", "config:\n  generation_model: m\n")
	writeFile(t, suitesDir, "main.yml", "tests:\n  - id: t\n    criteria: c\n")

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, filepath.Join(suitesDir, "main.yml"), suites[0].FilePath)
}

func TestDeterministicOrder(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", "config:\n  prompt: \"customer_service\"\n")
	writeFile(t, suitesDir, "c.yml", "tests:\n  - id: t\n    criteria: c\n")
	writeFile(t, suitesDir, "a/nested.yaml", "tests:\n  - id: t\n    criteria: c\n")
	writeFile(t, suitesDir, "b.yml", "tests:\n  - id: t\n    criteria: c\n")

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	require.Len(t, suites, 3)
	assert.Equal(t, filepath.Join(suitesDir, "a/nested.yaml"), suites[0].FilePath)
	assert.Equal(t, filepath.Join(suitesDir, "b.yml"), suites[1].FilePath)
	assert.Equal(t, filepath.Join(suitesDir, "c.yml"), suites[2].FilePath)
}

func TestMissingPrompt(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	suitePath := writeFile(t, suitesDir, "main.yml", "tests:\n  - id: t\n    criteria: c\n")

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	var missing *MissingPromptError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, suitePath, missing.SuitePath)
}

func TestPromptFileNotFound(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "main.yml", `config:
  prompt: "ghost"

tests:
  - id: t
    criteria: c
`)

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	var notFound *PromptNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, filepath.Join(promptsDir, "ghost.txt"), notFound.Path)
}

func TestConfigurationTypeError(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "main.yml", `config:
  prompt: ["not", "a", "string"]

tests:
  - id: t
    criteria: c
`)

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	var cfgErr *testsuite.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "prompt", cfgErr.Key)
}

func TestBrokenConfigFileNamesSuite(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", "config: [unclosed\n")
	suitePath := writeFile(t, suitesDir, "main.yml", "tests:\n  - id: t\n    criteria: c\n")

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	var parseErr *SuiteParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, suitePath, parseErr.SuitePath)
	assert.NotNil(t, parseErr.Unwrap())
	assert.Contains(t, err.Error(), "or its configs")
}

func TestUnknownAliasIsParseError(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", "config:\n  prompt: \"customer_service\"\n")
	writeFile(t, suitesDir, "main.yml", `tests:
  - id: t
    inputs:
      user: *undefined_anchor
    criteria: c
`)

	_, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)

	var parseErr *SuiteParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestMalformedTests(t *testing.T) {
	tests := []struct {
		name    string
		suite   string
		wantMsg string
	}{
		{
			name:    "tests not a sequence",
			suite:   "tests: 5\n",
			wantMsg: "",
		},
		{
			name:    "missing id",
			suite:   "tests:\n  - criteria: c\n",
			wantMsg: "missing an id",
		},
		{
			name:    "missing criteria",
			suite:   "tests:\n  - id: t\n",
			wantMsg: "missing criteria",
		},
		{
			name:    "duplicate ids",
			suite:   "tests:\n  - id: t\n    criteria: a\n  - id: t\n    criteria: b\n",
			wantMsg: "duplicate test id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suitesDir, promptsDir := newProject(t)
			writeFile(t, suitesDir, "prompttest.yml", "config:\n  prompt: \"customer_service\"\n")
			writeFile(t, suitesDir, "main.yml", tt.suite)

			_, err := New(suitesDir, promptsDir).Discover()
			require.Error(t, err)

			var parseErr *SuiteParseError
			require.ErrorAs(t, err, &parseErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestErrorsAbortWholePass(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", "config:\n  prompt: \"customer_service\"\n")
	writeFile(t, suitesDir, "a_broken.yml", "tests: [\n")
	writeFile(t, suitesDir, "b_valid.yml", "tests:\n  - id: t\n    criteria: c\n")

	suites, err := New(suitesDir, promptsDir).Discover()
	require.Error(t, err)
	assert.Nil(t, suites)
}

func TestCachesAreReusedUntilCleared(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	cfgPath := writeFile(t, suitesDir, "prompttest.yml", `config:
  prompt: "customer_service"
  generation_model: "before"
`)
	writeFile(t, suitesDir, "main.yml", "tests:\n  - id: t\n    criteria: c\n")

	d := New(suitesDir, promptsDir)

	suites, err := d.Discover()
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, "before", suites[0].Config.GenerationModel)

	// Change the file on disk; the cached text must win until cleared.
	require.NoError(t, os.WriteFile(cfgPath, []byte(`config:
  prompt: "customer_service"
  generation_model: "after"
`), 0o644))

	suites, err = d.Discover()
	require.NoError(t, err)
	assert.Equal(t, "before", suites[0].Config.GenerationModel)

	d.ClearCaches()

	suites, err = d.Discover()
	require.NoError(t, err)
	assert.Equal(t, "after", suites[0].Config.GenerationModel)
}

func TestConcurrentDiscovery(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", "config:\n  prompt: \"customer_service\"\n")
	for _, name := range []string{"a.yml", "b.yml", "c.yml"} {
		writeFile(t, suitesDir, name, "tests:\n  - id: t\n    criteria: c\n")
	}

	d := New(suitesDir, promptsDir)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			suites, err := d.Discover()
			assert.NoError(t, err)
			assert.Len(t, suites, 3)
		}()
	}
	wg.Wait()
}

func TestSuiteConfigMayUseChainAnchors(t *testing.T) {
	suitesDir, promptsDir := newProject(t)

	writeFile(t, suitesDir, "prompttest.yml", `config:
  generation_model: "gen-model"
  evaluation_model: "eval-model"

defaults:
  prompt_name: &prompt_name "customer_service"
`)
	writeFile(t, suitesDir, "main.yml", `config:
  prompt: *prompt_name

tests:
  - id: t
    criteria: c
`)

	suites, err := New(suitesDir, promptsDir).Discover()
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, "customer_service", suites[0].PromptName)
}
