// Package discovery walks a tree of YAML test suites, merges their
// hierarchical configuration and binds each suite to its prompt template.
//
// Every directory from the suites root down to a suite's own directory may
// carry a prompttest.yml whose config section applies to all suites beneath
// it, with files closer to the suite overriding files closer to the root.
// YAML anchors defined anywhere in that chain are visible to the suite: the
// chain and the suite are assembled into one virtual document and parsed in
// a single pass, so aliases resolve across file boundaries.
package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/decodingchris/prompttest/internal/testsuite"
)

// ConfigFileName is the reserved name for shared configuration files. A file
// with this name contributes config and anchors to every suite at or below
// its directory and is never treated as a suite itself.
const ConfigFileName = "prompttest.yml"

// Discoverer resolves test suites under a suites directory. It caches file
// reads and parses across suites; call ClearCaches when files on disk may
// have changed between passes.
type Discoverer struct {
	suitesDir  string
	promptsDir string
	cache      *fileCache
}

// New creates a Discoverer rooted at suitesDir, resolving prompt names
// against promptsDir.
func New(suitesDir, promptsDir string) *Discoverer {
	return &Discoverer{
		suitesDir:  suitesDir,
		promptsDir: promptsDir,
		cache:      newFileCache(),
	}
}

// ClearCaches drops all memoized file contents and parses.
func (d *Discoverer) ClearCaches() {
	d.cache.clear()
}

// Discover walks the suites directory and returns every resolved suite in
// lexicographic path order. Suites without test cases are dropped. The pass
// is all-or-nothing: the first failure aborts discovery and nothing is
// returned.
func (d *Discoverer) Discover() ([]*testsuite.TestSuite, error) {
	info, err := os.Stat(d.suitesDir)
	if err != nil || !info.IsDir() {
		return nil, &DirectoryNotFoundError{Path: d.suitesDir}
	}

	paths, err := d.suiteFiles()
	if err != nil {
		return nil, err
	}

	suites := make([]*testsuite.TestSuite, 0, len(paths))
	for _, path := range paths {
		suite, err := d.resolveSuite(path)
		if err != nil {
			return nil, err
		}
		if len(suite.Tests) == 0 {
			slog.Debug("skipping suite without tests", "path", path)
			continue
		}
		suites = append(suites, suite)
	}

	slog.Debug("discovery complete", "suites", len(suites))
	return suites, nil
}

// suiteFiles enumerates candidate suite files under the root in sorted
// order. Reserved configuration files and files without a YAML extension are
// skipped.
func (d *Discoverer) suiteFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(d.suitesDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || entry.Name() == ConfigFileName {
			return nil
		}
		if ext := filepath.Ext(entry.Name()); ext != ".yml" && ext != ".yaml" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", d.suitesDir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// configChain returns the prompttest.yml files governing suitePath, ordered
// root-most first. Directories without one are simply skipped.
func (d *Discoverer) configChain(suitePath string) []string {
	var chain []string
	root := filepath.Clean(d.suitesDir)
	dir := filepath.Dir(suitePath)
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			chain = append(chain, candidate)
		}
		if filepath.Clean(dir) == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// Collected bottom-up; reverse to root-most first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// resolveSuite turns one suite file into a TestSuite: collision scan, virtual
// document parse, config merge, prompt resolution, test validation.
func (d *Discoverer) resolveSuite(path string) (*testsuite.TestSuite, error) {
	configs := make([]chainFile, 0, 4)
	for _, p := range d.configChain(path) {
		text, err := d.readFile(p)
		if err != nil {
			return nil, err
		}
		configs = append(configs, chainFile{path: p, text: text})
	}
	if err := checkAnchorCollisions(configs); err != nil {
		return nil, err
	}

	suiteText, err := d.readFile(path)
	if err != nil {
		return nil, err
	}

	var doc suiteDocument
	if err := decodeSingleDocument(buildVirtualDocument(configs, suiteText), &doc); err != nil {
		return nil, &SuiteParseError{SuitePath: path, Err: err}
	}

	merged := map[string]any{}
	for _, f := range configs {
		section, err := d.configSection(f.path)
		if err != nil {
			return nil, &SuiteParseError{SuitePath: path, Err: err}
		}
		merged = deepMerge(merged, section)
	}
	merged = deepMerge(merged, doc.Config)

	cfg, err := testsuite.ConfigFromMap(merged, path)
	if err != nil {
		return nil, err
	}
	if cfg.Prompt == "" {
		return nil, &MissingPromptError{SuitePath: path}
	}

	promptPath := filepath.Join(d.promptsDir, cfg.Prompt+".txt")
	if info, err := os.Stat(promptPath); err != nil || info.IsDir() {
		return nil, &PromptNotFoundError{Path: promptPath}
	}
	promptContent, err := d.readFile(promptPath)
	if err != nil {
		return nil, err
	}

	if err := validateTests(doc.Tests); err != nil {
		return nil, &SuiteParseError{SuitePath: path, Err: err}
	}

	return &testsuite.TestSuite{
		FilePath:      path,
		Config:        cfg,
		Tests:         doc.Tests,
		PromptName:    cfg.Prompt,
		PromptContent: promptContent,
	}, nil
}

// readFile returns the file's text, memoized by path.
func (d *Discoverer) readFile(path string) (string, error) {
	if text, ok := d.cache.getText(path); ok {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := string(data)
	d.cache.putText(path, text)
	return text, nil
}

// configSection returns the config mapping of a configuration file, parsing
// the file at most once. Files without a config section contribute nothing.
func (d *Discoverer) configSection(path string) (map[string]any, error) {
	doc, ok := d.cache.getParsed(path)
	if !ok {
		text, err := d.readFile(path)
		if err != nil {
			return nil, err
		}
		if err := decodeSingleDocument(text, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		d.cache.putParsed(path, doc)
	}

	value, ok := doc["config"]
	if !ok || value == nil {
		return nil, nil
	}
	section, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config section in %s is not a mapping", path)
	}
	return section, nil
}
