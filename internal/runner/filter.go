package runner

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/decodingchris/prompttest/internal/testsuite"
)

// FilterSuites narrows discovered suites down to the requested test files
// and test ids. File globs are matched against suite paths relative to the
// suites root; id globs are matched against test case ids. Suites left with
// no test cases are dropped. Empty filter lists keep everything.
func FilterSuites(suites []*testsuite.TestSuite, suitesDir string, fileGlobs, idGlobs []string) []*testsuite.TestSuite {
	if len(fileGlobs) == 0 && len(idGlobs) == 0 {
		return suites
	}

	filtered := make([]*testsuite.TestSuite, 0, len(suites))
	for _, suite := range suites {
		if len(fileGlobs) > 0 && !matchesAnyFile(suite.FilePath, suitesDir, fileGlobs) {
			continue
		}

		if len(idGlobs) == 0 {
			filtered = append(filtered, suite)
			continue
		}

		var tests []testsuite.TestCase
		for _, tc := range suite.Tests {
			if matchesAnyID(tc.ID, idGlobs) {
				tests = append(tests, tc)
			}
		}
		if len(tests) == 0 {
			continue
		}

		narrowed := *suite
		narrowed.Tests = tests
		filtered = append(filtered, &narrowed)
	}
	return filtered
}

func matchesAnyFile(suitePath, suitesDir string, globs []string) bool {
	rel, err := filepath.Rel(suitesDir, suitePath)
	if err != nil {
		rel = suitePath
	}
	rel = filepath.ToSlash(rel)

	for _, glob := range globs {
		if matchPath(rel, filepath.ToSlash(glob)) {
			return true
		}
	}
	return false
}

// matchPath reports whether rel matches glob. A leading "**/" matches any
// number of leading directories, including none.
func matchPath(rel, glob string) bool {
	rest, hasPrefix := strings.CutPrefix(glob, "**/")
	if !hasPrefix {
		ok, _ := path.Match(glob, rel)
		return ok
	}

	if ok, _ := path.Match(rest, rel); ok {
		return true
	}
	segments := strings.Split(rel, "/")
	for i := 1; i < len(segments); i++ {
		if ok, _ := path.Match(rest, strings.Join(segments[i:], "/")); ok {
			return true
		}
	}
	return false
}

func matchesAnyID(id string, globs []string) bool {
	for _, glob := range globs {
		if ok, _ := path.Match(glob, id); ok {
			return true
		}
	}
	return false
}
