package discovery

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/decodingchris/prompttest/internal/testsuite"
)

// chainFile is one configuration file in a suite's ancestor chain, ordered
// root-most first.
type chainFile struct {
	path string
	text string
}

// suiteDocument is the decoded shape of the assembled virtual document. The
// throwaway anchor-holder keys are ignored during decoding; only the suite's
// own top-level sections matter.
type suiteDocument struct {
	Config map[string]any       `yaml:"config"`
	Tests  []testsuite.TestCase `yaml:"tests"`
}

// anchorPattern matches YAML anchor definitions (&name) in raw text. The
// leading character class restricts matches to positions where an anchor can
// legally start: beginning of line, whitespace, or a flow collection
// delimiter.
var anchorPattern = regexp.MustCompile(`(?:^|[\s,\[{])&([\w-]+)`)

// scanAnchors collects anchor definitions from raw YAML text. It returns the
// set of every anchor name in the text and, separately, the names defined
// more than once within a single document scope. Document markers ("---" and
// "...") at the start of a line reset the scope, since anchors do not carry
// across document boundaries.
func scanAnchors(text string) (names map[string]struct{}, dupes []string) {
	names = make(map[string]struct{})
	scope := make(map[string]struct{})
	reported := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		marker := strings.TrimRight(line, " \t")
		if marker == "---" || marker == "..." ||
			strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "... ") {
			scope = make(map[string]struct{})
			continue
		}
		for _, m := range anchorPattern.FindAllStringSubmatch(line, -1) {
			name := m[1]
			names[name] = struct{}{}
			if _, seen := scope[name]; seen {
				if _, dup := reported[name]; !dup {
					dupes = append(dupes, name)
					reported[name] = struct{}{}
				}
			}
			scope[name] = struct{}{}
		}
	}
	return names, dupes
}

// checkAnchorCollisions scans every file in a configuration chain for
// duplicated anchor names, first within each file and then across files.
// The raw-text scan runs before any parsing: once the chain is concatenated
// into one document, the parser would resolve a redefined anchor to its last
// definition without complaint.
func checkAnchorCollisions(files []chainFile) error {
	firstSeen := make(map[string]string)
	var collidedAnchors []string
	collidedFiles := make(map[string]struct{})
	var fileOrder []string

	for _, f := range files {
		names, dupes := scanAnchors(f.text)
		if len(dupes) > 0 {
			return &DuplicateAnchorError{Anchors: dupes, Files: []string{f.path}}
		}

		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)

		for _, name := range sorted {
			prev, ok := firstSeen[name]
			if !ok {
				firstSeen[name] = f.path
				continue
			}
			collidedAnchors = append(collidedAnchors, name)
			for _, p := range []string{prev, f.path} {
				if _, ok := collidedFiles[p]; !ok {
					collidedFiles[p] = struct{}{}
					fileOrder = append(fileOrder, p)
				}
			}
		}
	}

	if len(collidedAnchors) > 0 {
		return &DuplicateAnchorError{Anchors: collidedAnchors, Files: fileOrder}
	}
	return nil
}

// buildVirtualDocument assembles one YAML document from a suite file and its
// ancestor configuration files so a single parse sees every anchor
// definition before the suite body references it. Each ancestor's text is
// nested verbatim under its own throwaway top-level key; a shared key would
// trip yaml.v3's duplicate-key check whenever two ancestors use the same
// top-level key.
func buildVirtualDocument(configs []chainFile, suiteText string) string {
	var b strings.Builder
	for i, f := range configs {
		fmt.Fprintf(&b, "__anchors_%d__:\n", i)
		b.WriteString(indentBlock(f.text, "  "))
		b.WriteString("\n")
	}
	b.WriteString(suiteText)
	return b.String()
}

// indentBlock prefixes every non-blank line of text with the given prefix.
func indentBlock(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// decodeSingleDocument parses YAML that must contain exactly one document.
// yaml.Unmarshal silently stops after the first document, which would let a
// stray "---" separator truncate a suite, so a second decode is attempted
// and must report EOF. Empty input decodes to the zero value.
func decodeSingleDocument(text string, out any) error {
	dec := yaml.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	var extra any
	err := dec.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return errors.New("expected a single YAML document")
}

// deepMerge layers src over dst and returns a new map, leaving both inputs
// untouched. When a key holds a mapping on both sides the mappings merge
// recursively; any other value in src replaces the dst value wholesale.
func deepMerge(dst, src map[string]any) map[string]any {
	merged := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		merged[k] = v
	}
	for k, v := range src {
		srcMap, srcOK := v.(map[string]any)
		dstMap, dstOK := merged[k].(map[string]any)
		if srcOK && dstOK {
			merged[k] = deepMerge(dstMap, srcMap)
			continue
		}
		merged[k] = v
	}
	return merged
}

// validateTests checks the decoded test cases for the defects the YAML
// decoder cannot catch: blank ids or criteria and ids reused within the
// suite.
func validateTests(tests []testsuite.TestCase) error {
	seen := make(map[string]struct{}, len(tests))
	for i, tc := range tests {
		if strings.TrimSpace(tc.ID) == "" {
			return fmt.Errorf("test case %d is missing an id", i+1)
		}
		if strings.TrimSpace(tc.Criteria) == "" {
			return fmt.Errorf("test case %q is missing criteria", tc.ID)
		}
		if _, dup := seen[tc.ID]; dup {
			return fmt.Errorf("duplicate test id %q", tc.ID)
		}
		seen[tc.ID] = struct{}{}
	}
	return nil
}
