package discovery

import (
	"fmt"
	"strings"
)

// DirectoryNotFoundError indicates the suites root directory does not exist.
type DirectoryNotFoundError struct {
	Path string
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("directory %q not found", e.Path)
}

// DuplicateAnchorError indicates the same YAML anchor name is defined more
// than once: either twice within one configuration file, or once each in two
// files of the same configuration chain. Either way the later definition
// would silently shadow the earlier one when the chain is assembled into a
// single document.
type DuplicateAnchorError struct {
	Anchors []string
	Files   []string
}

func (e *DuplicateAnchorError) Error() string {
	anchors := strings.Join(e.Anchors, ", ")
	if len(e.Files) == 1 {
		return fmt.Sprintf("duplicate YAML anchor names found within %s: %s", e.Files[0], anchors)
	}
	return fmt.Sprintf("duplicate YAML anchor names found across %s: %s", strings.Join(e.Files, " and "), anchors)
}

// SuiteParseError wraps a parse or validation failure for a suite file or
// one of the configuration files merged into it.
type SuiteParseError struct {
	SuitePath string
	Err       error
}

func (e *SuiteParseError) Error() string {
	return fmt.Sprintf("error parsing %s or its configs: %v", e.SuitePath, e.Err)
}

func (e *SuiteParseError) Unwrap() error {
	return e.Err
}

// MissingPromptError indicates a suite whose merged configuration defines no
// prompt.
type MissingPromptError struct {
	SuitePath string
}

func (e *MissingPromptError) Error() string {
	return fmt.Sprintf("suite %s is missing a prompt definition", e.SuitePath)
}

// PromptNotFoundError indicates the prompt template file a suite refers to
// does not exist.
type PromptNotFoundError struct {
	Path string
}

func (e *PromptNotFoundError) Error() string {
	return fmt.Sprintf("prompt file not found: %s", e.Path)
}
