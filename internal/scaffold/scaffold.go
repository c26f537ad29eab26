// Package scaffold creates the starter project layout for prompttest init.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed all:templates
var templates embed.FS

// templateFiles maps embedded template paths to their destination relative
// to the project root.
var templateFiles = []struct {
	src string
	dst string
}{
	{"templates/prompts/customer_service.txt", "prompts/customer_service.txt"},
	{"templates/prompttests/prompttest.yml", "prompttests/prompttest.yml"},
	{"templates/prompttests/main.yml", "prompttests/main.yml"},
	{"templates/prompttests/GUIDE.md", "prompttests/GUIDE.md"},
	{"templates/env.example", ".env.example"},
	{"templates/env.example", ".env"},
}

// gitignoreEntries are kept out of version control: derived artifacts and
// the API key. Each entry carries its own comment line.
var gitignoreEntries = []struct {
	comment string
	line    string
}{
	{"# prompttest response cache", ".prompttest_cache/"},
	{"# prompttest run reports", ".prompttest_reports/"},
	{"# API keys", ".env"},
}

// Init writes the starter files under root. Existing files are never
// overwritten; their paths are returned in skipped so the caller can say so.
func Init(root string) (created, skipped []string, err error) {
	for _, tf := range templateFiles {
		dst := filepath.Join(root, tf.dst)

		if _, err := os.Stat(dst); err == nil {
			skipped = append(skipped, tf.dst)
			continue
		}

		data, err := templates.ReadFile(tf.src)
		if err != nil {
			return nil, nil, fmt.Errorf("missing embedded template %s: %w", tf.src, err)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return nil, nil, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		created = append(created, tf.dst)
	}

	updated, err := EnsureGitignore(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil, nil, err
	}
	if updated {
		created = append(created, ".gitignore")
	} else {
		skipped = append(skipped, ".gitignore")
	}

	return created, skipped, nil
}

// EnsureGitignore appends the prompttest entries missing from the file,
// preserving whatever is already there. It reports whether the file was
// written.
func EnsureGitignore(path string) (bool, error) {
	var content string
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("%s is a directory", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", path, err)
		}
		content = string(data)
	}

	existing := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		existing[strings.TrimSpace(line)] = struct{}{}
	}

	var additions strings.Builder
	for _, entry := range gitignoreEntries {
		if _, ok := existing[entry.line]; ok {
			continue
		}
		additions.WriteString(entry.comment + "\n" + entry.line + "\n")
	}
	if additions.Len() == 0 {
		return false, nil
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if content != "" {
		content += "\n"
	}
	content += additions.String()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
