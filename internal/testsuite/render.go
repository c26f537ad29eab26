package testsuite

import (
	"fmt"
	"sort"
	"strings"
)

// RenderPrompt substitutes {key} placeholders in template with the matching
// input values. Placeholders without a matching input are left untouched so
// missing inputs are visible in reports. Keys are applied in sorted order to
// keep rendering deterministic.
func RenderPrompt(template string, inputs map[string]any) string {
	if len(inputs) == 0 {
		return template
	}

	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rendered := template
	for _, k := range keys {
		rendered = strings.ReplaceAll(rendered, "{"+k+"}", fmt.Sprint(inputs[k]))
	}
	return rendered
}
