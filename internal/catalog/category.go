// internal/catalog/category.go
package catalog

import (
	"strings"

	"github.com/goccy/go-yaml"
)

// ParseCategory accepts either a bare label ("Dining") or a list literal
// (['Dining', 'Travel'] / ["Dining"]) and always returns a sequence.
// Malformed list syntax becomes a single-element sequence of the raw text.
func ParseCategory(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "[") {
		return []string{s}
	}

	// Python-style and JSON-style list literals are both valid YAML flow sequences.
	var leaves []string
	if err := yaml.Unmarshal([]byte(s), &leaves); err != nil {
		return []string{s}
	}

	out := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		leaf = strings.TrimSpace(leaf)
		if leaf != "" {
			out = append(out, leaf)
		}
	}
	return out
}
