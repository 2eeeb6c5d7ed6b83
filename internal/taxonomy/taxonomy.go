// internal/taxonomy/taxonomy.go
package taxonomy

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	"github.com/goccy/go-json"
)

// Group is one entry of the taxonomy document: a high-level group and the
// detailed leaf labels that roll up into it.
type Group struct {
	Name   string   `json:"category"`
	Leaves []string `json:"detailed_categories"`
}

// Load reads the taxonomy JSON document from path.
func Load(path string) (domain.TaxonomyMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return Decode(data)
}

// Decode builds the leaf → group map. A leaf listed under several groups
// keeps the first one.
func Decode(data []byte) (domain.TaxonomyMap, error) {
	var groups []Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	m := make(domain.TaxonomyMap)
	for _, g := range groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, fmt.Errorf("decode taxonomy: group with empty name")
		}
		for _, leaf := range g.Leaves {
			leaf = strings.TrimSpace(leaf)
			if leaf == "" {
				continue
			}
			if prev, ok := m[leaf]; ok {
				if prev != name {
					slog.Warn("Taxonomy leaf mapped to several groups, keeping first", "leaf", leaf, "kept", prev, "ignored", name)
				}
				continue
			}
			m[leaf] = name
		}
	}
	return m, nil
}
