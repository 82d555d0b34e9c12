package pipeline

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategory buckets every subject no prefix claims.
const DefaultCategory = "general"

// CategoryMapper resolves a delivery subject to a report category by prefix.
// The table is fixed after construction, so lookups need no locking.
type CategoryMapper struct {
	// prefixes sorted longest-first so the most specific prefix wins.
	prefixes []string
	byPrefix map[string]string
}

var defaultPrefixTable = map[string]string{
	"orders.":       "orders",
	"delivery.":     "delivery",
	"notification.": "notifications",
}

// NewCategoryMapper returns a mapper over the built-in prefix table.
func NewCategoryMapper() *CategoryMapper {
	return newCategoryMapper(defaultPrefixTable)
}

// NewCategoryMapperFromFile loads a prefix table from a YAML file of
// prefix: category pairs, replacing the built-in table entirely.
func NewCategoryMapperFromFile(path string) (*CategoryMapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category map %s: %w", path, err)
	}

	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing category map %s: %w", path, err)
	}

	for prefix, category := range table {
		if strings.TrimSpace(prefix) == "" {
			return nil, fmt.Errorf("category map %s: empty prefix", path)
		}
		if strings.TrimSpace(category) == "" {
			return nil, fmt.Errorf("category map %s: prefix %q has empty category", path, prefix)
		}
	}

	return newCategoryMapper(table), nil
}

func newCategoryMapper(table map[string]string) *CategoryMapper {
	m := &CategoryMapper{
		prefixes: make([]string, 0, len(table)),
		byPrefix: make(map[string]string, len(table)),
	}
	for prefix, category := range table {
		m.prefixes = append(m.prefixes, prefix)
		m.byPrefix[prefix] = category
	}
	sort.Slice(m.prefixes, func(i, j int) bool {
		if len(m.prefixes[i]) != len(m.prefixes[j]) {
			return len(m.prefixes[i]) > len(m.prefixes[j])
		}
		return m.prefixes[i] < m.prefixes[j]
	})
	return m
}

// Resolve maps a subject to its category. Unknown subjects land in
// DefaultCategory so no event is ever dropped over routing.
func (m *CategoryMapper) Resolve(subject string) string {
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(subject, prefix) {
			return m.byPrefix[prefix]
		}
	}
	return DefaultCategory
}
