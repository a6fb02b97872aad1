package dataset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default column names for the tagging-stage input CSV.
const (
	DefaultQueryColumn  = "query"
	DefaultAnswerColumn = "answer"
	DefaultIDColumn     = "id"
)

// Default column names for the evaluation CSV.
const (
	DefaultExpectedColumn  = "expected_tag"
	DefaultPredictedColumn = "predicted_tag"
)

// SchemaError reports required columns that are absent from a CSV header.
// It lists every missing column at once so the operator can fix the file or
// the mapping in a single pass.
type SchemaError struct {
	Path      string
	Missing   []string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing columns: %s (available: %s)",
		e.Path, strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// ColumnMapping names the input columns of the tagging stage. Empty fields
// fall back to the defaults.
type ColumnMapping struct {
	Query  string `yaml:"query"`
	Answer string `yaml:"answer"`
	ID     string `yaml:"id"`
}

// DefaultMapping returns the mapping for the standard query/answer/id header.
func DefaultMapping() ColumnMapping {
	return ColumnMapping{
		Query:  DefaultQueryColumn,
		Answer: DefaultAnswerColumn,
		ID:     DefaultIDColumn,
	}
}

func (m ColumnMapping) withDefaults() ColumnMapping {
	if strings.TrimSpace(m.Query) == "" {
		m.Query = DefaultQueryColumn
	}
	if strings.TrimSpace(m.Answer) == "" {
		m.Answer = DefaultAnswerColumn
	}
	if strings.TrimSpace(m.ID) == "" {
		m.ID = DefaultIDColumn
	}
	return m
}

// LoadMappingFile reads a YAML column mapping. Missing keys keep their
// defaults, so a file may override just one column.
func LoadMappingFile(path string) (ColumnMapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ColumnMapping{}, fmt.Errorf("read mapping %q: %w", path, err)
	}

	var mapping ColumnMapping
	if err := yaml.Unmarshal(raw, &mapping); err != nil {
		return ColumnMapping{}, fmt.Errorf("parse mapping %q: %w", path, err)
	}
	return mapping.withDefaults(), nil
}

type queryIndexes struct {
	query  int
	answer int
	id     int
}

func (m ColumnMapping) indexes(path string, header []string) (queryIndexes, error) {
	m = m.withDefaults()
	idx := queryIndexes{
		query:  columnIndex(header, m.Query),
		answer: columnIndex(header, m.Answer),
		id:     columnIndex(header, m.ID),
	}

	missing := make([]string, 0, 3)
	if idx.query == -1 {
		missing = append(missing, m.Query)
	}
	if idx.answer == -1 {
		missing = append(missing, m.Answer)
	}
	if idx.id == -1 {
		missing = append(missing, m.ID)
	}
	if len(missing) > 0 {
		return queryIndexes{}, &SchemaError{Path: path, Missing: missing, Available: cleanHeader(header)}
	}
	return idx, nil
}

// columnIndex matches a configured column name against a header
// case-insensitively, tolerating surrounding whitespace and a UTF-8 BOM on
// the first cell.
func columnIndex(header []string, name string) int {
	want := normalizeHeader(name)
	for i, col := range header {
		if normalizeHeader(col) == want {
			return i
		}
	}
	return -1
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(s))
}

func cleanHeader(header []string) []string {
	out := make([]string, 0, len(header))
	for _, col := range header {
		out = append(out, normalizeHeader(col))
	}
	return out
}
