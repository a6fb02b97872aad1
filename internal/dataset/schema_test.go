package dataset

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMappingFilePartialOverride(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "mapping.yaml")
	writeFile(t, path, "query: frage\n")

	mapping, err := LoadMappingFile(path)
	if err != nil {
		t.Fatalf("LoadMappingFile error: %v", err)
	}
	if got, want := mapping.Query, "frage"; got != want {
		t.Fatalf("query column mismatch: got %q want %q", got, want)
	}
	if got, want := mapping.Answer, DefaultAnswerColumn; got != want {
		t.Fatalf("answer column mismatch: got %q want %q", got, want)
	}
	if got, want := mapping.ID, DefaultIDColumn; got != want {
		t.Fatalf("id column mismatch: got %q want %q", got, want)
	}
}

func TestSchemaErrorMessageListsColumns(t *testing.T) {
	t.Parallel()

	err := &SchemaError{
		Path:      "input.csv",
		Missing:   []string{"answer", "id"},
		Available: []string{"query", "notes"},
	}
	msg := err.Error()
	if !strings.Contains(msg, "input.csv") {
		t.Fatalf("message misses path: %q", msg)
	}
	if !strings.Contains(msg, "missing columns: answer, id") {
		t.Fatalf("message misses columns: %q", msg)
	}
	if !strings.Contains(msg, "available: query, notes") {
		t.Fatalf("message misses available list: %q", msg)
	}
}
