package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadQueryRecordsSkipsBlankRows(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "queries.csv")
	content := strings.Join([]string{
		"id,query,answer",
		"7,Where do I vote?,At your assigned polling station.",
		"7,,At your assigned polling station.",
		"8,When do polls open?,",
		",Orphan question,Some answer",
		"8,When do polls close?,Polls close at 8pm.",
	}, "\n")
	writeFile(t, path, content)

	records, skipped, err := LoadQueryRecords(path, DefaultMapping())
	if err != nil {
		t.Fatalf("LoadQueryRecords error: %v", err)
	}
	if got, want := len(records), 2; got != want {
		t.Fatalf("record count mismatch: got %d want %d", got, want)
	}
	if got, want := skipped, 3; got != want {
		t.Fatalf("skipped count mismatch: got %d want %d", got, want)
	}
	if got, want := records[0].GroupID, "7"; got != want {
		t.Fatalf("first group mismatch: got %q want %q", got, want)
	}
	if got, want := records[1].Query, "When do polls close?"; got != want {
		t.Fatalf("second query mismatch: got %q want %q", got, want)
	}
}

func TestLoadQueryRecordsListsEveryMissingColumn(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "queries.csv")
	writeFile(t, path, "query,notes\nWhere do I vote?,n/a\n")

	_, _, err := LoadQueryRecords(path, DefaultMapping())
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if got, want := schemaErr.Missing, []string{"answer", "id"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("missing columns mismatch: got %v want %v", got, want)
	}
	if !strings.Contains(err.Error(), "missing columns: answer, id") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestLoadQueryRecordsNormalizesHeader(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "queries.csv")
	writeFile(t, path, "\ufeffID, Query ,ANSWER\n3,Where is my polling station?,Check the voter portal.\n")

	records, skipped, err := LoadQueryRecords(path, DefaultMapping())
	if err != nil {
		t.Fatalf("LoadQueryRecords error: %v", err)
	}
	if skipped != 0 || len(records) != 1 {
		t.Fatalf("expected 1 record and 0 skipped, got %d and %d", len(records), skipped)
	}
	if got, want := records[0].GroupID, "3"; got != want {
		t.Fatalf("group mismatch: got %q want %q", got, want)
	}
}

func TestReadQueriesTagsSkipsBlankRows(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, QueriesTagsFile)
	writeFile(t, path, "query,tag\nWhere do I vote?,polling_station\n,polling_station\nHow to register?,\n")

	rows, err := ReadQueriesTags(path)
	if err != nil {
		t.Fatalf("ReadQueriesTags error: %v", err)
	}
	if got, want := len(rows), 1; got != want {
		t.Fatalf("row count mismatch: got %d want %d", got, want)
	}
	if got, want := rows[0].Tag, "polling_station"; got != want {
		t.Fatalf("tag mismatch: got %q want %q", got, want)
	}
}

func TestReadTagParaphrasesNamesTagFromFile(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "polling_station.csv")
	writeFile(t, path, "question,answer\nWhere can I cast my ballot?,At your assigned polling station.\n,\n")

	records, err := ReadTagParaphrases(path)
	if err != nil {
		t.Fatalf("ReadTagParaphrases error: %v", err)
	}
	if got, want := len(records), 2; got != want {
		t.Fatalf("row count mismatch: got %d want %d", got, want)
	}
	if got, want := records[0].Tag, "polling_station"; got != want {
		t.Fatalf("tag mismatch: got %q want %q", got, want)
	}
	if records[1].Question != "" || records[1].Answer != "" {
		t.Fatalf("blank row should be kept as-is, got %+v", records[1])
	}
}

func TestListCSVFilesSortedTopLevelOnly(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "b_tag.csv"), "question,answer\n")
	writeFile(t, filepath.Join(tempDir, "a_tag.csv"), "question,answer\n")
	writeFile(t, filepath.Join(tempDir, "notes.txt"), "not a csv")
	if err := os.MkdirAll(filepath.Join(tempDir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(tempDir, "nested", "c_tag.csv"), "question,answer\n")

	paths, err := ListCSVFiles(tempDir)
	if err != nil {
		t.Fatalf("ListCSVFiles error: %v", err)
	}
	want := []string{filepath.Join(tempDir, "a_tag.csv"), filepath.Join(tempDir, "b_tag.csv")}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths mismatch: got %v want %v", paths, want)
	}
}

func TestLoadEvaluationRecordsRequiresOnlyTagColumns(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "eval.csv")
	writeFile(t, path, "expected_tag,predicted_tag\npolling_station,polling_station\npolling_station,voter_list\n")

	records, err := LoadEvaluationRecords(path, "", "")
	if err != nil {
		t.Fatalf("LoadEvaluationRecords error: %v", err)
	}
	if got, want := len(records), 2; got != want {
		t.Fatalf("record count mismatch: got %d want %d", got, want)
	}
	if records[0].Question != "" {
		t.Fatalf("expected empty question for absent column, got %q", records[0].Question)
	}
	if got, want := records[1].PredictedTag, "voter_list"; got != want {
		t.Fatalf("predicted mismatch: got %q want %q", got, want)
	}
}

func TestLoadEvaluationRecordsMissingPredictedColumn(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "eval.csv")
	writeFile(t, path, "expected_tag,latency\npolling_station,0.2\n")

	_, err := LoadEvaluationRecords(path, "", "")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if got, want := schemaErr.Missing, []string{"predicted_tag"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("missing mismatch: got %v want %v", got, want)
	}
}
