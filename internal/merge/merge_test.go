package merge

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tetraminz/tagforge/internal/dataset"
)

func seedTagFile(t *testing.T, dir, tag string, questions ...string) {
	t.Helper()
	records := make([]dataset.ParaphraseRecord, 0, len(questions))
	for _, q := range questions {
		records = append(records, dataset.ParaphraseRecord{Question: q, Answer: "answer for " + tag})
	}
	if _, err := dataset.WriteTagParaphrases(dir, tag, records); err != nil {
		t.Fatalf("seed %q: %v", tag, err)
	}
}

func TestMergeConcatenatesInFilenameOrder(t *testing.T) {
	t.Parallel()

	inputDir := t.TempDir()
	// Seeded out of order on purpose; the merge sorts by filename.
	seedTagFile(t, inputDir, "voter_list", "v1", "v2")
	seedTagFile(t, inputDir, "polling_station", "p1", "p2")
	seedTagFile(t, inputDir, "schedule", "s1", "s2")

	outputPath := filepath.Join(t.TempDir(), "merged.csv")
	result, err := Merge(inputDir, outputPath, 2)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	if got, want := result.Files, 3; got != want {
		t.Fatalf("file count mismatch: got %d want %d", got, want)
	}
	if got, want := result.Rows, 6; got != want {
		t.Fatalf("row count mismatch: got %d want %d", got, want)
	}
	if len(result.Mismatched) != 0 {
		t.Fatalf("expected no mismatched tags, got %v", result.Mismatched)
	}

	wantPerTag := []TagCount{
		{Tag: "polling_station", Rows: 2},
		{Tag: "schedule", Rows: 2},
		{Tag: "voter_list", Rows: 2},
	}
	if !reflect.DeepEqual(result.PerTag, wantPerTag) {
		t.Fatalf("per-tag counts mismatch: got %v want %v", result.PerTag, wantPerTag)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	want := []string{
		"question,answer",
		"p1,answer for polling_station",
		"p2,answer for polling_station",
		"s1,answer for schedule",
		"s2,answer for schedule",
		"v1,answer for voter_list",
		"v2,answer for voter_list",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("output mismatch:\ngot  %v\nwant %v", lines, want)
	}
}

func TestMergeRerunIsByteIdentical(t *testing.T) {
	t.Parallel()

	inputDir := t.TempDir()
	seedTagFile(t, inputDir, "polling_station", "p1", "p2")
	seedTagFile(t, inputDir, "voter_list", "v1", "v2")

	outDir := t.TempDir()
	first := filepath.Join(outDir, "first.csv")
	second := filepath.Join(outDir, "second.csv")

	if _, err := Merge(inputDir, first, 0); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if _, err := Merge(inputDir, second, 0); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("merged outputs differ between runs")
	}
}

func TestMergeEmptyDirWritesHeaderOnly(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), "merged.csv")
	result, err := Merge(t.TempDir(), outputPath, 200)
	if !errors.Is(err, ErrNoInputFiles) {
		t.Fatalf("error got %v want ErrNoInputFiles", err)
	}
	if got, want := result.Files, 0; got != want {
		t.Fatalf("file count mismatch: got %d want %d", got, want)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got, want := strings.TrimSpace(string(content)), "question,answer"; got != want {
		t.Fatalf("output got %q want header only", got)
	}
}

func TestMergeMissingDirWritesHeaderOnly(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), "merged.csv")
	missing := filepath.Join(t.TempDir(), "does_not_exist")

	_, err := Merge(missing, outputPath, 200)
	if !errors.Is(err, ErrNoInputFiles) {
		t.Fatalf("error got %v want ErrNoInputFiles", err)
	}

	rows, err := dataset.DataRowCount(outputPath)
	if err != nil {
		t.Fatalf("DataRowCount error: %v", err)
	}
	if got, want := rows, 0; got != want {
		t.Fatalf("row count mismatch: got %d want %d", got, want)
	}
}

func TestMergeReportsMismatchedAndEmptyFields(t *testing.T) {
	t.Parallel()

	inputDir := t.TempDir()
	seedTagFile(t, inputDir, "polling_station", "p1", "p2")
	seedTagFile(t, inputDir, "voter_list", "v1")
	if _, err := dataset.WriteTagParaphrases(inputDir, "schedule", []dataset.ParaphraseRecord{
		{Question: "s1", Answer: "ok"},
		{Question: "", Answer: "answer without question"},
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	result, err := Merge(inputDir, filepath.Join(t.TempDir(), "merged.csv"), 2)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	wantMismatched := []TagCount{{Tag: "voter_list", Rows: 1}}
	if !reflect.DeepEqual(result.Mismatched, wantMismatched) {
		t.Fatalf("mismatched tags mismatch: got %v want %v", result.Mismatched, wantMismatched)
	}
	if got, want := result.EmptyFields, 1; got != want {
		t.Fatalf("empty field count mismatch: got %d want %d", got, want)
	}
	if got, want := result.Rows, 5; got != want {
		t.Fatalf("row count mismatch: got %d want %d", got, want)
	}
}
