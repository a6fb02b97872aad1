// Package merge concatenates per-tag paraphrase files into one training
// dataset. Files are taken in ascending filename order, which fixes the row
// order and makes repeated merges over the same inputs byte-identical.
package merge

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/tetraminz/tagforge/internal/dataset"
)

// ErrNoInputFiles means the input directory held no per-tag files. Callers
// report it and keep the (header-only) output; it is not a run failure.
var ErrNoInputFiles = errors.New("no per-tag files to merge")

// TagCount pairs a tag with its row count in the merged output.
type TagCount struct {
	Tag  string
	Rows int
}

// Result describes one merge invocation, including the post-merge
// validation counters.
type Result struct {
	OutputPath  string
	Files       int
	Rows        int
	PerTag      []TagCount // input file order
	EmptyFields int        // rows with a blank question or answer
	Mismatched  []TagCount // tags whose row count differs from the expected size
}

// OutputName returns the dated merged-dataset file name for t.
func OutputName(t time.Time) string {
	return fmt.Sprintf("merged_dataset_%s.csv", t.Format("2006-01-02"))
}

// Merge concatenates every .csv file directly inside inputDir into
// outputPath. Rows are copied as-is: no filtering, no deduplication. When
// expectedRows is positive, per-tag files whose row count differs are
// reported in Result.Mismatched. A missing or empty input directory writes a
// header-only dataset and returns ErrNoInputFiles.
func Merge(inputDir, outputPath string, expectedRows int) (Result, error) {
	result := Result{OutputPath: outputPath}

	paths, err := dataset.ListCSVFiles(inputDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return result, err
	}

	merged := make([]dataset.ParaphraseRecord, 0, len(paths)*expectedRows)
	for _, path := range paths {
		records, err := dataset.ReadTagParaphrases(path)
		if err != nil {
			return result, err
		}

		tag := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for _, rec := range records {
			if rec.Question == "" || rec.Answer == "" {
				result.EmptyFields++
			}
		}

		merged = append(merged, records...)
		count := TagCount{Tag: tag, Rows: len(records)}
		result.PerTag = append(result.PerTag, count)
		if expectedRows > 0 && count.Rows != expectedRows {
			result.Mismatched = append(result.Mismatched, count)
		}
	}
	result.Files = len(paths)
	result.Rows = len(merged)

	if err := dataset.WriteMergedDataset(outputPath, merged); err != nil {
		return result, err
	}

	// Re-count the written file so the reported total reflects what actually
	// landed on disk.
	written, err := dataset.DataRowCount(outputPath)
	if err != nil {
		return result, err
	}
	if written != result.Rows {
		return result, fmt.Errorf("merged file %q holds %d rows, expected %d", outputPath, written, result.Rows)
	}

	if result.Files == 0 {
		return result, ErrNoInputFiles
	}
	return result, nil
}
