package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Standard artifact names inside an output directory.
const (
	QueriesTagsFile = "queries_tags.csv"
	TagsAnswersFile = "tags_answers.csv"
	TagFilesDir     = "individual_tags"
)

// WriteQueriesTags writes the (query, tag) table in input row order.
func WriteQueriesTags(path string, rows []QueryTag) error {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{row.Query, row.Tag})
	}
	return writeCSV(path, []string{"query", "tag"}, out)
}

// WriteTagsAnswers writes the (tag, answer) table in tag discovery order.
func WriteTagsAnswers(path string, rows []TagAnswer) error {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{row.Tag, row.Answer})
	}
	return writeCSV(path, []string{"tag", "answer"}, out)
}

// TagFilePath returns the per-tag paraphrase file path for tag inside dir.
func TagFilePath(dir, tag string) string {
	return filepath.Join(dir, tag+".csv")
}

// WriteTagParaphrases persists one completed paraphrase task as
// individual_tags/<tag>.csv. The file is written to a temp file in the same
// directory and renamed into place, so a file that exists is always complete;
// an interrupted write leaves only the temp file, which is removed.
func WriteTagParaphrases(dir, tag string, records []ParaphraseRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+tag+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp for %q: %w", tag, err)
	}
	tmpPath := tmp.Name()

	writer := csv.NewWriter(tmp)
	writeErr := writer.Write([]string{"question", "answer"})
	for _, rec := range records {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write([]string{rec.Question, rec.Answer})
	}
	writer.Flush()
	if writeErr == nil {
		writeErr = writer.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %q: %w", tmpPath, writeErr)
	}

	final := TagFilePath(dir, tag)
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename %q: %w", tmpPath, err)
	}
	return final, nil
}

// WriteMergedDataset writes the merged training dataset.
func WriteMergedDataset(path string, records []ParaphraseRecord) error {
	out := make([][]string, 0, len(records))
	for _, rec := range records {
		out = append(out, []string{rec.Question, rec.Answer})
	}
	return writeCSV(path, []string{"question", "answer"}, out)
}

// DataRowCount counts the data rows of a CSV file, excluding the header.
func DataRowCount(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	count := -1
	for {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("read %q: %w", path, err)
		}
		count++
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %q: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}

	writer := csv.NewWriter(file)
	writeErr := writer.Write(header)
	for _, row := range rows {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write(row)
	}
	writer.Flush()
	if writeErr == nil {
		writeErr = writer.Error()
	}
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("write %q: %w", path, writeErr)
	}
	return nil
}
