package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// QueryRecord is one input row of the tagging stage. Rows sharing GroupID
// form one tag unit.
type QueryRecord struct {
	Query   string
	Answer  string
	GroupID string
}

// QueryTag is one row of queries_tags.csv.
type QueryTag struct {
	Query string
	Tag   string
}

// TagAnswer is one row of tags_answers.csv.
type TagAnswer struct {
	Tag    string
	Answer string
}

// ParaphraseRecord is one generated row of a per-tag paraphrase file.
type ParaphraseRecord struct {
	Tag      string
	Question string
	Answer   string
}

// EvaluationRecord is one row of the evaluation CSV consumed by the analyzer.
type EvaluationRecord struct {
	Question        string
	SimilarQuestion string
	ExpectedTag     string
	PredictedTag    string
	Latency         string
}

// LoadQueryRecords reads the tagging-stage input CSV using the given column
// mapping. Rows where the query, answer, or group id is blank after trimming
// are dropped; the second return value counts them.
func LoadQueryRecords(path string, mapping ColumnMapping) ([]QueryRecord, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read %q: empty csv", path)
		}
		return nil, 0, fmt.Errorf("read %q header: %w", path, err)
	}

	idx, err := mapping.indexes(path, header)
	if err != nil {
		return nil, 0, err
	}

	records := make([]QueryRecord, 0, 256)
	skipped := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read %q row: %w", path, err)
		}

		query := strings.TrimSpace(valueAt(record, idx.query))
		answer := strings.TrimSpace(valueAt(record, idx.answer))
		groupID := strings.TrimSpace(valueAt(record, idx.id))
		if query == "" || answer == "" || groupID == "" {
			skipped++
			continue
		}

		records = append(records, QueryRecord{
			Query:   query,
			Answer:  answer,
			GroupID: groupID,
		})
	}

	return records, skipped, nil
}

// LoadEvaluationRecords reads the evaluation CSV. Only the expected and
// predicted tag columns are required; the rest are carried when present.
func LoadEvaluationRecords(path, expectedColumn, predictedColumn string) ([]EvaluationRecord, error) {
	if strings.TrimSpace(expectedColumn) == "" {
		expectedColumn = DefaultExpectedColumn
	}
	if strings.TrimSpace(predictedColumn) == "" {
		predictedColumn = DefaultPredictedColumn
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %q: empty csv", path)
		}
		return nil, fmt.Errorf("read %q header: %w", path, err)
	}

	expectedIdx := columnIndex(header, expectedColumn)
	predictedIdx := columnIndex(header, predictedColumn)
	missing := make([]string, 0, 2)
	if expectedIdx == -1 {
		missing = append(missing, expectedColumn)
	}
	if predictedIdx == -1 {
		missing = append(missing, predictedColumn)
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing, Available: cleanHeader(header)}
	}

	questionIdx := columnIndex(header, "question")
	similarIdx := columnIndex(header, "similar_question")
	latencyIdx := columnIndex(header, "latency")

	records := make([]EvaluationRecord, 0, 1024)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read %q row: %w", path, err)
		}

		records = append(records, EvaluationRecord{
			Question:        strings.TrimSpace(valueAt(record, questionIdx)),
			SimilarQuestion: strings.TrimSpace(valueAt(record, similarIdx)),
			ExpectedTag:     strings.TrimSpace(valueAt(record, expectedIdx)),
			PredictedTag:    strings.TrimSpace(valueAt(record, predictedIdx)),
			Latency:         strings.TrimSpace(valueAt(record, latencyIdx)),
		})
	}

	return records, nil
}

// ReadQueriesTags reads a queries_tags.csv produced by the tagging stage.
func ReadQueriesTags(path string) ([]QueryTag, error) {
	rows, err := readTwoColumns(path, "query", "tag")
	if err != nil {
		return nil, err
	}

	out := make([]QueryTag, 0, len(rows))
	for _, row := range rows {
		if row[0] == "" || row[1] == "" {
			continue
		}
		out = append(out, QueryTag{Query: row[0], Tag: row[1]})
	}
	return out, nil
}

// ReadTagsAnswers reads a tags_answers.csv produced by the tagging stage.
func ReadTagsAnswers(path string) ([]TagAnswer, error) {
	rows, err := readTwoColumns(path, "tag", "answer")
	if err != nil {
		return nil, err
	}

	out := make([]TagAnswer, 0, len(rows))
	for _, row := range rows {
		if row[0] == "" {
			continue
		}
		out = append(out, TagAnswer{Tag: row[0], Answer: row[1]})
	}
	return out, nil
}

// ReadTagParaphrases reads one per-tag paraphrase file. The tag comes from
// the file name; rows are returned as-is, blanks included, since the merge
// stage does no filtering.
func ReadTagParaphrases(path string) ([]ParaphraseRecord, error) {
	rows, err := readTwoColumns(path, "question", "answer")
	if err != nil {
		return nil, err
	}

	tag := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := make([]ParaphraseRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ParaphraseRecord{Tag: tag, Question: row[0], Answer: row[1]})
	}
	return out, nil
}

func readTwoColumns(path, first, second string) ([][2]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %q: empty csv", path)
		}
		return nil, fmt.Errorf("read %q header: %w", path, err)
	}

	firstIdx := columnIndex(header, first)
	secondIdx := columnIndex(header, second)
	missing := make([]string, 0, 2)
	if firstIdx == -1 {
		missing = append(missing, first)
	}
	if secondIdx == -1 {
		missing = append(missing, second)
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing, Available: cleanHeader(header)}
	}

	rows := make([][2]string, 0, 256)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read %q row: %w", path, err)
		}
		rows = append(rows, [2]string{
			strings.TrimSpace(valueAt(record, firstIdx)),
			strings.TrimSpace(valueAt(record, secondIdx)),
		})
	}

	return rows, nil
}

// ListCSVFiles returns the .csv files directly inside dir, sorted by name.
// The sort fixes the merge concatenation order.
func ListCSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func valueAt(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return record[index]
}
