package paraphrase

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/tetraminz/tagforge/internal/dataset"
	"github.com/tetraminz/tagforge/internal/tagging"
)

// Status is the lifecycle state of one paraphrase task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Task is one unit of paraphrase work: produce TargetCount paraphrases for
// one tag and persist them as a single per-tag file. Failed is not terminal
// across runs; a later run retries the whole task because no output file
// exists for it.
type Task struct {
	Tag            string
	SeedQuery      string
	SeedAnswer     string
	ExampleQueries []string
	TargetCount    int
	CompletedCount int
	Status         Status
}

// SkippedTask records a tag excluded from processing before any generative
// call, with the reason.
type SkippedTask struct {
	Tag    string
	Reason error
}

// Prompt context is capped to the first examples in table order.
const maxExampleQueries = 30

// BuildTasks mints one pending task per bound tag, in the binding's tag
// order. Tags named in exclude are dropped silently; tags without a bound
// answer or without example queries are returned as skipped.
func BuildTasks(binding *tagging.Binding, targetCount int, exclude []string) ([]Task, []SkippedTask) {
	excluded := make(map[string]bool, len(exclude))
	for _, tag := range exclude {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			excluded[tag] = true
		}
	}

	tasks := make([]Task, 0, len(binding.Tags()))
	skipped := make([]SkippedTask, 0)

	for _, tag := range binding.Tags() {
		if excluded[tag] {
			continue
		}

		answer, err := binding.AnswerFor(tag)
		if err != nil {
			skipped = append(skipped, SkippedTask{Tag: tag, Reason: err})
			continue
		}

		queries := binding.QueriesFor(tag)
		if len(queries) == 0 {
			skipped = append(skipped, SkippedTask{Tag: tag, Reason: fmt.Errorf("tag %q has no example queries", tag)})
			continue
		}
		if len(queries) > maxExampleQueries {
			queries = queries[:maxExampleQueries]
		}

		tasks = append(tasks, Task{
			Tag:            tag,
			SeedQuery:      queries[0],
			SeedAnswer:     answer,
			ExampleQueries: append([]string(nil), queries...),
			TargetCount:    targetCount,
			Status:         StatusPending,
		})
	}

	return tasks, skipped
}

// SortTasks orders tasks case-insensitively by tag, the processing order of
// standalone paraphrase runs. Chained runs keep discovery order instead.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return strings.ToLower(tasks[i].Tag) < strings.ToLower(tasks[j].Tag)
	})
}

// taskOutputComplete reports whether the task's per-tag file already exists
// with exactly the target row count. Completion is decided only from durable
// output; no separate progress log is consulted.
func taskOutputComplete(dir string, task Task) (bool, error) {
	path := dataset.TagFilePath(dir, task.Tag)
	rows, err := dataset.DataRowCount(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return rows == task.TargetCount, nil
}
