package paraphrase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tetraminz/tagforge/internal/dataset"
)

const (
	paraphraseSchemaName = "paraphrase_batch"

	answerPreviewLimit = 500
)

var numberingPrefixRegex = regexp.MustCompile(`^\s*\d+[.)]\s*`)

// LLMClient abstracts the generative client so tests can script responses.
type LLMClient interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt, schemaName string, schema map[string]any) (content string, requestID string, err error)
}

// Config bounds the generation policy. Zero values fall back to defaults.
type Config struct {
	OutputDir   string        // per-tag files land here
	BatchSize   int           // questions per call, must stay below the target
	MaxAttempts int           // calls per batch before the task is abandoned
	Backoff     time.Duration // initial retry delay, doubles per retry
	Pacing      time.Duration // delay between completed tasks
	TaskLimit   int           // test mode: process only the first N tasks
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	return c
}

// FailedTask records a task abandoned after its retry budget ran out.
type FailedTask struct {
	Tag string
	Err error
}

// Summary aggregates one generation run for the end-of-run report.
type Summary struct {
	Completed []string      // tags completed by this run
	Resumed   []string      // tags already complete on disk, skipped
	Failed    []FailedTask  // tasks abandoned this run
	Skipped   []SkippedTask // tags dropped before processing (filled by the caller)
}

// Generator drives paraphrase tasks one at a time: request batches until the
// target count is reached, then persist the per-tag file atomically. Only
// whole-task completion is durable; a task that fails mid-way leaves nothing
// behind and is retried from scratch by a later run.
type Generator struct {
	client LLMClient
	cfg    Config
}

// NewGenerator creates a paraphrase generator.
func NewGenerator(client LLMClient, cfg Config) *Generator {
	return &Generator{client: client, cfg: cfg.withDefaults()}
}

// Run processes tasks sequentially in the given order. Tasks whose output
// file already holds the target row count are skipped without any generative
// call. A task failure never aborts its siblings; cancellation does, leaving
// the in-progress task unpersisted.
func (g *Generator) Run(ctx context.Context, tasks []Task) (Summary, error) {
	if g.cfg.TaskLimit > 0 && g.cfg.TaskLimit < len(tasks) {
		tasks = tasks[:g.cfg.TaskLimit]
	}

	var summary Summary
	for i := range tasks {
		task := &tasks[i]

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		done, err := taskOutputComplete(g.cfg.OutputDir, *task)
		if err != nil {
			return summary, err
		}
		if done {
			task.Status = StatusComplete
			task.CompletedCount = task.TargetCount
			summary.Resumed = append(summary.Resumed, task.Tag)
			fmt.Printf("paraphrase_event task=%d/%d tag=%s status=resumed rows=%d\n",
				i+1, len(tasks), task.Tag, task.TargetCount)
			continue
		}

		records, err := g.generateTask(ctx, task)
		if err == nil {
			_, err = dataset.WriteTagParaphrases(g.cfg.OutputDir, task.Tag, records)
		}
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			task.Status = StatusFailed
			summary.Failed = append(summary.Failed, FailedTask{Tag: task.Tag, Err: err})
			fmt.Printf("paraphrase_event task=%d/%d tag=%s status=failed completed=%d error=%q\n",
				i+1, len(tasks), task.Tag, task.CompletedCount, err)
			continue
		}

		task.Status = StatusComplete
		summary.Completed = append(summary.Completed, task.Tag)
		fmt.Printf("paraphrase_event task=%d/%d tag=%s status=complete rows=%d\n",
			i+1, len(tasks), task.Tag, task.TargetCount)

		if g.cfg.Pacing > 0 && i+1 < len(tasks) {
			if err := sleepContext(ctx, g.cfg.Pacing); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

// generateTask accumulates batches until the target count is reached. Any
// batch exhausting its attempts abandons the whole task; partial progress is
// returned to the caller only through the task's CompletedCount for the
// failure report, never persisted.
func (g *Generator) generateTask(ctx context.Context, task *Task) ([]dataset.ParaphraseRecord, error) {
	task.Status = StatusInProgress
	task.CompletedCount = 0

	records := make([]dataset.ParaphraseRecord, 0, task.TargetCount)
	for task.CompletedCount < task.TargetCount {
		want := task.TargetCount - task.CompletedCount
		if want > g.cfg.BatchSize {
			want = g.cfg.BatchSize
		}

		questions, err := g.generateBatch(ctx, task, want)
		if err != nil {
			return nil, err
		}

		for _, question := range questions {
			if task.CompletedCount >= task.TargetCount {
				break
			}
			records = append(records, dataset.ParaphraseRecord{
				Tag:      task.Tag,
				Question: question,
				Answer:   task.SeedAnswer,
			})
			task.CompletedCount++
		}
	}

	return records, nil
}

func (g *Generator) generateBatch(ctx context.Context, task *Task, count int) ([]string, error) {
	schema := paraphraseSchema()
	backoff := g.cfg.Backoff
	attempts := 0

	for {
		attempts++
		content, requestID, err := g.client.GenerateStructured(ctx, paraphraseSystemPrompt, buildParaphrasePrompt(*task, count), paraphraseSchemaName, schema)
		if err == nil {
			var questions []string
			questions, err = parseQuestions(content)
			if err == nil {
				return questions, nil
			}
		}

		if attempts >= g.cfg.MaxAttempts {
			return nil, fmt.Errorf("tag %q batch failed after %d attempts: %w", task.Tag, attempts, err)
		}
		fmt.Printf("paraphrase_event tag=%s attempt=%d request=%s error=%q\n", task.Tag, attempts, requestID, err)
		if serr := sleepContext(ctx, backoff); serr != nil {
			return nil, serr
		}
		backoff *= 2
	}
}

// parseQuestions decodes one batch response and drops unusable lines. Models
// occasionally number items even inside a JSON array, so leading "1. " / "1)"
// markers are stripped.
func parseQuestions(content string) ([]string, error) {
	var parsed struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse batch response: %w", err)
	}

	out := make([]string, 0, len(parsed.Questions))
	for _, question := range parsed.Questions {
		question = strings.TrimSpace(numberingPrefixRegex.ReplaceAllString(question, ""))
		if question == "" {
			continue
		}
		out = append(out, question)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("batch returned no usable questions")
	}
	return out, nil
}

func paraphraseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}

const paraphraseSystemPrompt = `You write paraphrases of user questions to train a question-answering bot.
You MUST output only JSON that matches the provided JSON Schema (strict).
Every paraphrase is one natural, self-contained question in the same language as the examples.
Do not number the questions.`

func buildParaphrasePrompt(task Task, count int) string {
	var builder strings.Builder
	builder.WriteString("Topic tag: ")
	builder.WriteString(task.Tag)
	builder.WriteString("\n\nExample questions users have asked:\n")
	for _, q := range task.ExampleQueries {
		builder.WriteString("- ")
		builder.WriteString(q)
		builder.WriteString("\n")
	}
	builder.WriteString("\nThe answer all of them share:\n")
	builder.WriteString(truncateText(task.SeedAnswer, answerPreviewLimit))
	fmt.Fprintf(&builder, "\n\nTask: write %d new distinct questions asking about this topic, varying wording, formality and length.", count)
	return builder.String()
}

func truncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
