package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	tagSchemaName = "unit_tag"

	// Prompt-size bounds for one unit.
	sampleQueryLimit   = 5
	answerPreviewLimit = 500

	fallbackTagPrefix = "tag_"
)

var tagCleanupRegex = regexp.MustCompile(`[^a-z0-9_]+`)

// LLMClient abstracts the generative client so tests can script responses.
type LLMClient interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt, schemaName string, schema map[string]any) (content string, requestID string, err error)
}

// Config bounds the per-unit call policy. Zero values fall back to defaults.
type Config struct {
	MaxAttempts int           // calls per unit before it is marked failed
	Backoff     time.Duration // initial retry delay, doubles per retry
	UnitLimit   int           // test mode: process only the first N units
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	return c
}

// FailedUnit records a unit whose tag generation exhausted its attempts.
type FailedUnit struct {
	GroupID string
	Err     error
}

// Service mints one short tag per unit through the generative model, one
// outbound call per unit.
type Service struct {
	client LLMClient
	cfg    Config
}

// NewService creates a tag generation service.
func NewService(client LLMClient, cfg Config) *Service {
	return &Service{client: client, cfg: cfg.withDefaults()}
}

// GenerateTags resolves a tag for every unit, preserving discovery order.
// Units whose calls exhaust the retry budget are dropped from the resolved
// slice and reported in the failed slice; the run continues. Tags are
// normalized and de-duplicated across units (collisions get a _2, _3, ...
// suffix; the first holder keeps the bare name). A unit cap, when set,
// keeps only the first N units.
func (s *Service) GenerateTags(ctx context.Context, units []TagUnit) ([]TagUnit, []FailedUnit, error) {
	if s.cfg.UnitLimit > 0 && s.cfg.UnitLimit < len(units) {
		units = units[:s.cfg.UnitLimit]
	}

	resolved := make([]TagUnit, 0, len(units))
	failed := make([]FailedUnit, 0)
	seen := make(map[string]bool, len(units))

	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			return resolved, failed, err
		}

		tag, attempts, err := s.generateUnitTag(ctx, unit)
		if err != nil {
			if ctx.Err() != nil {
				return resolved, failed, ctx.Err()
			}
			failed = append(failed, FailedUnit{GroupID: unit.GroupID, Err: err})
			fmt.Printf("tag_event unit=%d/%d group=%s status=failed attempts=%d error=%q\n",
				i+1, len(units), unit.GroupID, attempts, err)
			continue
		}

		tag = uniqueTag(tag, seen)
		seen[tag] = true
		unit.Tag = tag
		resolved = append(resolved, unit)
		fmt.Printf("tag_event unit=%d/%d group=%s status=ok tag=%s attempts=%d\n",
			i+1, len(units), unit.GroupID, tag, attempts)
	}

	return resolved, failed, nil
}

func (s *Service) generateUnitTag(ctx context.Context, unit TagUnit) (string, int, error) {
	schema := tagSchema()
	backoff := s.cfg.Backoff
	attempts := 0

	for {
		attempts++
		content, requestID, err := s.client.GenerateStructured(ctx, tagSystemPrompt, buildTagPrompt(unit), tagSchemaName, schema)
		if err == nil {
			var parsed struct {
				Tag string `json:"tag"`
			}
			if parseErr := json.Unmarshal([]byte(content), &parsed); parseErr != nil {
				err = fmt.Errorf("parse tag response: %w", parseErr)
			} else {
				tag := CleanTag(parsed.Tag)
				if tag == "" {
					tag = fallbackTagPrefix + unit.GroupID
				}
				return tag, attempts, nil
			}
		}

		if attempts >= s.cfg.MaxAttempts {
			return "", attempts, fmt.Errorf("group %q tag generation failed after %d attempts: %w", unit.GroupID, attempts, err)
		}
		fmt.Printf("tag_event group=%s attempt=%d request=%s error=%q\n", unit.GroupID, attempts, requestID, err)
		if serr := sleepContext(ctx, backoff); serr != nil {
			return "", attempts, serr
		}
		backoff *= 2
	}
}

// CleanTag normalizes a model-produced tag label: lowercase, spaces and
// hyphens become underscores, anything else outside [a-z0-9_] is dropped,
// outer underscores are trimmed. An empty result means the caller should
// fall back to a group-derived name.
func CleanTag(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = tagCleanupRegex.ReplaceAllString(s, "")
	return strings.Trim(s, "_")
}

func uniqueTag(tag string, seen map[string]bool) string {
	if !seen[tag] {
		return tag
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", tag, n)
		if !seen[candidate] {
			return candidate
		}
	}
}

func tagSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"tag"},
		"properties": map[string]any{
			"tag": map[string]any{"type": "string"},
		},
	}
}

const tagSystemPrompt = `You label groups of semantically similar user questions.
You MUST output only JSON that matches the provided JSON Schema (strict).
The tag is a short lowercase topic label of 1-3 words joined by underscores.
Examples: voter_list, election_schedule, candidate_info.`

func buildTagPrompt(unit TagUnit) string {
	queries := unit.Queries
	if len(queries) > sampleQueryLimit {
		queries = queries[:sampleQueryLimit]
	}

	var builder strings.Builder
	builder.WriteString("Questions from one topic group:\n")
	for _, q := range queries {
		builder.WriteString("- ")
		builder.WriteString(q)
		builder.WriteString("\n")
	}
	builder.WriteString("\nShared answer:\n")
	builder.WriteString(truncateText(unit.Answer, answerPreviewLimit))
	builder.WriteString("\n\nTask: produce one short tag naming the topic these questions share.")
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
