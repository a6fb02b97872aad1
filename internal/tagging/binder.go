package tagging

import (
	"fmt"
	"strings"

	"github.com/tetraminz/tagforge/internal/dataset"
)

// MissingAnswerError reports a tag that reached the paraphrase stage without
// a bound answer.
type MissingAnswerError struct {
	Tag string
}

func (e *MissingAnswerError) Error() string {
	return fmt.Sprintf("tag %q has no bound answer", e.Tag)
}

// Binding joins resolved tags to their queries and answers. It backs the
// queries_tags and tags_answers tables and answers lookups for the
// paraphrase stage.
type Binding struct {
	queryTags  []dataset.QueryTag
	tagAnswers []dataset.TagAnswer
	tagOrder   []string
	answers    map[string]string
	queries    map[string][]string
}

// BindAnswers builds the binding from the original records and the resolved
// units. The (query, tag) table keeps input row order; rows whose group
// failed tag generation are dropped. The (tag, answer) table keeps tag
// discovery order.
func BindAnswers(records []dataset.QueryRecord, units []TagUnit) *Binding {
	tagByGroup := make(map[string]string, len(units))
	b := &Binding{
		queryTags:  make([]dataset.QueryTag, 0, len(records)),
		tagAnswers: make([]dataset.TagAnswer, 0, len(units)),
		tagOrder:   make([]string, 0, len(units)),
		answers:    make(map[string]string, len(units)),
		queries:    make(map[string][]string, len(units)),
	}

	for _, unit := range units {
		if unit.Tag == "" {
			continue
		}
		tagByGroup[unit.GroupID] = unit.Tag
		b.tagOrder = append(b.tagOrder, unit.Tag)
		b.tagAnswers = append(b.tagAnswers, dataset.TagAnswer{Tag: unit.Tag, Answer: unit.Answer})
		b.answers[unit.Tag] = unit.Answer
	}

	for _, rec := range records {
		tag, ok := tagByGroup[rec.GroupID]
		if !ok {
			continue
		}
		b.queryTags = append(b.queryTags, dataset.QueryTag{Query: rec.Query, Tag: tag})
		b.queries[tag] = append(b.queries[tag], rec.Query)
	}

	return b
}

// BindingFromTables rebuilds a binding from previously written
// queries_tags and tags_answers tables, for standalone paraphrase runs.
func BindingFromTables(queryTags []dataset.QueryTag, tagAnswers []dataset.TagAnswer) *Binding {
	b := &Binding{
		queryTags:  queryTags,
		tagAnswers: tagAnswers,
		tagOrder:   make([]string, 0, len(tagAnswers)),
		answers:    make(map[string]string, len(tagAnswers)),
		queries:    make(map[string][]string, len(tagAnswers)),
	}

	for _, row := range tagAnswers {
		if _, dup := b.answers[row.Tag]; dup {
			continue
		}
		b.tagOrder = append(b.tagOrder, row.Tag)
		b.answers[row.Tag] = row.Answer
	}
	for _, row := range queryTags {
		b.queries[row.Tag] = append(b.queries[row.Tag], row.Query)
	}

	return b
}

// QueryTags returns the (query, tag) table in input row order.
func (b *Binding) QueryTags() []dataset.QueryTag { return b.queryTags }

// TagAnswers returns the (tag, answer) table in tag discovery order.
func (b *Binding) TagAnswers() []dataset.TagAnswer { return b.tagAnswers }

// Tags returns all bound tags in discovery order.
func (b *Binding) Tags() []string { return b.tagOrder }

// QueriesFor returns the member queries recorded for tag, in table order.
func (b *Binding) QueriesFor(tag string) []string { return b.queries[tag] }

// AnswerFor returns the answer bound to tag. Unknown tags and tags whose
// table row carries a blank answer both come back as MissingAnswerError.
func (b *Binding) AnswerFor(tag string) (string, error) {
	answer, ok := b.answers[tag]
	if !ok || strings.TrimSpace(answer) == "" {
		return "", &MissingAnswerError{Tag: tag}
	}
	return answer, nil
}
