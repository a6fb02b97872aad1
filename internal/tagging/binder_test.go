package tagging

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tetraminz/tagforge/internal/dataset"
)

func TestBindAnswersDropsFailedGroups(t *testing.T) {
	t.Parallel()

	records := []dataset.QueryRecord{
		{GroupID: "7", Query: "Where do I vote?", Answer: "At your station."},
		{GroupID: "3", Query: "Am I registered?", Answer: "Check the list."},
		{GroupID: "7", Query: "Which station is mine?", Answer: "At your station."},
		{GroupID: "9", Query: "When are elections?", Answer: "In September."},
	}
	// Group 3 failed tag generation and is absent from the resolved units.
	units := []TagUnit{
		{GroupID: "7", Answer: "At your station.", Tag: "polling_station"},
		{GroupID: "9", Answer: "In September.", Tag: "election_schedule"},
	}

	binding := BindAnswers(records, units)

	wantQueryTags := []dataset.QueryTag{
		{Query: "Where do I vote?", Tag: "polling_station"},
		{Query: "Which station is mine?", Tag: "polling_station"},
		{Query: "When are elections?", Tag: "election_schedule"},
	}
	if !reflect.DeepEqual(binding.QueryTags(), wantQueryTags) {
		t.Fatalf("query tags mismatch: got %v want %v", binding.QueryTags(), wantQueryTags)
	}

	wantTagAnswers := []dataset.TagAnswer{
		{Tag: "polling_station", Answer: "At your station."},
		{Tag: "election_schedule", Answer: "In September."},
	}
	if !reflect.DeepEqual(binding.TagAnswers(), wantTagAnswers) {
		t.Fatalf("tag answers mismatch: got %v want %v", binding.TagAnswers(), wantTagAnswers)
	}

	if got, want := binding.Tags(), []string{"polling_station", "election_schedule"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("tags mismatch: got %v want %v", got, want)
	}
	wantQueries := []string{"Where do I vote?", "Which station is mine?"}
	if got := binding.QueriesFor("polling_station"); !reflect.DeepEqual(got, wantQueries) {
		t.Fatalf("queries mismatch: got %v want %v", got, wantQueries)
	}
}

func TestBindAnswersSkipsUntaggedUnits(t *testing.T) {
	t.Parallel()

	records := []dataset.QueryRecord{{GroupID: "1", Query: "q", Answer: "a"}}
	units := []TagUnit{{GroupID: "1", Answer: "a"}} // no tag assigned

	binding := BindAnswers(records, units)
	if got := len(binding.QueryTags()); got != 0 {
		t.Fatalf("expected no query tags, got %d", got)
	}
	if got := len(binding.Tags()); got != 0 {
		t.Fatalf("expected no tags, got %d", got)
	}
}

func TestBindingAnswerLookup(t *testing.T) {
	t.Parallel()

	binding := BindAnswers(
		[]dataset.QueryRecord{{GroupID: "7", Query: "q", Answer: "At your station."}},
		[]TagUnit{{GroupID: "7", Answer: "At your station.", Tag: "polling_station"}},
	)

	answer, err := binding.AnswerFor("polling_station")
	if err != nil {
		t.Fatalf("AnswerFor error: %v", err)
	}
	if got, want := answer, "At your station."; got != want {
		t.Fatalf("answer mismatch: got %q want %q", got, want)
	}

	_, err = binding.AnswerFor("unknown_tag")
	var missing *MissingAnswerError
	if !errors.As(err, &missing) {
		t.Fatalf("error type got %T want *MissingAnswerError", err)
	}
	if got, want := missing.Tag, "unknown_tag"; got != want {
		t.Fatalf("missing tag got %q want %q", got, want)
	}
}

func TestBindingTreatsBlankAnswerAsMissing(t *testing.T) {
	t.Parallel()

	// A hand-edited tags_answers row can carry a tag with an empty answer
	// cell; lookups must refuse it instead of seeding empty answers.
	binding := BindingFromTables(
		[]dataset.QueryTag{{Query: "q", Tag: "ghost_tag"}},
		[]dataset.TagAnswer{{Tag: "ghost_tag", Answer: "  "}},
	)

	_, err := binding.AnswerFor("ghost_tag")
	var missing *MissingAnswerError
	if !errors.As(err, &missing) {
		t.Fatalf("error type got %T want *MissingAnswerError", err)
	}
	if got, want := missing.Tag, "ghost_tag"; got != want {
		t.Fatalf("missing tag got %q want %q", got, want)
	}
}

func TestBindingFromTablesSkipsDuplicateTags(t *testing.T) {
	t.Parallel()

	queryTags := []dataset.QueryTag{
		{Query: "Where do I vote?", Tag: "polling_station"},
		{Query: "Am I registered?", Tag: "voter_list"},
		{Query: "Which station is mine?", Tag: "polling_station"},
	}
	tagAnswers := []dataset.TagAnswer{
		{Tag: "polling_station", Answer: "At your station."},
		{Tag: "voter_list", Answer: "Check the list."},
		{Tag: "polling_station", Answer: "stale duplicate"},
	}

	binding := BindingFromTables(queryTags, tagAnswers)

	if got, want := binding.Tags(), []string{"polling_station", "voter_list"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("tags mismatch: got %v want %v", got, want)
	}

	// The first occurrence of a duplicated tag wins.
	answer, err := binding.AnswerFor("polling_station")
	if err != nil {
		t.Fatalf("AnswerFor error: %v", err)
	}
	if got, want := answer, "At your station."; got != want {
		t.Fatalf("answer mismatch: got %q want %q", got, want)
	}

	wantQueries := []string{"Where do I vote?", "Which station is mine?"}
	if got := binding.QueriesFor("polling_station"); !reflect.DeepEqual(got, wantQueries) {
		t.Fatalf("queries mismatch: got %v want %v", got, wantQueries)
	}
}
