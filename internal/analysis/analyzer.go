// Package analysis rolls an evaluation log up into per-tag accuracy
// statistics. It is independent of the generation pipeline and only reads
// the evaluation CSV.
package analysis

import (
	"sort"
	"strings"

	"github.com/tetraminz/tagforge/internal/dataset"
)

// Accuracy tier boundaries, in percent. Callers rely on these values, they
// are contract, not presentation.
const (
	TierGoodMin = 90.0
	TierFairMin = 70.0
)

// Tier buckets a tag's accuracy.
type Tier string

const (
	TierGood Tier = "good"
	TierFair Tier = "fair"
	TierPoor Tier = "poor"
)

// TierFor returns the tier for an accuracy percentage.
func TierFor(accuracy float64) Tier {
	switch {
	case accuracy >= TierGoodMin:
		return TierGood
	case accuracy >= TierFairMin:
		return TierFair
	default:
		return TierPoor
	}
}

// TagStat holds evaluation counters for one tag.
type TagStat struct {
	Tag   string
	Right int
	Wrong int
}

// Total is the number of evaluation rows charged to the tag.
func (s TagStat) Total() int { return s.Right + s.Wrong }

// Accuracy is the share of right predictions, in percent.
func (s TagStat) Accuracy() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Right) / float64(total) * 100
}

// SortKey selects the ordering of Stats.
type SortKey string

const (
	SortByAccuracy SortKey = "accuracy"
	SortByCount    SortKey = "count"
	SortByName     SortKey = "name"
)

// ResolveSortKey folds the CLI sort flags into one key with the fixed
// precedence accuracy > count > name. No flag set means count, the
// historical default.
func ResolveSortKey(byAccuracy, byCount, byName bool) SortKey {
	switch {
	case byAccuracy:
		return SortByAccuracy
	case byCount:
		return SortByCount
	case byName:
		return SortByName
	default:
		return SortByCount
	}
}

// SortOptions orders and truncates the stats listing.
type SortOptions struct {
	Key       SortKey
	Ascending bool
	Limit     int // 0 keeps all
}

// Analyzer is the per-tag rollup of one evaluation log. Each load builds a
// fresh value; there is no incremental update.
type Analyzer struct {
	stats   map[string]*TagStat
	records int
}

// LoadEvaluationCSV reads an evaluation log and returns a fresh analyzer.
// Column names for the expected and predicted tags are configurable; empty
// strings select the defaults.
func LoadEvaluationCSV(path, expectedColumn, predictedColumn string) (*Analyzer, error) {
	records, err := dataset.LoadEvaluationRecords(path, expectedColumn, predictedColumn)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// FromRecords builds an analyzer from already-loaded evaluation records.
// A wrong prediction is charged to the tag that should have been predicted:
// expected "a" / predicted "b" increments Wrong for "a" and leaves "b"
// untouched. Rows with a blank expected tag are ignored.
func FromRecords(records []dataset.EvaluationRecord) *Analyzer {
	a := &Analyzer{stats: make(map[string]*TagStat, 64)}

	for _, rec := range records {
		expected := rec.ExpectedTag
		if expected == "" {
			continue
		}

		stat, ok := a.stats[expected]
		if !ok {
			stat = &TagStat{Tag: expected}
			a.stats[expected] = stat
		}
		if rec.PredictedTag == expected {
			stat.Right++
		} else {
			stat.Wrong++
		}
		a.records++
	}

	return a
}

// Records is the number of evaluation rows that entered the rollup.
func (a *Analyzer) Records() int { return a.records }

// Tags is the number of distinct expected tags observed.
func (a *Analyzer) Tags() int { return len(a.stats) }

// Stat returns the counters for one tag, if it was observed.
func (a *Analyzer) Stat(tag string) (TagStat, bool) {
	stat, ok := a.stats[tag]
	if !ok {
		return TagStat{}, false
	}
	return *stat, true
}

// Stats returns tag stats ordered by opts. The comparison key is
// (primary, tie-breaks): accuracy ties break on count then name, count ties
// break on name, names compare case-insensitively. Descending reverses the
// whole key. A positive limit truncates after sorting.
func (a *Analyzer) Stats(opts SortOptions) []TagStat {
	stats := make([]TagStat, 0, len(a.stats))
	for _, stat := range a.stats {
		stats = append(stats, *stat)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		less := statLess(stats[i], stats[j], opts.Key)
		if opts.Ascending {
			return less
		}
		return statLess(stats[j], stats[i], opts.Key)
	})

	if opts.Limit > 0 && opts.Limit < len(stats) {
		stats = stats[:opts.Limit]
	}
	return stats
}

// WorstTags returns the n lowest-accuracy tags, worst first.
func (a *Analyzer) WorstTags(n int) []TagStat {
	return a.Stats(SortOptions{Key: SortByAccuracy, Ascending: true, Limit: n})
}

// BestTags returns the n highest-accuracy tags, best first.
func (a *Analyzer) BestTags(n int) []TagStat {
	return a.Stats(SortOptions{Key: SortByAccuracy, Ascending: false, Limit: n})
}

// Overview aggregates the whole evaluation log.
type Overview struct {
	Records int
	Tags    int
	Right   int
	Wrong   int
}

// Accuracy is the overall share of right predictions, in percent.
func (o Overview) Accuracy() float64 {
	if o.Records == 0 {
		return 0
	}
	return float64(o.Right) / float64(o.Records) * 100
}

// Overview sums the rollup for the summary box.
func (a *Analyzer) Overview() Overview {
	o := Overview{Records: a.records, Tags: len(a.stats)}
	for _, stat := range a.stats {
		o.Right += stat.Right
		o.Wrong += stat.Wrong
	}
	return o
}

func statLess(a, b TagStat, key SortKey) bool {
	switch key {
	case SortByAccuracy:
		if a.Accuracy() != b.Accuracy() {
			return a.Accuracy() < b.Accuracy()
		}
		if a.Total() != b.Total() {
			return a.Total() < b.Total()
		}
	case SortByCount:
		if a.Total() != b.Total() {
			return a.Total() < b.Total()
		}
	}
	return strings.ToLower(a.Tag) < strings.ToLower(b.Tag)
}
