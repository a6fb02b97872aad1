package tagging

import (
	"github.com/tetraminz/tagforge/internal/dataset"
)

// TagUnit collects all queries sharing one group id. The representative
// answer is the answer of the first record in the group; later rows are
// assumed to agree and are not checked.
type TagUnit struct {
	GroupID string
	Queries []string
	Answer  string
	Tag     string
}

// BuildTagUnits partitions records into tag units keyed by group id. Units
// come back in discovery order (first appearance of each group id) with
// member queries in first-seen order. Every record lands in exactly one unit.
func BuildTagUnits(records []dataset.QueryRecord) []TagUnit {
	units := make([]TagUnit, 0, 64)
	byGroup := make(map[string]int, 64)

	for _, rec := range records {
		idx, ok := byGroup[rec.GroupID]
		if !ok {
			idx = len(units)
			byGroup[rec.GroupID] = idx
			units = append(units, TagUnit{
				GroupID: rec.GroupID,
				Queries: make([]string, 0, 4),
				Answer:  rec.Answer,
			})
		}
		units[idx].Queries = append(units[idx].Queries, rec.Query)
	}

	return units
}
