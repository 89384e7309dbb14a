// Package analytics summarizes interaction tables for operator reports.
package analytics

import (
	"sort"

	"starling/internal/model"
)

// ActionCount is one row of an action breakdown.
type ActionCount struct {
	Action model.Action `json:"action"`
	Count  int          `json:"count"`
}

// CountActions tallies events per action kind.
func CountActions(events []model.InteractionEvent) map[model.Action]int {
	out := make(map[model.Action]int)
	for _, e := range events {
		out[e.Action]++
	}
	return out
}

// Breakdown orders counts by count descending, then action name.
func Breakdown(counts map[model.Action]int) []ActionCount {
	out := make([]ActionCount, 0, len(counts))
	for a, n := range counts {
		out = append(out, ActionCount{Action: a, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// DistinctPairs counts unique (user, post) pairs, the unit popularity scores on.
func DistinctPairs(events []model.InteractionEvent) int {
	seen := make(map[[2]int]struct{}, len(events))
	for _, e := range events {
		seen[[2]int{e.UserID, e.PostID}] = struct{}{}
	}
	return len(seen)
}
