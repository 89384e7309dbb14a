// Package popularity ranks users by the weighted strength of their
// interactions with posts.
//
// A user is ranked only after interacting with at least MinInteractions
// distinct posts. Their score is log2(1 + Σ strength), which keeps a single
// heavy action (one comment) from outranking a steady stream of light ones.
// The ranking is built once and is safe to share between goroutines.
package popularity

import (
	"math"
	"sort"

	"starling/internal/model"
)

const (
	DefaultTopN            = 10
	DefaultMinInteractions = 2
)

// Options tune a build. Zero values fall back to the defaults.
type Options struct {
	TopN            int
	MinInteractions int
	Strengths       model.StrengthTable
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.MinInteractions <= 0 {
		o.MinInteractions = DefaultMinInteractions
	}
	if o.Strengths == nil {
		o.Strengths = model.DefaultStrengths()
	}
	return o
}

// Ranking is the cached top-N of user scores, highest first.
type Ranking struct {
	entries  []model.UserScore
	eligible int
}

type pair struct{ user, post int }

// Build aggregates events into a ranking. Every event's action must be in
// the strength table; the first unknown action aborts the build.
func Build(events []model.InteractionEvent, opts Options) (*Ranking, error) {
	opts = opts.withDefaults()

	weights := make([]float64, len(events))
	for i, e := range events {
		w, err := opts.Strengths.Strength(e.Action)
		if err != nil {
			return nil, err
		}
		weights[i] = w
	}

	seen := make(map[pair]struct{}, len(events))
	distinct := make(map[int]int)
	for _, e := range events {
		p := pair{e.UserID, e.PostID}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		distinct[e.UserID]++
	}

	sums := make(map[int]float64)
	for i, e := range events {
		if distinct[e.UserID] < opts.MinInteractions {
			continue
		}
		sums[e.UserID] += weights[i]
	}

	users := make([]int, 0, len(sums))
	for u := range sums {
		users = append(users, u)
	}
	sort.Ints(users)

	scores := make([]model.UserScore, len(users))
	for i, u := range users {
		scores[i] = model.UserScore{UserID: u, Score: Smooth(sums[u])}
	}
	// ties keep user_id ascending
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	eligible := len(scores)
	if len(scores) > opts.TopN {
		scores = scores[:opts.TopN:opts.TopN]
	}
	return &Ranking{entries: scores, eligible: eligible}, nil
}

// Smooth is log2(1+x).
func Smooth(x float64) float64 { return math.Log2(1 + x) }

// Recommend returns the ranked user ids without excludeUserID.
// The cached ranking is never modified.
func (r *Ranking) Recommend(excludeUserID int) []int {
	out := make([]int, 0, len(r.entries))
	for _, e := range r.entries {
		if e.UserID == excludeUserID {
			continue
		}
		out = append(out, e.UserID)
	}
	return out
}

// Scores returns a copy of the ranked entries.
func (r *Ranking) Scores() []model.UserScore {
	return append([]model.UserScore(nil), r.entries...)
}

func (r *Ranking) Len() int { return len(r.entries) }

// Eligible is how many users passed the interaction threshold before truncation.
func (r *Ranking) Eligible() int { return r.eligible }
