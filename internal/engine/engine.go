// Package engine assembles the lookup tables and the three models into one
// immutable value that request handlers share. Nothing in an Engine changes
// after New returns, so it needs no locking.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"starling/internal/config"
	"starling/internal/ingest"
	"starling/internal/logging"
	"starling/internal/lookup"
	"starling/internal/metrics"
	"starling/internal/model"
	"starling/internal/popularity"
	"starling/internal/similarity"
)

// Query kinds, also used as metric labels.
const (
	KindPopular      = "popular"
	KindSimilarUsers = "similar_users"
	KindArticles     = "articles"
)

var (
	// ErrNameNotFound means no user has that name.
	ErrNameNotFound = lookup.ErrNameNotFound
	// ErrNoText means the user exists but has no text to compare against.
	ErrNoText = errors.New("no text for similarity")
)

type Options struct {
	TopN            int
	MinInteractions int
	K               int
	Workers         int
	Strengths       model.StrengthTable
}

// OptionsFromConfig maps the model section of the config file.
func OptionsFromConfig(c config.ModelConfig) (Options, error) {
	st, err := model.StrengthsFromConfig(c.Strengths)
	if err != nil {
		return Options{}, err
	}
	return Options{
		TopN:            c.TopN,
		MinInteractions: c.MinInteractions,
		K:               c.K,
		Workers:         c.Workers,
		Strengths:       st,
	}, nil
}

type Engine struct {
	users   *lookup.Table
	bios    *lookup.Table
	posts   []model.Post
	popular *popularity.Ranking
	userSim *similarity.Matrix
	postSim *similarity.Matrix
	k       int
	builtAt time.Time
}

// RankedUser is a popularity entry with its display name.
type RankedUser struct {
	UserID int     `json:"user_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// New builds every model from ds. Any failure is fatal to the whole engine.
func New(ctx context.Context, ds *ingest.Dataset, opts Options) (*Engine, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{posts: append([]model.Post(nil), ds.Posts...), k: opts.K}
	if e.k <= 0 {
		e.k = similarity.DefaultK
	}

	userEntries := make([]lookup.Entry, len(ds.Users))
	for i, u := range ds.Users {
		userEntries[i] = lookup.Entry{ID: u.ID, Name: u.Name}
	}
	e.users = lookup.New("users", userEntries)
	bioEntries := make([]lookup.Entry, len(ds.Bios))
	for i, b := range ds.Bios {
		bioEntries[i] = lookup.Entry{ID: b.UserID, Name: b.Name}
	}
	e.bios = lookup.New("users_sim", bioEntries)
	for _, t := range []*lookup.Table{e.users, e.bios} {
		if d := t.Duplicates(); len(d) > 0 {
			logging.Warn("duplicate_names", map[string]any{"table": t.Label(), "names": d, "policy": "first row wins"})
		}
	}

	var err error
	start := time.Now()
	e.popular, err = popularity.Build(ds.Events, popularity.Options{
		TopN:            opts.TopN,
		MinInteractions: opts.MinInteractions,
		Strengths:       opts.Strengths,
	})
	if err != nil {
		return nil, fmt.Errorf("popularity model: %w", err)
	}
	metrics.ObserveModelBuild(KindPopular, start)
	logging.Info("model_built", map[string]any{"model": KindPopular, "ranked": e.popular.Len(), "eligible": e.popular.Eligible(), "took": time.Since(start).String()})

	simOpts := similarity.Options{Workers: opts.Workers}
	start = time.Now()
	if e.userSim, err = similarity.Build(ctx, ds.BioTexts(), simOpts); err != nil {
		return nil, fmt.Errorf("user similarity model: %w", err)
	}
	metrics.ObserveModelBuild(KindSimilarUsers, start)
	logging.Info("model_built", map[string]any{"model": KindSimilarUsers, "rows": e.userSim.Len(), "terms": e.userSim.Vocabulary().Len(), "took": time.Since(start).String()})

	start = time.Now()
	if e.postSim, err = similarity.Build(ctx, ds.PostTitles(), simOpts); err != nil {
		return nil, fmt.Errorf("article similarity model: %w", err)
	}
	metrics.ObserveModelBuild(KindArticles, start)
	logging.Info("model_built", map[string]any{"model": KindArticles, "rows": e.postSim.Len(), "terms": e.postSim.Vocabulary().Len(), "took": time.Since(start).String()})

	e.builtAt = time.Now().UTC()
	return e, nil
}

func (e *Engine) BuiltAt() time.Time { return e.builtAt }

// DefaultK is the configured similarity result size.
func (e *Engine) DefaultK() int { return e.k }

// PopularUsers returns the names of the most popular users other than name.
func (e *Engine) PopularUsers(name string) ([]string, error) {
	row, err := e.users.RowOf(name)
	if err != nil {
		return nil, e.fail(KindPopular, err)
	}
	me, _ := e.users.At(row)
	ids := e.popular.Recommend(me.ID)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = e.displayName(id)
	}
	metrics.IncRecommendation(KindPopular)
	return out, nil
}

// SimilarUsers returns up to k users whose biographies read most like name's.
// k <= 0 uses the configured default.
func (e *Engine) SimilarUsers(name string, k int) ([]string, error) {
	row, err := e.bios.RowOf(name)
	if err != nil {
		if _, uerr := e.users.RowOf(name); uerr == nil {
			err = fmt.Errorf("%q has no biography: %w", name, ErrNoText)
		}
		return nil, e.fail(KindSimilarUsers, err)
	}
	ns, err := e.userSim.TopK(row, e.kOr(k))
	if errors.Is(err, similarity.ErrEmptyRow) {
		err = fmt.Errorf("%q has no distinguishing biography terms: %w: %w", name, ErrNoText, err)
	}
	if err != nil {
		return nil, e.fail(KindSimilarUsers, err)
	}
	names, err := e.bios.Names(similarity.Rows(ns))
	if err != nil {
		return nil, e.fail(KindSimilarUsers, err)
	}
	metrics.IncRecommendation(KindSimilarUsers)
	return names, nil
}

// SimilarArticles returns up to k posts similar to the post paired with
// name's row in the users table.
func (e *Engine) SimilarArticles(name string, k int) ([]model.Post, error) {
	row, err := e.users.RowOf(name)
	if err != nil {
		return nil, e.fail(KindArticles, err)
	}
	ns, err := e.postSim.TopK(row, e.kOr(k))
	if errors.Is(err, similarity.ErrUnknownRowIndex) || errors.Is(err, similarity.ErrEmptyRow) {
		err = fmt.Errorf("%q has no article recommendation: %w: %w", name, ErrNoText, err)
	}
	if err != nil {
		return nil, e.fail(KindArticles, err)
	}
	out := make([]model.Post, len(ns))
	for i, n := range ns {
		out[i] = e.posts[n.Row]
	}
	metrics.IncRecommendation(KindArticles)
	return out, nil
}

// Ranking returns the cached popularity ranking with names attached.
func (e *Engine) Ranking() []RankedUser {
	scores := e.popular.Scores()
	out := make([]RankedUser, len(scores))
	for i, s := range scores {
		out[i] = RankedUser{UserID: s.UserID, Name: e.displayName(s.UserID), Score: s.Score}
	}
	return out
}

func (e *Engine) displayName(id int) string {
	if n, err := e.users.NameOfID(id); err == nil {
		return n
	}
	return "user " + strconv.Itoa(id)
}

func (e *Engine) kOr(k int) int {
	if k <= 0 {
		return e.k
	}
	return k
}

func (e *Engine) fail(kind string, err error) error {
	metrics.IncRecommendationError(kind, Reason(err))
	return err
}

// Reason classifies an engine error for metrics and responses.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNameNotFound):
		return "name_not_found"
	case errors.Is(err, ErrNoText), errors.Is(err, similarity.ErrUnknownRowIndex), errors.Is(err, similarity.ErrEmptyRow):
		return "no_text"
	default:
		return "internal"
	}
}
