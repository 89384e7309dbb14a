// Package similarity builds a TF-IDF cosine similarity matrix over a small
// text corpus and answers "most similar rows to row r" queries.
//
// The full n×n matrix is computed once and kept in memory, so a query is a
// sort over one row. That only holds up for corpora of a few thousand rows;
// beyond that an approximate nearest-neighbour index is needed.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

const DefaultK = 10

var (
	ErrUnknownRowIndex = errors.New("unknown row index")
	ErrEmptyCorpus     = errors.New("empty corpus")
)

// ErrEmptyRow means the query text has no weighted terms, so every
// similarity to it is zero.
var ErrEmptyRow = errors.New("row has no weighted terms")

type Options struct {
	// Workers bounds the goroutines computing matrix rows; <=0 uses GOMAXPROCS.
	Workers int
}

// Matrix holds pairwise cosine similarities, row-major.
// Entry (i, j) equals (j, i) and the diagonal is 1.
type Matrix struct {
	n     int
	data  []float64
	empty []bool
	vocab *Vocabulary
}

// Neighbor is one similarity hit.
type Neighbor struct {
	Row   int
	Score float64
}

// Build vectorizes texts and computes the similarity of every pair.
func Build(ctx context.Context, texts []string, opts Options) (*Matrix, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}
	vocab, vecs := Vectorize(texts)
	n := len(vecs)
	m := &Matrix{n: n, data: make([]float64, n*n), empty: make([]bool, n), vocab: vocab}
	for i, v := range vecs {
		m.empty[i] = len(v.Idx) == 0
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// row i owns cells (i, j) and (j, i) for j >= i
			m.data[i*n+i] = 1
			for j := i + 1; j < n; j++ {
				s := vecs[i].Dot(vecs[j])
				m.data[i*n+j] = s
				m.data[j*n+i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("similarity matrix: %w", err)
	}
	return m, nil
}

// Len is the number of rows.
func (m *Matrix) Len() int { return m.n }

func (m *Matrix) Vocabulary() *Vocabulary { return m.vocab }

// At returns the similarity of rows i and j.
func (m *Matrix) At(i, j int) (float64, error) {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		return 0, fmt.Errorf("cell (%d, %d) of %d rows: %w", i, j, m.n, ErrUnknownRowIndex)
	}
	return m.data[i*m.n+j], nil
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) ([]float64, error) {
	if i < 0 || i >= m.n {
		return nil, fmt.Errorf("row %d of %d: %w", i, m.n, ErrUnknownRowIndex)
	}
	return append([]float64(nil), m.data[i*m.n:(i+1)*m.n]...), nil
}

// TopK returns up to k rows most similar to row, best first, never row itself.
// Equal scores keep ascending row order. k <= 0 means DefaultK. A query row
// without weighted terms fails with ErrEmptyRow unless it is the only row.
func (m *Matrix) TopK(row, k int) ([]Neighbor, error) {
	if row < 0 || row >= m.n {
		return nil, fmt.Errorf("row %d of %d: %w", row, m.n, ErrUnknownRowIndex)
	}
	if m.empty[row] && m.n > 1 {
		return nil, fmt.Errorf("row %d: %w", row, ErrEmptyRow)
	}
	if k <= 0 {
		k = DefaultK
	}
	base := row * m.n
	cands := make([]Neighbor, 0, m.n-1)
	for j := 0; j < m.n; j++ {
		if j == row {
			continue
		}
		cands = append(cands, Neighbor{Row: j, Score: m.data[base+j]})
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].Score > cands[b].Score })
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands, nil
}

// Rows strips scores from neighbors.
func Rows(ns []Neighbor) []int {
	out := make([]int, len(ns))
	for i, n := range ns {
		out[i] = n.Row
	}
	return out
}
