package similarity

import (
	"math"
	"sort"

	"starling/internal/util"
)

// Vector is a sparse, L2-normalized TF-IDF vector. Idx is ascending.
type Vector struct {
	Idx []int
	Val []float64
}

// Dot is the inner product of two sparse vectors.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Idx) && j < len(o.Idx) {
		switch {
		case v.Idx[i] == o.Idx[j]:
			sum += v.Val[i] * o.Val[j]
			i++
			j++
		case v.Idx[i] < o.Idx[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Vocabulary is the fitted term index and inverse document frequencies.
type Vocabulary struct {
	terms map[string]int
	idf   []float64
	docs  int
}

// Fit learns the vocabulary of a tokenized corpus.
// idf(t) = ln(N / df(t)), so a term present in every document weighs zero.
func Fit(docs [][]string) *Vocabulary {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, w := range doc {
			if !seen[w] {
				df[w]++
				seen[w] = true
			}
		}
	}
	words := make([]string, 0, len(df))
	for w := range df {
		words = append(words, w)
	}
	sort.Strings(words)

	v := &Vocabulary{terms: make(map[string]int, len(words)), idf: make([]float64, len(words)), docs: len(docs)}
	n := float64(len(docs))
	for i, w := range words {
		v.terms[w] = i
		v.idf[i] = math.Log(n / float64(df[w]))
	}
	return v
}

func (v *Vocabulary) Len() int { return len(v.idf) }

// IDF returns the weight of term, or false if the term was never seen.
func (v *Vocabulary) IDF(term string) (float64, bool) {
	i, ok := v.terms[term]
	if !ok {
		return 0, false
	}
	return v.idf[i], true
}

// Transform weighs raw term counts by idf and L2-normalizes.
// Unknown terms are ignored. A document with no weight yields an empty vector.
func (v *Vocabulary) Transform(doc []string) Vector {
	tf := make(map[int]float64, len(doc))
	for _, w := range doc {
		if i, ok := v.terms[w]; ok {
			tf[i]++
		}
	}
	idx := make([]int, 0, len(tf))
	for i := range tf {
		if tf[i]*v.idf[i] != 0 {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	val := make([]float64, len(idx))
	var norm float64
	for k, i := range idx {
		val[k] = tf[i] * v.idf[i]
		norm += val[k] * val[k]
	}
	if norm == 0 {
		return Vector{}
	}
	norm = math.Sqrt(norm)
	for k := range val {
		val[k] /= norm
	}
	return Vector{Idx: idx, Val: val}
}

// Vectorize tokenizes texts, fits a vocabulary over all of them and
// returns one vector per text.
func Vectorize(texts []string) (*Vocabulary, []Vector) {
	docs := make([][]string, len(texts))
	for i, t := range texts {
		docs[i] = util.Tokenize(t)
	}
	vocab := Fit(docs)
	vecs := make([]Vector, len(docs))
	for i, d := range docs {
		vecs[i] = vocab.Transform(d)
	}
	return vocab, vecs
}
