package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"sentinel/internal/market"
)

const candidateLimit = 500

// Index ranks stored trades by euclidean closeness of min-max scaled
// feature vectors and concepts by query term overlap.
type Index struct {
	src Source
}

func NewIndex(src Source) *Index {
	return &Index{src: src}
}

func (ix *Index) QuerySimilarHistory(ctx context.Context, snap market.Snapshot, k int) ([]PastTrade, error) {
	if k <= 0 {
		return nil, nil
	}
	trades, err := ix.src.ListTrades(ctx, snap.Symbol, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	query := snap.Features()
	candidates := make([]PastTrade, 0, len(trades))
	for _, t := range trades {
		if len(t.Features) == len(query) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	lo, hi := bounds(query, candidates)
	q := scale(query, lo, hi)
	for i := range candidates {
		candidates[i].Similarity = closeness(q, scale(candidates[i].Features, lo, hi))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (ix *Index) QueryConcepts(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	concepts, err := ix.src.ListConcepts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	terms := tokenize(query)
	type scored struct {
		c     Concept
		score int
	}
	var hits []scored
	for _, c := range concepts {
		words := make(map[string]bool)
		for _, w := range tokenize(c.Title + " " + c.Text) {
			words[w] = true
		}
		s := 0
		for _, term := range terms {
			if words[term] {
				s++
			}
		}
		if s > 0 {
			hits = append(hits, scored{c, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].c.Title < hits[j].c.Title
	})
	out := make([]string, 0, k)
	for _, h := range hits {
		if len(out) == k {
			break
		}
		out = append(out, h.c.Text)
	}
	return out, nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

func bounds(query []float64, trades []PastTrade) ([]float64, []float64) {
	lo := append([]float64(nil), query...)
	hi := append([]float64(nil), query...)
	for _, t := range trades {
		for i, v := range t.Features {
			lo[i] = math.Min(lo[i], v)
			hi[i] = math.Max(hi[i], v)
		}
	}
	return lo, hi
}

func scale(v, lo, hi []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		span := hi[i] - lo[i]
		if span == 0 {
			continue
		}
		out[i] = (v[i] - lo[i]) / span
	}
	return out
}

// closeness maps the distance between two unit-cube points onto [0,1],
// 1 being identical.
func closeness(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return 1 - math.Sqrt(sum)/math.Sqrt(float64(len(a)))
}
