// Package classify implements k-nearest-neighbour voting over a sample set.
package classify

import (
	"sort"

	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/samples"
)

const (
	// K is the neighbourhood size.
	K = 10

	// NoMatch is returned when no category can be resolved.
	NoMatch = -1
)

type candidate struct {
	index int
	dist  float64
}

type tally struct {
	votes   int
	nearest float64
	order   int
}

// Classify returns the category of q among the samples in set, or NoMatch.
func Classify(q embedding.Embedding, set *samples.Set) int {
	return classify(q, set, 0, false)
}

// ClassifyTolerance is Classify with a tolerance gate: samples whose distance
// to q is below tolerance do not take part in the vote.
func ClassifyTolerance(q embedding.Embedding, set *samples.Set, tolerance float64) int {
	return classify(q, set, tolerance, true)
}

func classify(q embedding.Embedding, set *samples.Set, tolerance float64, gated bool) int {
	n := set.Len()
	if n == 0 {
		return NoMatch
	}

	cands := make([]candidate, 0, n)
	for i := 0; i < n; i++ {
		d := embedding.SquaredDistance(q, set.Embedding(i))
		if gated && d < tolerance {
			continue
		}
		cands = append(cands, candidate{index: i, dist: d})
	}
	if len(cands) == 0 {
		return NoMatch
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > K {
		cands = cands[:K]
	}

	hits := make(map[int32]*tally, len(cands))
	for _, c := range cands {
		cat, ok := set.Category(c.index)
		if !ok {
			continue
		}
		if t, seen := hits[cat]; seen {
			t.votes++
			continue
		}
		// Candidates are sorted, so the first hit is the category's closest.
		hits[cat] = &tally{votes: 1, nearest: c.dist, order: len(hits)}
	}

	best, bestCat := (*tally)(nil), int32(NoMatch)
	for cat, t := range hits {
		if best == nil || beats(t, best) {
			best, bestCat = t, cat
		}
	}
	if best == nil {
		return NoMatch
	}
	return int(bestCat)
}

// beats reports whether a outranks b: more votes first, then the larger
// closest distance, then first appearance in the neighbourhood.
func beats(a, b *tally) bool {
	if a.votes != b.votes {
		return a.votes > b.votes
	}
	if a.nearest != b.nearest {
		return a.nearest > b.nearest
	}
	return a.order < b.order
}
