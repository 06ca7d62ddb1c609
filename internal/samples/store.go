// Package samples holds the enrolled gallery used for classification.
//
// The gallery is replaced as a whole: a new Set is built completely and only
// then published under the write lock, so a reader sees either the old set or
// the new one and never a mixture.
package samples

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/facerec/internal/embedding"
)

// hnswMaxNeighbors is the M parameter of the auxiliary search graph.
const hnswMaxNeighbors = 16

// Sample is one enrolled embedding with its caller-assigned category.
type Sample struct {
	Embedding embedding.Embedding `json:"embedding"`
	Category  int32               `json:"category"`
}

// Neighbor is a single result of Set.Nearest.
type Neighbor struct {
	Index    int     `json:"index"`
	Category int32   `json:"category"`
	Known    bool    `json:"known"`
	Distance float64 `json:"distance"`
}

// Set is an immutable gallery snapshot.
type Set struct {
	embeddings []embedding.Embedding
	categories map[int]int32
	graph      *hnsw.Graph[int]
}

// NewSet builds a Set from samples. Sample order is preserved.
func NewSet(samples []Sample) *Set {
	embs := make([]embedding.Embedding, len(samples))
	cats := make(map[int]int32, len(samples))
	for i, s := range samples {
		embs[i] = s.Embedding
		cats[i] = s.Category
	}
	return newSet(embs, cats)
}

// NewParallelSet builds a Set from parallel arrays. Every embedding is stored;
// only indices below len(cats) receive a category. Indices without a category
// are skipped during classification.
func NewParallelSet(embs []embedding.Embedding, cats []int32) *Set {
	stored := make([]embedding.Embedding, len(embs))
	copy(stored, embs)
	m := make(map[int]int32, len(cats))
	for i, c := range cats {
		if i >= len(embs) {
			break
		}
		m[i] = c
	}
	return newSet(stored, m)
}

func newSet(embs []embedding.Embedding, cats map[int]int32) *Set {
	s := &Set{embeddings: embs, categories: cats}
	if len(embs) == 0 {
		return s
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	for i := range s.embeddings {
		g.Add(hnsw.MakeNode(i, s.embeddings[i][:]))
	}
	s.graph = g
	return s
}

// Len returns the number of stored embeddings.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.embeddings)
}

// Embedding returns the i-th stored embedding.
func (s *Set) Embedding(i int) embedding.Embedding {
	return s.embeddings[i]
}

// Category returns the category of the i-th sample, if one is known.
func (s *Set) Category(i int) (int32, bool) {
	c, ok := s.categories[i]
	return c, ok
}

// Nearest returns up to k approximate nearest samples to q, closest first.
// Distances are exact squared Euclidean distances.
func (s *Set) Nearest(q embedding.Embedding, k int) []Neighbor {
	if s.Len() == 0 || k <= 0 {
		return nil
	}

	nodes := s.graph.Search(q[:], k)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		cat, ok := s.categories[n.Key]
		out = append(out, Neighbor{
			Index:    n.Key,
			Category: cat,
			Known:    ok,
			Distance: embedding.SquaredDistance(q, s.embeddings[n.Key]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// Store guards the current Set with a reader/writer lock.
type Store struct {
	mu  sync.RWMutex
	set *Set
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{set: newSet(nil, map[int]int32{})}
}

// Replace swaps in a new gallery built from samples.
func (st *Store) Replace(samples []Sample) {
	st.publish(NewSet(samples))
}

// ReplaceParallel swaps in a new gallery built from parallel arrays.
// See NewParallelSet for the handling of mismatched lengths.
func (st *Store) ReplaceParallel(embs []embedding.Embedding, cats []int32) {
	st.publish(NewParallelSet(embs, cats))
}

// publish blocks until in-flight reads finish, then installs set.
func (st *Store) publish(set *Set) {
	st.mu.Lock()
	st.set = set
	st.mu.Unlock()
}

// Read runs fn while holding the shared lock. fn must not retain set beyond its return
// if it relies on the lock; the Set itself is never mutated.
func (st *Store) Read(fn func(set *Set)) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(st.set)
}

// Len returns the number of samples in the current set.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.set.Len()
}
