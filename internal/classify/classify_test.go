package classify

import (
	"math"
	"sync"
	"testing"

	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/samples"
)

// at returns an embedding whose squared distance from the origin is d.
func at(d float64) embedding.Embedding {
	var e embedding.Embedding
	e[0] = float32(math.Sqrt(d))
	return e
}

func sample(d float64, cat int32) samples.Sample {
	return samples.Sample{Embedding: at(d), Category: cat}
}

func TestClassify(t *testing.T) {
	var origin embedding.Embedding

	tests := []struct {
		name    string
		samples []samples.Sample
		want    int
	}{
		{
			name:    "empty set",
			samples: nil,
			want:    NoMatch,
		},
		{
			name:    "exact match",
			samples: []samples.Sample{sample(0, 7), sample(9, 3)},
			want:    7,
		},
		{
			name: "more votes beat closer neighbours",
			samples: []samples.Sample{
				sample(1, 1), sample(2, 1), sample(3, 1),
				sample(0.5, 2), sample(0.6, 2),
			},
			want: 1,
		},
		{
			name: "equal votes go to the larger closest distance",
			samples: []samples.Sample{
				sample(5, 3), sample(6, 3),
				sample(2, 4), sample(7, 4),
			},
			want: 3,
		},
		{
			name: "only the ten nearest vote",
			samples: append(
				[]samples.Sample{
					sample(0.1, 8), sample(0.2, 8), sample(0.3, 8), sample(0.4, 8),
					sample(1, 9), sample(2, 9), sample(3, 9), sample(4, 9), sample(5, 9), sample(6, 9),
				},
				repeat(sample(50, 8), 10)...,
			),
			want: 9,
		},
		{
			name:    "exact tie goes to the first seen category",
			samples: []samples.Sample{sample(1, 11), sample(1, 12)},
			want:    11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := samples.NewSet(tt.samples)
			if got := Classify(origin, set); got != tt.want {
				t.Errorf("Classify() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClassifyTolerance(t *testing.T) {
	var origin embedding.Embedding
	set := samples.NewSet([]samples.Sample{
		sample(0, 1),
		sample(0.2, 1),
		sample(0.8, 2),
	})

	tests := []struct {
		name      string
		tolerance float64
		want      int
	}{
		{"zero tolerance keeps everything", 0, 1},
		{"close samples are discarded", 0.5, 2},
		{"everything discarded", 1, NoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTolerance(origin, set, tt.tolerance); got != tt.want {
				t.Errorf("ClassifyTolerance(%v) = %d, want %d", tt.tolerance, got, tt.want)
			}
		})
	}
}

func TestClassify_EmptyForAnyTolerance(t *testing.T) {
	empty := samples.NewSet(nil)
	for _, tol := range []float64{-1, 0, 0.6, 1e9} {
		if got := ClassifyTolerance(at(3), empty, tol); got != NoMatch {
			t.Errorf("ClassifyTolerance(empty, %v) = %d, want NoMatch", tol, got)
		}
	}
	if got := Classify(at(3), nil); got != NoMatch {
		t.Errorf("Classify(nil set) = %d, want NoMatch", got)
	}
}

func TestClassify_MissingCategoriesAreSkipped(t *testing.T) {
	var origin embedding.Embedding
	embs := []embedding.Embedding{at(0), at(0.1), at(2)}

	set := samples.NewParallelSet(embs, []int32{5})
	if got := Classify(origin, set); got != 5 {
		t.Errorf("Classify() = %d, want 5", got)
	}

	unlabelled := samples.NewParallelSet(embs, nil)
	if got := Classify(origin, unlabelled); got != NoMatch {
		t.Errorf("Classify(unlabelled) = %d, want NoMatch", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	var list []samples.Sample
	for i := 0; i < 40; i++ {
		list = append(list, sample(float64(i%7), int32(i%5)))
	}
	set := samples.NewSet(list)
	q := at(2.5)

	want := ClassifyTolerance(q, set, 0.3)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if got := ClassifyTolerance(q, set, 0.3); got != want {
					t.Errorf("ClassifyTolerance() = %d, want %d", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func repeat(s samples.Sample, n int) []samples.Sample {
	out := make([]samples.Sample, n)
	for i := range out {
		out[i] = s
	}
	return out
}
