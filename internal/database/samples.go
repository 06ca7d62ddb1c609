package database

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/samples"
)

// StoredSample represents an enrolled embedding stored in the database
type StoredSample struct {
	ID        int64
	Position  int
	Category  int32
	Embedding []float32
	Source    string // image the sample was computed from (optional)
	CreatedAt time.Time
}

// SampleReader provides read-only access to the enrolled gallery
type SampleReader interface {
	// LoadAll returns every sample in enrollment order
	LoadAll(ctx context.Context) ([]StoredSample, error)
	// Count returns the number of stored samples
	Count(ctx context.Context) (int, error)
	// Labels returns the category id to person name mapping
	Labels(ctx context.Context) (map[int32]string, error)
}

// SampleWriter provides write access to the enrolled gallery
type SampleWriter interface {
	SampleReader

	// ReplaceAll swaps the stored gallery for samples in a single transaction
	ReplaceAll(ctx context.Context, samples []StoredSample) error
	// SaveLabels replaces the category names
	SaveLabels(ctx context.Context, labels map[int32]string) error
	// ReplaceGallery stores samples and labels together in a single
	// transaction. nil labels leave the stored names untouched.
	ReplaceGallery(ctx context.Context, samples []StoredSample, labels map[int32]string) error
}

// ToSamples converts stored rows to classifier samples.
func ToSamples(stored []StoredSample) ([]samples.Sample, error) {
	out := make([]samples.Sample, len(stored))
	for i, s := range stored {
		e, err := embedding.FromSlice(s.Embedding)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", s.ID, err)
		}
		out[i] = samples.Sample{Embedding: e, Category: s.Category}
	}
	return out, nil
}

// FromSamples converts classifier samples to rows. sources, when not nil,
// holds the source image of each sample.
func FromSamples(list []samples.Sample, sources []string) []StoredSample {
	out := make([]StoredSample, len(list))
	for i, s := range list {
		out[i] = StoredSample{
			Position:  i,
			Category:  s.Category,
			Embedding: s.Embedding.Slice(),
		}
		if i < len(sources) {
			out[i].Source = sources[i]
		}
	}
	return out
}
