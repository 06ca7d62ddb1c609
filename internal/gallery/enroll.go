package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/facerec"
	"github.com/kozaktomas/facerec/internal/imaging"
	"github.com/kozaktomas/facerec/internal/samples"
)

// FaceService is the part of the face service used for enrollment.
type FaceService interface {
	Detect(img image.Image) ([]*facerec.Face, error)
	Recognize(face *facerec.Face) (embedding.Embedding, imaging.Shape, error)
}

// Result summarises an enrollment run.
type Result struct {
	Samples []samples.Sample
	Sources []string // image path of each sample
	Skipped int      // images without a face
	Errors  map[string]error
}

// Enroll embeds the largest face of every entry using up to concurrency
// workers. progress, when set, is called once per processed entry. Samples
// keep the order of entries.
func Enroll(ctx context.Context, svc FaceService, entries []Entry, concurrency int, progress func()) (*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	found := make([]*samples.Sample, len(entries))
	res := &Result{Errors: make(map[string]error)}
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, e Entry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if progress != nil {
				defer progress()
			}
			if ctx.Err() != nil {
				return
			}

			emb, ok, err := embedLargest(svc, e.Path)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Errors[e.Path] = err
			case !ok:
				res.Skipped++
			default:
				found[i] = &samples.Sample{Embedding: emb, Category: e.Category}
			}
		}(i, entry)
	}

	wg.Wait()

	for i, s := range found {
		if s != nil {
			res.Samples = append(res.Samples, *s)
			res.Sources = append(res.Sources, entries[i].Path)
		}
	}
	return res, ctx.Err()
}

func embedLargest(svc FaceService, path string) (embedding.Embedding, bool, error) {
	img, err := imaging.DecodeFile(path)
	if err != nil {
		return embedding.Embedding{}, false, err
	}
	faces, err := svc.Detect(img)
	if err != nil {
		return embedding.Embedding{}, false, fmt.Errorf("detect: %w", err)
	}
	if len(faces) == 0 {
		return embedding.Embedding{}, false, nil
	}

	rects := make([]image.Rectangle, len(faces))
	for i, f := range faces {
		rects[i] = f.Rectangle
	}
	emb, _, err := svc.Recognize(faces[imaging.Largest(rects)])
	if err != nil {
		return embedding.Embedding{}, false, fmt.Errorf("recognize: %w", err)
	}
	return emb, true, nil
}

// SaveSamples writes samples as JSON.
func SaveSamples(path string, list []samples.Sample) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}

// LoadSamples reads samples written by SaveSamples.
func LoadSamples(path string) ([]samples.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	var list []samples.Sample
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse samples: %w", err)
	}
	return list, nil
}
