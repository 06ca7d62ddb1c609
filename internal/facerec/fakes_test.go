package facerec

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/imaging"
)

type fakeDetector struct {
	rects  []image.Rectangle
	delay  time.Duration
	panics bool
	calls  atomic.Int32
	// seen records the bounds of the last frame passed to Detect.
	seen atomic.Value
}

func (d *fakeDetector) Detect(img image.Image) ([]image.Rectangle, error) {
	d.calls.Add(1)
	d.seen.Store(img.Bounds())
	if d.panics {
		panic("detector exploded")
	}
	time.Sleep(d.delay)
	out := make([]image.Rectangle, len(d.rects))
	copy(out, d.rects)
	return out, nil
}

type fakeShape struct {
	calls atomic.Int32
}

func (p *fakeShape) Predict(_ image.Image, r image.Rectangle) (imaging.Shape, error) {
	p.calls.Add(1)
	cx, cy := (r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2
	w := r.Dx() / 4
	return imaging.Shape{
		{cx - w, cy - w}, {cx + w, cy - w}, {cx, cy}, {cx - w, cy + w}, {cx + w, cy + w},
	}, nil
}

// fakeEmbedder returns the i-th chip's embedding with every component set to i.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches []int
	active  atomic.Int32
	overlap atomic.Bool
}

func (e *fakeEmbedder) Embed(chips []image.Image) ([]embedding.Embedding, error) {
	if e.active.Add(1) > 1 {
		e.overlap.Store(true)
	}
	defer e.active.Add(-1)

	e.mu.Lock()
	e.batches = append(e.batches, len(chips))
	e.mu.Unlock()

	out := make([]embedding.Embedding, len(chips))
	for i := range chips {
		for j := range out[i] {
			out[i][j] = float32(i)
		}
	}
	time.Sleep(time.Millisecond)
	return out, nil
}

type fakeClassifier struct {
	probs []float32
}

func (c *fakeClassifier) Predict(image.Image) ([]float32, error) {
	out := make([]float32, len(c.probs))
	copy(out, c.probs)
	return out, nil
}

type fixture struct {
	detector *fakeDetector
	shape    *fakeShape
	embedder *fakeEmbedder
	gender   *fakeClassifier
	age      *fakeClassifier
}

func newFixture() *fixture {
	age := make([]float32, AgeClasses)
	age[30] = 1
	return &fixture{
		detector: &fakeDetector{rects: []image.Rectangle{image.Rect(60, 10, 100, 50), image.Rect(5, 10, 45, 50)}},
		shape:    &fakeShape{},
		embedder: &fakeEmbedder{},
		gender:   &fakeClassifier{probs: []float32{0.2, 0.8}},
		age:      &fakeClassifier{probs: age},
	}
}

var errMissing = errors.New("missing model file")

func (f *fixture) loaders() Loaders {
	return Loaders{
		Detector: func(path string) (Detector, error) {
			if path == "bad" {
				return nil, errMissing
			}
			return f.detector, nil
		},
		Shape:     func(string) (ShapePredictor, error) { return f.shape, nil },
		Embedding: func(string) (Embedder, error) { return f.embedder, nil },
		Gender:    func(string) (Classifier, error) { return f.gender, nil },
		Age:       func(string) (Classifier, error) { return f.age, nil },
	}
}

func (f *fixture) config() Config {
	cfg := DefaultConfig()
	cfg.DetectorModel = "det"
	cfg.ShapeModel = "shape"
	cfg.EmbeddingModel = "emb"
	cfg.GenderModel = "gender"
	cfg.AgeModel = "age"
	return cfg
}

func blank(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}
