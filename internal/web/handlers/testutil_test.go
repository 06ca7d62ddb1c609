package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facerec/internal/config"
	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/facerec"
	"github.com/kozaktomas/facerec/internal/imaging"
)

// stubDetector always reports the same two faces, right one first.
type stubDetector struct{}

func (stubDetector) Detect(image.Image) ([]image.Rectangle, error) {
	return []image.Rectangle{image.Rect(60, 10, 100, 50), image.Rect(5, 10, 45, 50)}, nil
}

type stubShape struct{}

func (stubShape) Predict(_ image.Image, r image.Rectangle) (imaging.Shape, error) {
	cx, cy := (r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2
	w := r.Dx() / 4
	return imaging.Shape{
		{cx - w, cy - w}, {cx + w, cy - w}, {cx, cy}, {cx - w, cy + w}, {cx + w, cy + w},
	}, nil
}

// stubEmbedder returns an embedding filled with value for every chip.
type stubEmbedder struct {
	value float32
}

func (e stubEmbedder) Embed(chips []image.Image) ([]embedding.Embedding, error) {
	out := make([]embedding.Embedding, len(chips))
	for i := range out {
		out[i] = filled(e.value)
	}
	return out, nil
}

type stubClassifier struct {
	probs []float32
}

func (c stubClassifier) Predict(image.Image) ([]float32, error) {
	return c.probs, nil
}

func filled(v float32) embedding.Embedding {
	var e embedding.Embedding
	for i := range e {
		e[i] = v
	}
	return e
}

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{Face: facerec.DefaultConfig()}
}

// newTestService creates a service over stub models. Gender and age are
// loaded only when withClassifiers is set.
func newTestService(t *testing.T, withClassifiers bool) *facerec.Service {
	t.Helper()

	age := make([]float32, facerec.AgeClasses)
	age[40] = 1
	loaders := facerec.Loaders{
		Detector:  func(string) (facerec.Detector, error) { return stubDetector{}, nil },
		Shape:     func(string) (facerec.ShapePredictor, error) { return stubShape{}, nil },
		Embedding: func(string) (facerec.Embedder, error) { return stubEmbedder{value: 0.5}, nil },
		Gender:    func(string) (facerec.Classifier, error) { return stubClassifier{probs: []float32{0.1, 0.9}}, nil },
		Age:       func(string) (facerec.Classifier, error) { return stubClassifier{probs: age}, nil },
	}

	cfg := facerec.DefaultConfig()
	cfg.DetectorModel = "det"
	cfg.ShapeModel = "shape"
	cfg.EmbeddingModel = "emb"
	if withClassifiers {
		cfg.GenderModel = "gender"
		cfg.AgeModel = "age"
	}

	svc, err := facerec.New(cfg, loaders)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

// textured returns a PNG with a non-repeating pattern.
func textured(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			img.SetGray(x, y, color.Gray{Y: uint8((i * i) % 251)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
