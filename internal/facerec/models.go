package facerec

import (
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/imaging"
	"github.com/kozaktomas/facerec/internal/model"
)

// Detector finds face rectangles in an image.
type Detector interface {
	Detect(img image.Image) ([]image.Rectangle, error)
}

// ShapePredictor locates facial landmarks inside a face rectangle.
type ShapePredictor interface {
	Predict(img image.Image, rect image.Rectangle) (imaging.Shape, error)
}

// Embedder maps aligned face chips to embeddings, one per chip.
type Embedder interface {
	Embed(chips []image.Image) ([]embedding.Embedding, error)
}

// Classifier returns class probabilities for a face chip.
type Classifier interface {
	Predict(chip image.Image) ([]float32, error)
}

// Loaders create the model backends. A nil loader leaves that model unavailable.
type Loaders struct {
	Detector    model.Loader[Detector]
	CNNDetector model.Loader[Detector]
	Shape       model.Loader[ShapePredictor]
	Embedding   model.Loader[Embedder]
	Gender      model.Loader[Classifier]
	Age         model.Loader[Classifier]
}

// ModelKind names one of the service's model resources.
type ModelKind string

const (
	KindDetector    ModelKind = "detector"
	KindCNNDetector ModelKind = "cnn"
	KindShape       ModelKind = "shape"
	KindEmbedding   ModelKind = "embedding"
	KindGender      ModelKind = "gender"
	KindAge         ModelKind = "age"
)

// Kinds lists all model kinds.
var Kinds = []ModelKind{KindDetector, KindCNNDetector, KindShape, KindEmbedding, KindGender, KindAge}

// ErrUnknownModel is returned for a model kind the service does not have.
var ErrUnknownModel = errors.New("unknown model kind")

// ErrNoBackend is returned when no loader is configured for a model kind.
var ErrNoBackend = errors.New("no backend configured")

// ModelInfo describes the state of one model resource.
type ModelInfo struct {
	Kind   ModelKind `json:"kind"`
	Path   string    `json:"path,omitempty"`
	Loaded bool      `json:"loaded"`
}

func orMissing[T any](kind ModelKind, l model.Loader[T]) model.Loader[T] {
	if l != nil {
		return l
	}
	return func(string) (T, error) {
		var zero T
		return zero, fmt.Errorf("%s: %w", kind, ErrNoBackend)
	}
}
