// Package backend connects the configured model files to concrete
// inference backends.
package backend

import (
	"path/filepath"
	"strings"

	"github.com/kozaktomas/facerec/internal/backend/onnx"
	"github.com/kozaktomas/facerec/internal/backend/pigo"
	"github.com/kozaktomas/facerec/internal/backend/remote"
	"github.com/kozaktomas/facerec/internal/config"
	"github.com/kozaktomas/facerec/internal/facerec"
)

const (
	genderInputSize = 32
	ageInputSize    = 64
)

// Loaders returns the model loaders for cfg. The frontal detector is a pigo
// cascade unless its path ends in .onnx; every other model runs on ONNX
// Runtime. When an embedding server URL is configured it replaces the
// embedding network and the embedding model path is set to that URL.
func Loaders(cfg *config.Config) facerec.Loaders {
	libPath := cfg.Runtime.ONNXRuntimeLib
	withRuntime := func(load func(string) (facerec.Detector, error)) func(string) (facerec.Detector, error) {
		return func(path string) (facerec.Detector, error) {
			if err := onnx.Init(libPath); err != nil {
				return nil, err
			}
			return load(path)
		}
	}

	return facerec.Loaders{
		Detector: func(path string) (facerec.Detector, error) {
			if isONNX(path) {
				return withRuntime(loadONNXDetector)(path)
			}
			return pigo.Load(path)
		},
		CNNDetector: withRuntime(loadONNXDetector),
		Shape: func(path string) (facerec.ShapePredictor, error) {
			if err := onnx.Init(libPath); err != nil {
				return nil, err
			}
			return onnx.LoadLandmarks(path)
		},
		Embedding: func(path string) (facerec.Embedder, error) {
			if isURL(path) {
				return remote.Load(path)
			}
			if err := onnx.Init(libPath); err != nil {
				return nil, err
			}
			return onnx.LoadEmbedder(path)
		},
		Gender: func(path string) (facerec.Classifier, error) {
			if err := onnx.Init(libPath); err != nil {
				return nil, err
			}
			return onnx.LoadClassifier(path, facerec.GenderClasses, genderInputSize)
		},
		Age: func(path string) (facerec.Classifier, error) {
			if err := onnx.Init(libPath); err != nil {
				return nil, err
			}
			return onnx.LoadClassifier(path, facerec.AgeClasses, ageInputSize)
		},
	}
}

// FaceConfig returns the service configuration with the embedding server
// URL applied.
func FaceConfig(cfg *config.Config) facerec.Config {
	fc := cfg.Face
	if cfg.Runtime.EmbeddingURL != "" {
		fc.EmbeddingModel = cfg.Runtime.EmbeddingURL
	}
	return fc
}

func loadONNXDetector(path string) (facerec.Detector, error) {
	return onnx.LoadDetector(path)
}

func isONNX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".onnx")
}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
