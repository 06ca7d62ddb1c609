package backend

import (
	"testing"

	"github.com/kozaktomas/facerec/internal/config"
	"github.com/kozaktomas/facerec/internal/facerec"
)

func TestFaceConfig(t *testing.T) {
	cfg := &config.Config{Face: facerec.DefaultConfig()}
	cfg.Face.EmbeddingModel = "/models/embed.onnx"

	if got := FaceConfig(cfg).EmbeddingModel; got != "/models/embed.onnx" {
		t.Errorf("EmbeddingModel = %q, want the model path", got)
	}

	cfg.Runtime.EmbeddingURL = "http://embed:8000"
	if got := FaceConfig(cfg).EmbeddingModel; got != "http://embed:8000" {
		t.Errorf("EmbeddingModel = %q, want the server URL", got)
	}
}

func TestPathKinds(t *testing.T) {
	tests := []struct {
		path     string
		wantONNX bool
		wantURL  bool
	}{
		{"/models/facefinder", false, false},
		{"/models/detector.ONNX", true, false},
		{"http://localhost:8000", false, true},
		{"https://embed.example.com/", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isONNX(tt.path); got != tt.wantONNX {
				t.Errorf("isONNX() = %v, want %v", got, tt.wantONNX)
			}
			if got := isURL(tt.path); got != tt.wantURL {
				t.Errorf("isURL() = %v, want %v", got, tt.wantURL)
			}
		})
	}
}

func TestLoaders_MissingCascade(t *testing.T) {
	loaders := Loaders(&config.Config{})
	if _, err := loaders.Detector("/nonexistent/facefinder"); err == nil {
		t.Error("Detector loader should fail for a missing cascade")
	}
}
