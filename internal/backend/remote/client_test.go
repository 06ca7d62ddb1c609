package remote

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/facerec/internal/embedding"
)

func newTestServer(t *testing.T, dim int, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	mux.HandleFunc("/embed/chip", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file.Close()
		if header.Header.Get("Content-Type") != "image/png" {
			t.Errorf("part content type = %q", header.Header.Get("Content-Type"))
		}

		vec := make([]float32, dim)
		for i := range vec {
			vec[i] = float32(i)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"dim": dim, "embedding": vec, "model": "test"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Embed(t *testing.T) {
	srv := newTestServer(t, embedding.Dim, http.StatusOK)

	c, err := Load(srv.URL + "/")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	chips := []image.Image{image.NewRGBA(image.Rect(0, 0, 8, 8)), image.NewRGBA(image.Rect(0, 0, 8, 8))}
	got, err := c.Embed(chips)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Embed() returned %d embeddings, want 2", len(got))
	}
	if got[1][5] != 5 {
		t.Errorf("Embed()[1][5] = %v, want 5", got[1][5])
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		dim    int
		status int
		load   bool
	}{
		{"unhealthy server", embedding.Dim, http.StatusServiceUnavailable, true},
		{"wrong dimension", 64, http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.dim, tt.status)
			if tt.load {
				if _, err := Load(srv.URL); err == nil {
					t.Error("Load() error = nil")
				}
				return
			}
			c := NewClient(srv.URL)
			if _, err := c.Embed([]image.Image{image.NewRGBA(image.Rect(0, 0, 4, 4))}); err == nil {
				t.Error("Embed() error = nil")
			}
		})
	}

	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") error = nil")
	}
}
